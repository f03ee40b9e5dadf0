package editor

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iw2rmb/desync/buffer"
)

// ChangedMsg tells a Model that its Editor changed outside of Update, for
// example because a remote patch arrived. Hosts send it from a hook.
type ChangedMsg struct{}

// Model is a Bubble Tea component that renders and interacts with an Editor.
type Model struct {
	cfg Config
	ed  *Editor

	focused bool

	viewport viewport.Model

	lastRev    uint64
	lastCursor buffer.Pos

	mouseAnchor   buffer.Pos
	mouseDragging bool
}

// NewModel returns a focused view over ed. Rendering options come from cfg;
// zero-valued Style and KeyMap fall back to the defaults.
func NewModel(ed *Editor, cfg Config) Model {
	if cfg.KeyMap.Left.Keys() == nil {
		cfg.KeyMap = DefaultKeyMap()
	}
	m := Model{
		cfg:      cfg,
		ed:       ed,
		focused:  true,
		viewport: viewport.New(0, 0),
	}
	m.syncFromEditor()
	m.rebuildContent()
	return m
}

func (m Model) Editor() *Editor { return m.ed }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) SetSize(width, height int) Model {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	m.viewport.Width = width
	m.viewport.Height = height

	m.rebuildContent()
	m.followCursor()
	return m
}

func (m Model) Focus() Model {
	if !m.focused {
		m.focused = true
		m.rebuildContent()
		m.followCursor()
	}
	return m
}

func (m Model) Blur() Model {
	if m.focused {
		m.focused = false
		m.rebuildContent()
	}
	return m
}

func (m Model) Focused() bool { return m.focused }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.SetSize(msg.Width, msg.Height), nil
	case tea.KeyMsg:
		m.updateKey(msg)
	case tea.MouseMsg:
		cmd = m.updateMouse(msg)
	}
	if m.syncFromEditor() {
		m.rebuildContent()
		m.followCursor()
	}
	return m, cmd
}

func (m Model) View() string { return m.viewport.View() }

// syncFromEditor reports whether the editor changed since the last render.
func (m *Model) syncFromEditor() bool {
	if m.ed == nil {
		return false
	}
	rev := m.ed.Revision()
	cur := m.ed.Cursor()
	if rev == m.lastRev && cur == m.lastCursor {
		return false
	}
	m.lastRev = rev
	m.lastCursor = cur
	return true
}

func (m *Model) rebuildContent() {
	m.viewport.SetContent(m.renderContent())
}

func (m *Model) followCursor() {
	h := m.viewport.Height - m.viewport.Style.GetVerticalFrameSize()
	if h <= 0 {
		return
	}
	cur := m.lastCursor

	y := m.viewport.YOffset
	if cur.Row < y {
		m.viewport.SetYOffset(cur.Row)
		return
	}
	if cur.Row >= y+h {
		m.viewport.SetYOffset(cur.Row - h + 1)
	}
}
