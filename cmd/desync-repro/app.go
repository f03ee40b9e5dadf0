package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iw2rmb/desync/editor"
	"github.com/iw2rmb/desync/internal/config"
	"github.com/iw2rmb/desync/internal/repro"
	"github.com/iw2rmb/desync/room"
	"github.com/iw2rmb/desync/typing"
)

const (
	loadingText = "Loading…"
	buttonLabel = "Toggle Simulate Typing"
	eraseWidth  = 3
)

const intro = `Steps to reproduce:
  1. "you" and "peer" are two clients of the same room.
  2. Press the button below (or ctrl+t) to type "a" every 50ms as you.
  3. While typing runs, make the peer select the last characters and
     delete them (ctrl+x).
  4. The documents stop matching. Re-syncing (ctrl+r) restores the
     provider's content.`

var (
	buttonStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	buttonOnStyle = buttonStyle.Background(lipgloss.Color("161"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	titleStyle    = lipgloss.NewStyle().Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

type readyMsg struct{}

type readyErrMsg struct{ err error }

// runtime holds what the value-typed model shares across updates.
type runtime struct {
	ctx    context.Context
	logger *slog.Logger

	you, peer     *room.Session
	youEd, peerEd *editor.Editor
	gen           *typing.Generator

	program atomic.Pointer[tea.Program]
	// notifying coalesces change notifications into one pending message.
	notifying atomic.Bool

	closeOnce sync.Once
}

type appModel struct {
	rt *runtime

	width, height int
	ready         bool

	you, peer editor.Model

	status      string
	statusLevel slog.Level

	// Screen rows of the button and of the pane tops, for mouse hits.
	buttonRow int
	panesTop  int
	paneWidth int
}

// newApp joins the room as "you" and as the in-process peer. The generator
// starts without an editor; it is attached once the room is ready.
func newApp(ctx context.Context, provider room.Provider, cfg config.Config, logger *slog.Logger) (appModel, error) {
	you, err := room.Bootstrap(ctx, provider, cfg.PublicKey, room.DefaultID)
	if err != nil {
		return appModel{}, err
	}
	peer, err := room.Bootstrap(ctx, provider, cfg.PublicKey, room.DefaultID)
	if err != nil {
		return appModel{}, errors.Join(err, you.Close())
	}

	rt := &runtime{
		ctx:    ctx,
		logger: logger,
		you:    you,
		peer:   peer,
		gen: typing.New(nil, typing.Config{
			Interval: cfg.Interval,
			Text:     cfg.Text,
			Logger:   logger.With("client", "you"),
		}),
	}
	return appModel{rt: rt}, nil
}

func (m appModel) SetProgram(p *tea.Program) { m.rt.program.Store(p) }

// Close stops the generator and leaves the room. It is safe to call more
// than once.
func (m appModel) Close() error {
	rt := m.rt
	var err error
	rt.closeOnce.Do(func() {
		err = rt.gen.Close()
		for _, ed := range []*editor.Editor{rt.youEd, rt.peerEd} {
			if ed != nil {
				err = errors.Join(err, ed.Close())
			}
		}
		err = errors.Join(err, rt.you.Close(), rt.peer.Close())
	})
	return err
}

func (rt *runtime) notify() {
	p := rt.program.Load()
	if p == nil || !rt.notifying.CompareAndSwap(false, true) {
		return
	}
	go p.Send(editor.ChangedMsg{})
}

// hooks mirror the three observer callbacks of the editor into the log.
func (rt *runtime) hooks(name string) editor.Hooks {
	logger := rt.logger.With("client", name)
	return editor.Hooks{
		OnContentError: func(ev editor.ContentError) {
			logger.Warn("content error", "op", ev.Patch.OpID, "seq", ev.Patch.Seq, "error", ev.Err)
		},
		OnUpdate: func(ev editor.UpdateEvent) {
			logger.Debug("update", "origin", ev.Origin, "version", ev.Version, "edits", len(ev.Edits))
		},
		OnTransaction: func(ev editor.TransactionEvent) {
			logger.Debug("transaction", "origin", ev.Origin, "version", ev.Version, "offset", ev.Offset, "text_changed", ev.TextChanged)
			rt.notify()
		},
	}
}

func (m appModel) Init() tea.Cmd {
	rt := m.rt
	return func() tea.Msg {
		for _, s := range []*room.Session{rt.you, rt.peer} {
			if err := s.Wait(rt.ctx); err != nil {
				return readyErrMsg{err: err}
			}
		}
		return readyMsg{}
	}
}

func (m appModel) onReady() appModel {
	rt := m.rt
	edCfg := editor.DefaultConfig()

	youCfg := edCfg
	youCfg.Hooks = rt.hooks("you")
	youCfg.Logger = rt.logger.With("client", "you")
	rt.youEd = editor.Open(rt.you.Document(), youCfg)

	peerCfg := edCfg
	peerCfg.Hooks = rt.hooks("peer")
	peerCfg.Logger = rt.logger.With("client", "peer")
	rt.peerEd = editor.Open(rt.peer.Document(), peerCfg)

	rt.gen.SetEditor(rt.youEd)

	m.you = editor.NewModel(rt.youEd, edCfg)
	m.peer = editor.NewModel(rt.peerEd, edCfg).Blur()
	m.ready = true
	rt.logger.Info("joined room", "room", rt.you.RoomID(), "member", rt.you.Document().MemberID())
	return m.layout()
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case readyMsg:
		return m.onReady(), nil
	case readyErrMsg:
		m.status = fmt.Sprintf("sync failed: %v", msg.err)
		m.statusLevel = slog.LevelError
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m.layout(), nil
	case logRecordMsg:
		m.status = msg.Summary
		m.statusLevel = msg.Level
		return m, nil
	case editor.ChangedMsg:
		m.rt.notifying.Store(false)
		return m.refresh(msg), nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	case tea.MouseMsg:
		return m.updateMouse(msg)
	}
	return m, nil
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		_ = m.rt.gen.Close()
		return m, tea.Quit
	case "ctrl+t":
		m.rt.gen.Toggle()
		return m, nil
	}
	if !m.ready {
		return m, nil
	}
	switch msg.String() {
	case "ctrl+x":
		if text := repro.EraseTail(m.rt.peerEd, eraseWidth); text != "" {
			m.rt.logger.Info("peer erased tail", "text", text)
		}
	case "ctrl+r":
		for _, ed := range []*editor.Editor{m.rt.youEd, m.rt.peerEd} {
			if err := ed.Resync(); err != nil {
				m.rt.logger.Warn("resync failed", "error", err)
			}
		}
	default:
		m.you, _ = m.you.Update(msg)
	}
	return m.refresh(editor.ChangedMsg{}), nil
}

func (m appModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft &&
		msg.Y == m.buttonRow && msg.X >= 0 && msg.X < lipgloss.Width(m.button()) {
		m.rt.gen.Toggle()
		return m, nil
	}
	if !m.ready {
		return m, nil
	}
	// Pane content starts below the border and the title line.
	local := msg
	local.X -= 1
	local.Y -= m.panesTop + 2
	var cmd tea.Cmd
	m.you, cmd = m.you.Update(local)
	return m.refresh(editor.ChangedMsg{}), cmd
}

func (m appModel) refresh(msg editor.ChangedMsg) appModel {
	if !m.ready {
		return m
	}
	m.you, _ = m.you.Update(msg)
	m.peer, _ = m.peer.Update(msg)
	return m
}

func (m appModel) button() string {
	if m.rt.gen.State() == typing.Running {
		return buttonOnStyle.Render(buttonLabel)
	}
	return buttonStyle.Render(buttonLabel)
}

func (m appModel) layout() appModel {
	m.buttonRow = lipgloss.Height(intro) + 1
	m.panesTop = m.buttonRow + 2
	if !m.ready || m.width == 0 {
		return m
	}
	// Two bordered panes side by side, then status and help lines.
	m.paneWidth = max((m.width-1)/2-2, 1)
	paneHeight := max(m.height-m.panesTop-2-1-2, 1)
	m.you = m.you.SetSize(m.paneWidth, paneHeight)
	m.peer = m.peer.SetSize(m.paneWidth, paneHeight)
	return m
}

func (m appModel) View() string {
	if !m.ready {
		if m.status != "" {
			return loadingText + "\n" + warnStyle.Render(m.status)
		}
		return loadingText
	}

	var sb strings.Builder
	sb.WriteString(intro)
	sb.WriteString("\n\n")
	sb.WriteString(m.button())
	fmt.Fprintf(&sb, "  typing: %s  ticks: %d\n\n", m.rt.gen.State(), m.rt.gen.Ticks())

	server := m.rt.you.Document().Snapshot()
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.pane("you", m.rt.youEd, m.you, server.Text),
		" ",
		m.pane("peer", m.rt.peerEd, m.peer, server.Text),
	)
	sb.WriteString(panes)
	sb.WriteString("\n")

	status := fmt.Sprintf("server seq %d, %d chars", server.Seq, len([]rune(server.Text)))
	if m.status != "" {
		style := helpStyle
		if m.statusLevel >= slog.LevelWarn {
			style = warnStyle
		}
		status += "  " + style.Render(m.status)
	}
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("ctrl+t typing • ctrl+x peer deletes • ctrl+r re-sync • esc quit"))
	return sb.String()
}

func (m appModel) pane(name string, ed *editor.Editor, view editor.Model, server string) string {
	state := okStyle.Render("in sync")
	if ed.Text() != server {
		state = warnStyle.Render("diverged")
	}
	title := titleStyle.Render(name) + " " + state
	return paneStyle.Render(title + "\n" + view.View())
}
