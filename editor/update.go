package editor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iw2rmb/desync/buffer"
)

func (m *Model) updateKey(msg tea.KeyMsg) {
	if !m.focused || m.ed == nil {
		return
	}

	// Paste events should always insert literal text and never trigger shortcuts.
	if msg.Type == tea.KeyRunes && msg.Paste && len(msg.Runes) > 0 {
		m.edit(func(b *buffer.Buffer) { b.InsertText(string(msg.Runes)) })
		return
	}

	km := m.cfg.KeyMap
	move := func(unit buffer.MoveUnit, dir buffer.MoveDir, extend bool) {
		m.edit(func(b *buffer.Buffer) { b.Move(buffer.Move{Unit: unit, Dir: dir, Extend: extend}) })
	}

	switch {
	case key.Matches(msg, km.Left):
		move(buffer.MoveGrapheme, buffer.DirLeft, false)
	case key.Matches(msg, km.Right):
		move(buffer.MoveGrapheme, buffer.DirRight, false)
	case key.Matches(msg, km.Up):
		move(buffer.MoveGrapheme, buffer.DirUp, false)
	case key.Matches(msg, km.Down):
		move(buffer.MoveGrapheme, buffer.DirDown, false)

	case key.Matches(msg, km.ShiftLeft):
		move(buffer.MoveGrapheme, buffer.DirLeft, true)
	case key.Matches(msg, km.ShiftRight):
		move(buffer.MoveGrapheme, buffer.DirRight, true)
	case key.Matches(msg, km.ShiftUp):
		move(buffer.MoveGrapheme, buffer.DirUp, true)
	case key.Matches(msg, km.ShiftDown):
		move(buffer.MoveGrapheme, buffer.DirDown, true)

	case key.Matches(msg, km.WordLeft):
		move(buffer.MoveWord, buffer.DirLeft, false)
	case key.Matches(msg, km.WordRight):
		move(buffer.MoveWord, buffer.DirRight, false)
	case key.Matches(msg, km.ShiftWordLeft):
		move(buffer.MoveWord, buffer.DirLeft, true)
	case key.Matches(msg, km.ShiftWordRight):
		move(buffer.MoveWord, buffer.DirRight, true)

	case key.Matches(msg, km.Home):
		move(buffer.MoveLine, buffer.DirHome, false)
	case key.Matches(msg, km.End):
		move(buffer.MoveLine, buffer.DirEnd, false)
	case key.Matches(msg, km.SelectAll):
		m.edit(func(b *buffer.Buffer) { b.SetSelection(buffer.Range{End: b.End()}) })

	case key.Matches(msg, km.Backspace):
		m.edit((*buffer.Buffer).DeleteBackward)
	case key.Matches(msg, km.Delete):
		m.edit((*buffer.Buffer).DeleteForward)
	case key.Matches(msg, km.Enter):
		m.edit((*buffer.Buffer).InsertNewline)

	default:
		if msg.Type == tea.KeyTab {
			m.edit(func(b *buffer.Buffer) { b.InsertText("\t") })
			return
		}
		if msg.Type == tea.KeySpace {
			m.edit(func(b *buffer.Buffer) { b.InsertText(" ") })
			return
		}
		if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 && !msg.Alt {
			m.edit(func(b *buffer.Buffer) { b.InsertText(string(msg.Runes)) })
		}
	}
}

// edit errors only when the editor is closed or the provider refused the
// patch; the hooks already report both, so the view ignores them.
func (m *Model) edit(fn func(*buffer.Buffer)) {
	_ = m.ed.Edit(fn)
}

func (m *Model) updateMouse(msg tea.MouseMsg) tea.Cmd {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	if !m.focused || m.ed == nil {
		return cmd
	}

	// Only handle selection/cursor changes for left button interactions.
	switch msg.Action { //nolint:exhaustive
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !m.mouseInBounds(msg.X, msg.Y) {
			return cmd
		}
		p := m.screenToDocPos(msg.X, msg.Y)
		if msg.Shift {
			anchor := m.lastCursor
			m.edit(func(b *buffer.Buffer) {
				if r, ok := b.Selection(); ok {
					anchor = r.Start
				}
				b.SetSelection(buffer.Range{Start: anchor, End: p})
			})
			m.mouseAnchor = anchor
		} else {
			m.mouseAnchor = p
			m.edit(func(b *buffer.Buffer) {
				b.ClearSelection()
				b.SetCursor(p)
			})
		}
		m.mouseDragging = true

	case tea.MouseActionMotion:
		if !m.mouseDragging {
			return cmd
		}
		x, y := m.clampMouseToBounds(msg.X, msg.Y)
		p := m.screenToDocPos(x, y)
		anchor := m.mouseAnchor
		m.edit(func(b *buffer.Buffer) {
			if anchor == p {
				b.ClearSelection()
				b.SetCursor(p)
				return
			}
			b.SetSelection(buffer.Range{Start: anchor, End: p})
		})

	case tea.MouseActionRelease:
		m.mouseDragging = false
	}
	return cmd
}

func (m Model) mouseInBounds(x, y int) bool {
	if m.viewport.Width <= 0 || m.viewport.Height <= 0 {
		return false
	}
	return x >= 0 && x < m.viewport.Width && y >= 0 && y < m.viewport.Height
}

func (m Model) clampMouseToBounds(x, y int) (int, int) {
	if m.viewport.Width > 0 {
		x = clampInt(x, 0, m.viewport.Width-1)
	}
	if m.viewport.Height > 0 {
		y = clampInt(y, 0, m.viewport.Height-1)
	}
	return x, y
}
