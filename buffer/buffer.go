package buffer

import (
	"strings"

	"github.com/iw2rmb/desync/internal/grapheme"
)

type selectionState struct {
	active bool
	anchor Pos
	end    Pos
}

// Buffer holds text, cursor, and selection. It is not safe for concurrent
// use; the editor package serializes access.
type Buffer struct {
	lines   [][]string
	version uint64

	cursor Pos
	sel    selectionState

	lastChange    Change
	hasLastChange bool

	onChange func(Change)
}

func New(text string) *Buffer {
	return &Buffer{lines: splitLines(text)}
}

// SetOnChange registers fn to receive every committed text change, local or
// remote. Passing nil removes it. fn must not mutate the buffer.
func (b *Buffer) SetOnChange(fn func(Change)) { b.onChange = fn }

func (b *Buffer) Text() string {
	return joinLines(b.lines)
}

// Version increments on every effective change, including cursor and
// selection moves.
func (b *Buffer) Version() uint64 { return b.version }

func (b *Buffer) Cursor() Pos { return b.cursor }

// LineCount returns the number of logical lines (at least 1).
func (b *Buffer) LineCount() int { return len(b.lines) }

// Line returns the grapheme clusters of row. The slice must not be modified.
func (b *Buffer) Line(row int) []string {
	if row < 0 || row >= len(b.lines) {
		return nil
	}
	return b.lines[row]
}

// End returns the position after the last grapheme of the document.
func (b *Buffer) End() Pos {
	last := len(b.lines) - 1
	return Pos{Row: last, GraphemeCol: len(b.lines[last])}
}

func (b *Buffer) SetCursor(p Pos) {
	next := b.clampPos(p)
	if next == b.cursor {
		return
	}
	b.cursor = next
	b.version++
}

func (b *Buffer) Selection() (Range, bool) {
	if !b.sel.active {
		return Range{}, false
	}
	r := NormalizeRange(Range{Start: b.sel.anchor, End: b.sel.end})
	if r.IsEmpty() {
		return Range{}, false
	}
	return r, true
}

// SetSelection selects r and moves the cursor to r.End, preserving direction.
func (b *Buffer) SetSelection(r Range) {
	clamped := ClampRange(r, len(b.lines), b.lineLen)
	if clamped.IsEmpty() {
		if b.sel.active || b.cursor != clamped.End {
			b.sel = selectionState{}
			b.cursor = clamped.End
			b.version++
		}
		return
	}
	next := selectionState{active: true, anchor: clamped.Start, end: clamped.End}
	if next == b.sel && b.cursor == clamped.End {
		return
	}
	b.sel = next
	b.cursor = clamped.End
	b.version++
}

func (b *Buffer) ClearSelection() {
	if !b.sel.active {
		return
	}
	b.sel = selectionState{}
	b.version++
}

func (b *Buffer) lineLen(row int) int {
	if row < 0 || row >= len(b.lines) {
		return 0
	}
	return len(b.lines[row])
}

func (b *Buffer) clampPos(p Pos) Pos {
	return ClampPos(p, len(b.lines), b.lineLen)
}

func splitLines(text string) [][]string {
	parts := strings.Split(text, "\n")
	lines := make([][]string, 0, len(parts))
	for _, s := range parts {
		lines = append(lines, grapheme.Split(s))
	}
	return lines
}

func joinLines(lines [][]string) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		for _, c := range line {
			sb.WriteString(c)
		}
	}
	return sb.String()
}
