package editor

import (
	"fmt"
	"strings"

	"github.com/iw2rmb/desync/buffer"
	graphemeutil "github.com/iw2rmb/desync/internal/grapheme"
)

const tabWidth = 4

func (m *Model) renderContent() string {
	if m.ed == nil {
		return ""
	}

	var out []string
	m.ed.View(func(b *buffer.Buffer) {
		cursor := b.Cursor()
		sel, selOK := b.Selection()
		n := b.LineCount()
		digitCount := 0
		if m.cfg.ShowLineNums {
			digitCount = gutterDigits(n)
		}

		out = make([]string, 0, n)
		for row := 0; row < n; row++ {
			var sb strings.Builder
			if m.cfg.ShowLineNums {
				numStyle := m.cfg.Style.LineNum
				if m.focused && row == cursor.Row {
					numStyle = m.cfg.Style.LineNumActive
				}
				sb.WriteString(numStyle.Render(fmt.Sprintf("%*d", digitCount, row+1)))
				sb.WriteString(m.cfg.Style.Gutter.Render(" "))
			}
			sb.WriteString(renderLine(m.cfg.Style, b.Line(row), row, cursor, m.focused, sel, selOK))
			out = append(out, sb.String())
		}
	})
	return strings.Join(out, "\n")
}

func renderLine(st Style, line []string, row int, cursor buffer.Pos, focused bool, sel buffer.Range, selOK bool) string {
	cursorCol := -1
	if focused && row == cursor.Row {
		cursorCol = clampInt(cursor.GraphemeCol, 0, len(line))
	}
	selStart, selEnd, hasSel := selectionColsForRow(sel, selOK, row, len(line))

	var sb strings.Builder
	cell := 0
	for col, g := range line {
		text := g
		w := graphemeCellWidth(g, cell)
		if g == "\t" {
			text = strings.Repeat(" ", w)
		}
		cell += w

		switch {
		case col == cursorCol:
			sb.WriteString(st.Cursor.Render(text))
		case hasSel && col >= selStart && col < selEnd:
			sb.WriteString(st.Selection.Render(text))
		default:
			sb.WriteString(st.Text.Render(text))
		}
	}
	// Cursor at EOL is rendered as a 1-cell placeholder space.
	if cursorCol == len(line) {
		sb.WriteString(st.Cursor.Render(" "))
	}
	return sb.String()
}

func selectionColsForRow(sel buffer.Range, ok bool, row, lineLen int) (start, end int, has bool) {
	if !ok {
		return 0, 0, false
	}
	sel = buffer.NormalizeRange(sel)
	if row < sel.Start.Row || row > sel.End.Row {
		return 0, 0, false
	}
	start, end = 0, lineLen
	if row == sel.Start.Row {
		start = clampInt(sel.Start.GraphemeCol, 0, lineLen)
	}
	if row == sel.End.Row {
		end = clampInt(sel.End.GraphemeCol, 0, lineLen)
	}
	return start, end, start < end
}

// graphemeCellWidth returns the terminal cells g occupies when it starts at
// visualCol.
func graphemeCellWidth(g string, visualCol int) int {
	if g == "\t" {
		return tabWidth - visualCol%tabWidth
	}
	return graphemeutil.Width(g)
}

func gutterDigits(lines int) int {
	if lines < 1 {
		lines = 1
	}
	return len(fmt.Sprint(lines))
}

func (m *Model) gutterWidth(lines int) int {
	if !m.cfg.ShowLineNums {
		return 0
	}
	return gutterDigits(lines) + 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
