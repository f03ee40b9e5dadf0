package editor

import (
	"github.com/iw2rmb/desync/buffer"
)

// screenToDocPos maps viewport-local mouse coordinates to a document position.
//
// Coordinates are in terminal cells and are relative to the editor's viewport:
// (0,0) is the top-left of the visible content region. Gutter clicks map to
// column 0; positions past the end of a line map to its end.
func (m *Model) screenToDocPos(x, y int) buffer.Pos {
	if m.ed == nil {
		return buffer.Pos{}
	}

	var pos buffer.Pos
	m.ed.View(func(b *buffer.Buffer) {
		row := clampInt(m.viewport.YOffset+y, 0, b.LineCount()-1)
		visualX := x - m.gutterWidth(b.LineCount())
		if visualX <= 0 {
			pos = buffer.Pos{Row: row}
			return
		}

		line := b.Line(row)
		cell := 0
		for col, g := range line {
			w := graphemeCellWidth(g, cell)
			// A click on the right half of a wide cluster lands after it.
			if visualX < cell+w {
				if visualX-cell >= (w+1)/2 && w > 1 {
					col++
				}
				pos = buffer.Pos{Row: row, GraphemeCol: col}
				return
			}
			cell += w
		}
		pos = buffer.Pos{Row: row, GraphemeCol: len(line)}
	})
	return pos
}
