package buffer

import "unicode/utf8"

type OffsetClampMode uint8

const (
	// OffsetError rejects offsets outside the document or inside a grapheme
	// cluster.
	OffsetError OffsetClampMode = iota
	// OffsetClamp clamps offsets into the document and snaps offsets inside a
	// cluster to the cluster start.
	OffsetClamp
)

type NewlineMode uint8

const (
	NewlineAsSingleRune NewlineMode = iota
)

type ConvertPolicy struct {
	ClampMode   OffsetClampMode
	NewlineMode NewlineMode
}

func (p ConvertPolicy) valid() bool {
	return (p.ClampMode == OffsetError || p.ClampMode == OffsetClamp) &&
		p.NewlineMode == NewlineAsSingleRune
}

// RuneLen returns the document length in runes, newlines included.
func (b *Buffer) RuneLen() int {
	total := 0
	for row, line := range b.lines {
		for _, cluster := range line {
			total += utf8.RuneCountInString(cluster)
		}
		if row < len(b.lines)-1 {
			total++
		}
	}
	return total
}

func (b *Buffer) PosFromRuneOffset(off int, p ConvertPolicy) (Pos, bool) {
	if !p.valid() {
		return Pos{}, false
	}
	if off < 0 || off > b.RuneLen() {
		if p.ClampMode == OffsetError {
			return Pos{}, false
		}
		off = clampInt(off, 0, b.RuneLen())
	}
	return b.runeOffsetToPos(off, p.ClampMode == OffsetClamp)
}

func (b *Buffer) RuneOffsetFromPos(pos Pos, p ConvertPolicy) (int, bool) {
	if !p.valid() {
		return 0, false
	}
	clamped := b.clampPos(pos)
	if clamped != pos && p.ClampMode == OffsetError {
		return 0, false
	}
	return b.posToRuneOffset(clamped), true
}

// runeOffsetToPos walks the document to off. With snap set, an offset that
// falls inside a cluster resolves to the cluster start.
func (b *Buffer) runeOffsetToPos(off int, snap bool) (Pos, bool) {
	cur := 0
	for row, line := range b.lines {
		if off == cur {
			return Pos{Row: row}, true
		}
		for col, cluster := range line {
			next := cur + utf8.RuneCountInString(cluster)
			if off > cur && off < next {
				if snap {
					return Pos{Row: row, GraphemeCol: col}, true
				}
				return Pos{}, false
			}
			cur = next
			if off == cur {
				return Pos{Row: row, GraphemeCol: col + 1}, true
			}
		}
		if row < len(b.lines)-1 {
			cur++
		}
	}
	return Pos{}, false
}

func (b *Buffer) posToRuneOffset(pos Pos) int {
	off := 0
	for row := 0; row < pos.Row; row++ {
		for _, cluster := range b.lines[row] {
			off += utf8.RuneCountInString(cluster)
		}
		off++
	}
	for col := 0; col < pos.GraphemeCol; col++ {
		off += utf8.RuneCountInString(b.lines[pos.Row][col])
	}
	return off
}
