package buffer

// VersionMismatchMode decides what ApplyRemote does when BaseVersion does not
// match the buffer version.
type VersionMismatchMode uint8

const (
	VersionMismatchReject VersionMismatchMode = iota
	VersionMismatchForceApply
)

// RemoteEdit is an edit produced by another replica.
type RemoteEdit struct {
	Range Range
	// Span, when set, locates the edit by rune offsets in the document as it
	// stands when this edit is reached. Range is ignored.
	Span *RuneSpan
	Text string
	OpID string
}

type ApplyRemoteOptions struct {
	BaseVersion         uint64
	ClampPolicy         ConvertPolicy
	VersionMismatchMode VersionMismatchMode
}

// RemapStatus reports what happened to a tracked point.
type RemapStatus uint8

const (
	RemapUnchanged RemapStatus = iota
	RemapMoved
	// RemapClamped means the point sat inside a replaced range and was pushed
	// to the end of the replacement.
	RemapClamped
	// RemapInvalidated applies to selection endpoints when the selection
	// collapsed and was cleared.
	RemapInvalidated
)

func (s RemapStatus) String() string {
	switch s {
	case RemapMoved:
		return "moved"
	case RemapClamped:
		return "clamped"
	case RemapInvalidated:
		return "invalidated"
	default:
		return "unchanged"
	}
}

type RemapPoint struct {
	Before Pos
	After  Pos
	Status RemapStatus
}

type RemapReport struct {
	Cursor   RemapPoint
	SelStart RemapPoint
	SelEnd   RemapPoint
}

type ApplyRemoteResult struct {
	Change Change
	Remap  RemapReport
}

// ApplyRemote applies edits in order and remaps the cursor and selection
// through them. The batch is atomic: if any edit is rejected by the clamp
// policy nothing changes. changed is false for rejected and no-op batches,
// and the result is then the zero value.
func (b *Buffer) ApplyRemote(edits []RemoteEdit, opt ApplyRemoteOptions) (res ApplyRemoteResult, changed bool) {
	if !opt.ClampPolicy.valid() {
		return ApplyRemoteResult{}, false
	}
	switch opt.VersionMismatchMode {
	case VersionMismatchReject:
		if opt.BaseVersion != b.version {
			return ApplyRemoteResult{}, false
		}
	case VersionMismatchForceApply:
	default:
		return ApplyRemoteResult{}, false
	}
	if len(edits) == 0 {
		return ApplyRemoteResult{}, false
	}

	savedLines := b.lines
	change := b.beginChange(ChangeSourceRemote)

	selBefore, selOK := b.Selection()
	cursor := tracked{pos: b.cursor}
	selStart := tracked{pos: selBefore.Start}
	selEnd := tracked{pos: selBefore.End}

	for _, e := range edits {
		r, ok := b.resolveRemoteRange(e, opt.ClampPolicy)
		if !ok {
			b.lines = savedLines
			return ApplyRemoteResult{}, false
		}
		_, applied, edited := b.replaceRange(r, e.Text)
		if !edited {
			continue
		}
		change.addAppliedEdit(applied)
		cursor.remap(applied)
		if selOK {
			selStart.remap(applied)
			selEnd.remap(applied)
		}
	}
	if len(change.appliedEdits) == 0 {
		return ApplyRemoteResult{}, false
	}

	res.Remap.Cursor = cursor.point(change.cursorBefore)
	b.cursor = b.clampPos(res.Remap.Cursor.After)
	res.Remap.Cursor.After = b.cursor

	if selOK {
		res.Remap.SelStart = selStart.point(selBefore.Start)
		res.Remap.SelEnd = selEnd.point(selBefore.End)
		if res.Remap.SelStart.After == res.Remap.SelEnd.After {
			res.Remap.SelStart.Status = RemapInvalidated
			res.Remap.SelEnd.Status = RemapInvalidated
			b.sel = selectionState{}
		} else {
			// Keep the original direction of the selection.
			anchor, end := res.Remap.SelStart.After, res.Remap.SelEnd.After
			if b.sel.anchor != selBefore.Start {
				anchor, end = end, anchor
			}
			b.sel = selectionState{active: true, anchor: anchor, end: end}
		}
	}

	b.version++
	res.Change = b.commitChange(change)
	return res, true
}

func (b *Buffer) resolveRemoteRange(e RemoteEdit, p ConvertPolicy) (Range, bool) {
	if e.Span != nil {
		start, ok := b.PosFromRuneOffset(e.Span.Start, p)
		if !ok {
			return Range{}, false
		}
		end, ok := b.PosFromRuneOffset(e.Span.End, p)
		if !ok {
			return Range{}, false
		}
		return NormalizeRange(Range{Start: start, End: end}), true
	}
	clamped := ClampRange(e.Range, len(b.lines), b.lineLen)
	if p.ClampMode == OffsetError && clamped != e.Range {
		return Range{}, false
	}
	return NormalizeRange(clamped), true
}

type tracked struct {
	pos     Pos
	clamped bool
}

// remap moves t through one applied edit. Points before or at the edit start
// stay; points inside the replaced range go to the end of the replacement;
// points at or after the range end shift by the edit's delta.
func (t *tracked) remap(e AppliedEdit) {
	r := e.RangeBefore
	p := t.pos
	switch {
	case ComparePos(p, r.Start) <= 0:
		return
	case ComparePos(p, r.End) < 0:
		t.pos = e.RangeAfter.End
		t.clamped = true
	case p.Row == r.End.Row:
		t.pos = Pos{
			Row:         e.RangeAfter.End.Row,
			GraphemeCol: e.RangeAfter.End.GraphemeCol + p.GraphemeCol - r.End.GraphemeCol,
		}
	default:
		t.pos = Pos{
			Row:         p.Row + e.RangeAfter.End.Row - r.End.Row,
			GraphemeCol: p.GraphemeCol,
		}
	}
}

func (t tracked) point(before Pos) RemapPoint {
	out := RemapPoint{Before: before, After: t.pos}
	switch {
	case t.clamped:
		out.Status = RemapClamped
	case t.pos != before:
		out.Status = RemapMoved
	}
	return out
}
