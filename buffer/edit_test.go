package buffer

import "testing"

func TestInsertText_AtCursor(t *testing.T) {
	b := New("hello")
	b.SetCursor(Pos{GraphemeCol: 5})
	for i := 0; i < 3; i++ {
		b.InsertText("a")
	}
	if got, want := b.Text(), "helloaaa"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{GraphemeCol: 8}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}

	ch, ok := b.LastChange()
	if !ok {
		t.Fatalf("expected last change")
	}
	if got, want := ch.Source, ChangeSourceLocal; got != want {
		t.Fatalf("source=%v, want %v", got, want)
	}
	if got, want := len(ch.AppliedEdits), 1; got != want {
		t.Fatalf("applied edits=%d, want %d", got, want)
	}
	if got, want := ch.AppliedEdits[0].OffsetBefore, 7; got != want {
		t.Fatalf("offset before=%d, want %d", got, want)
	}
}

func TestInsertText_ReplacesSelection(t *testing.T) {
	b := New("hello world")
	b.SetSelection(Range{Start: Pos{GraphemeCol: 0}, End: Pos{GraphemeCol: 5}})
	b.InsertText("bye")

	if got, want := b.Text(), "bye world"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if _, ok := b.Selection(); ok {
		t.Fatalf("expected selection cleared")
	}
	ch, _ := b.LastChange()
	if got, want := ch.AppliedEdits[0].DeletedText, "hello"; got != want {
		t.Fatalf("deleted=%q, want %q", got, want)
	}
}

func TestInsertText_MultilineMovesCursorToLastLine(t *testing.T) {
	b := New("ab")
	b.SetCursor(Pos{GraphemeCol: 1})
	b.InsertText("x\ny\nzz")

	if got, want := b.Text(), "ax\ny\nzzb"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{Row: 2, GraphemeCol: 2}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}
}

func TestInsertText_EmptyIsNoOp(t *testing.T) {
	b := New("abc")
	v := b.Version()
	b.InsertText("")
	if got := b.Version(); got != v {
		t.Fatalf("version=%d, want %d", got, v)
	}
	if _, ok := b.LastChange(); ok {
		t.Fatalf("expected no last change")
	}
}

func TestDeleteBackward(t *testing.T) {
	b := New("ab\ncd")
	b.SetCursor(Pos{Row: 1, GraphemeCol: 0})

	b.DeleteBackward()
	if got, want := b.Text(), "abcd"; got != want {
		t.Fatalf("text after join=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{Row: 0, GraphemeCol: 2}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}

	b.DeleteBackward()
	if got, want := b.Text(), "acd"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}

	b.SetCursor(Pos{})
	v := b.Version()
	b.DeleteBackward()
	if got := b.Version(); got != v {
		t.Fatalf("backspace at doc start changed version")
	}
}

func TestDeleteForward(t *testing.T) {
	b := New("ab\ncd")
	b.SetCursor(Pos{Row: 0, GraphemeCol: 2})

	b.DeleteForward()
	if got, want := b.Text(), "abcd"; got != want {
		t.Fatalf("text after join=%q, want %q", got, want)
	}
	b.DeleteForward()
	if got, want := b.Text(), "abd"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}

	b.SetCursor(b.End())
	v := b.Version()
	b.DeleteForward()
	if got := b.Version(); got != v {
		t.Fatalf("delete at doc end changed version")
	}
}

func TestDeleteSelection_Multiline(t *testing.T) {
	b := New("one\ntwo\nthree")
	b.SetSelection(Range{
		Start: Pos{Row: 0, GraphemeCol: 1},
		End:   Pos{Row: 2, GraphemeCol: 2},
	})
	b.DeleteBackward()

	if got, want := b.Text(), "oree"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	ch, _ := b.LastChange()
	if got, want := ch.AppliedEdits[0].DeletedText, "ne\ntwo\nth"; got != want {
		t.Fatalf("deleted=%q, want %q", got, want)
	}
}

func TestDelete_GraphemeCluster(t *testing.T) {
	b := New("a\U0001F44D\U0001F3FDb")
	b.SetCursor(Pos{GraphemeCol: 2})
	b.DeleteBackward()
	if got, want := b.Text(), "ab"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
}

func TestApply_SequentialEdits(t *testing.T) {
	b := New("abcdef")
	b.Apply(
		TextEdit{Range: Range{Start: Pos{GraphemeCol: 0}, End: Pos{GraphemeCol: 1}}, Text: "X"},
		TextEdit{Range: Range{Start: Pos{GraphemeCol: 5}, End: Pos{GraphemeCol: 6}}, Text: "YY"},
	)
	if got, want := b.Text(), "XbcdeYY"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	if got, want := b.Cursor(), (Pos{GraphemeCol: 7}); got != want {
		t.Fatalf("cursor=%v, want %v", got, want)
	}
	ch, _ := b.LastChange()
	if got, want := len(ch.AppliedEdits), 2; got != want {
		t.Fatalf("applied edits=%d, want %d", got, want)
	}
	if got, want := ch.AppliedEdits[1].OffsetBefore, 5; got != want {
		t.Fatalf("second offset=%d, want %d", got, want)
	}
}

func TestApply_NoEffectiveEditKeepsVersion(t *testing.T) {
	b := New("abc")
	v := b.Version()
	b.Apply(TextEdit{Range: Range{Start: Pos{GraphemeCol: 0}, End: Pos{GraphemeCol: 1}}, Text: "a"})
	if got := b.Version(); got != v {
		t.Fatalf("version=%d, want %d", got, v)
	}
}
