package editor

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/iw2rmb/desync/buffer"
	"github.com/iw2rmb/desync/room"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRE.ReplaceAllString(s, "") }

func TestModel_SetSizeAffectsViewHeight(t *testing.T) {
	m := NewModel(Open(nil, Config{Text: "a\nb\nc"}), Config{})
	m = m.Blur()

	m = m.SetSize(20, 2)
	if got := lipgloss.Height(m.View()); got != 2 {
		t.Fatalf("height after SetSize(20,2): got %d, want %d", got, 2)
	}

	m = m.SetSize(20, 4)
	if got := lipgloss.Height(m.View()); got != 4 {
		t.Fatalf("height after SetSize(20,4): got %d, want %d", got, 4)
	}
}

func TestView_SnapshotFixedSize(t *testing.T) {
	m := NewModel(Open(nil, Config{Text: "one\ntwo\nthree\nfour\nfive"}), Config{ShowLineNums: true})
	m = m.Blur()
	m = m.SetSize(8, 3)

	got := strings.Split(m.View(), "\n")
	if len(got) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(got))
	}
	for i := range got {
		got[i] = strings.TrimRight(stripANSI(got[i]), " ")
	}

	want := []string{
		"1 one",
		"2 two",
		"3 three",
	}
	if fmt.Sprintf("%q", got) != fmt.Sprintf("%q", want) {
		t.Fatalf("unexpected view:\n got: %q\nwant: %q", got, want)
	}
}

func TestRender_LineNumberAlignment_1To120(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("x")
	}

	m := NewModel(Open(nil, Config{Text: sb.String()}), Config{ShowLineNums: true})
	m = m.Blur()
	m = m.SetSize(10, 120)

	lines := strings.Split(m.View(), "\n")
	if len(lines) != 120 {
		t.Fatalf("expected 120 lines, got %d", len(lines))
	}

	digits := 3
	for i, line := range lines {
		wantPrefix := fmt.Sprintf("%*d ", digits, i+1)
		if !strings.HasPrefix(stripANSI(line), wantPrefix) {
			t.Fatalf("line %d prefix: got %q, want prefix %q", i+1, line, wantPrefix)
		}
	}
}

func TestRender_CursorAndSelection(t *testing.T) {
	st := Style{
		Text:      lipgloss.NewStyle(),
		Cursor:    lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1),
		Selection: lipgloss.NewStyle().PaddingLeft(1),
	}

	m := NewModel(Open(nil, Config{Text: "ab"}), Config{Style: st})
	if got, want := m.renderContent(), " a b"; got != want {
		t.Fatalf("cursor at start:\n got: %q\nwant: %q", got, want)
	}

	_ = m.Editor().Edit(func(b *buffer.Buffer) { b.SetCursor(buffer.Pos{GraphemeCol: 2}) })
	if got, want := m.renderContent(), "ab   "; got != want {
		t.Fatalf("cursor at EOL:\n got: %q\nwant: %q", got, want)
	}

	_ = m.Editor().Edit(func(b *buffer.Buffer) {
		b.SetSelection(buffer.Range{Start: buffer.Pos{GraphemeCol: 0}, End: buffer.Pos{GraphemeCol: 1}})
	})
	if got, want := m.renderContent(), " a b "; got != want {
		t.Fatalf("selection:\n got: %q\nwant: %q", got, want)
	}
}

func TestRender_TabsExpandToStops(t *testing.T) {
	m := NewModel(Open(nil, Config{Text: "a\tb"}), Config{Style: Style{}})
	m = m.Blur()
	if got, want := m.renderContent(), "a   b"; got != want {
		t.Fatalf("render=%q, want %q", got, want)
	}
}

func TestRender_CursorProducesANSIWithColorProfile(t *testing.T) {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)

	m := NewModel(Open(nil, Config{Text: "ab"}), Config{Style: Style{Cursor: r.NewStyle().Reverse(true)}})
	got := m.renderContent()
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected ANSI cursor styling, got %q", got)
	}
	if got, want := stripANSI(got), "ab"; got != want {
		t.Fatalf("stripped=%q, want %q", got, want)
	}
}

func TestUpdate_KeysEditAndSubmit(t *testing.T) {
	doc := newFakeDoc("hello")
	m := NewModel(Open(doc, DefaultConfig()), Config{})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftLeft})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftLeft})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p!")})

	if got, want := m.Editor().Text(), "help!"; got != want {
		t.Fatalf("text=%q, want %q", got, want)
	}
	var got []room.Edit
	for _, p := range doc.patches() {
		got = append(got, p.Edits...)
	}
	want := []room.Edit{{Start: 3, End: 5}, {Start: 3, End: 3, Text: "p!"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("edits=%v, want %v", got, want)
	}
}

func TestUpdate_ChangedMsgRefreshesView(t *testing.T) {
	doc := newFakeDoc("abc")
	m := NewModel(Open(doc, DefaultConfig()), Config{Style: Style{}})
	m = m.Blur().SetSize(10, 1)

	doc.deliver(room.Edit{Start: 3, End: 3, Text: "def"})
	m, _ = m.Update(ChangedMsg{})
	if got, want := strings.TrimRight(m.View(), " "), "abcdef"; got != want {
		t.Fatalf("view=%q, want %q", got, want)
	}
}

func TestUpdate_MouseClickAndDragSelect(t *testing.T) {
	m := NewModel(Open(nil, Config{Text: "hello world"}), Config{ShowLineNums: true})
	m = m.SetSize(20, 3)

	// Gutter is "1 ", so x=2 is column 0.
	m, _ = m.Update(tea.MouseMsg{X: 5, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got, want := m.Editor().Cursor(), (buffer.Pos{GraphemeCol: 3}); got != want {
		t.Fatalf("cursor after click=%v, want %v", got, want)
	}

	m, _ = m.Update(tea.MouseMsg{X: 30, Y: 0, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m, _ = m.Update(tea.MouseMsg{X: 30, Y: 0, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	var sel buffer.Range
	var ok bool
	m.Editor().View(func(b *buffer.Buffer) { sel, ok = b.Selection() })
	want := buffer.Range{Start: buffer.Pos{GraphemeCol: 3}, End: buffer.Pos{GraphemeCol: 11}}
	if !ok || sel != want {
		t.Fatalf("selection=%v ok=%v, want %v", sel, ok, want)
	}
}
