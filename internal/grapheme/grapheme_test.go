package grapheme

import "testing"

const family = "\U0001F468\u200d\U0001F469\u200d\U0001F467\u200d\U0001F466"

func TestSplitAndCount_MultiRuneGraphemes(t *testing.T) {
	text := "a" + "e\u0301" + family + "b"
	got := Split(text)
	if len(got) != 4 {
		t.Fatalf("split len=%d, want %d", len(got), 4)
	}
	if got[1] != "e\u0301" {
		t.Fatalf("split[1]=%q, want %q", got[1], "e\u0301")
	}
	if got[2] != family {
		t.Fatalf("split[2]=%q, want family emoji", got[2])
	}
	if c := Count(text); c != 4 {
		t.Fatalf("count=%d, want %d", c, 4)
	}
	if got, want := Join(got), text; got != want {
		t.Fatalf("join=%q, want %q", got, want)
	}
}

func TestRuneCount(t *testing.T) {
	if got, want := RuneCount(Split("ae\u0301")), 3; got != want {
		t.Fatalf("rune count=%d, want %d", got, want)
	}
	if got := RuneCount(nil); got != 0 {
		t.Fatalf("rune count of nil=%d, want 0", got)
	}
}

func TestWidth(t *testing.T) {
	cases := []struct {
		cluster string
		want    int
	}{
		{cluster: "a", want: 1},
		{cluster: "世", want: 2},
		{cluster: "\t", want: 0},
		{cluster: "", want: 0},
	}
	for _, tc := range cases {
		if got := Width(tc.cluster); got != tc.want {
			t.Fatalf("Width(%q)=%d, want %d", tc.cluster, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		cluster string
		want    Class
	}{
		{cluster: "\t", want: ClassSpace},
		{cluster: " ", want: ClassSpace},
		{cluster: "!", want: ClassPunct},
		{cluster: "a", want: ClassWord},
		{cluster: "e\u0301", want: ClassWord},
	}
	for _, tc := range cases {
		if got := Classify(tc.cluster); got != tc.want {
			t.Fatalf("Classify(%q)=%v, want %v", tc.cluster, got, tc.want)
		}
	}
}
