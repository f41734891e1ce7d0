package analysis

import (
	"reflect"
	"testing"
)

func TestAnalyzeBasic(t *testing.T) {
	a := New([]string{"the", "on"}, 1)
	got := a.Analyze("the cat sat on the mat")
	want := []Token{
		{Term: "cat", Position: 1},
		{Term: "sat", Position: 2},
		{Term: "mat", Position: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %v, want %v", got, want)
	}
}

func TestPositionsCountRawStream(t *testing.T) {
	// Positions are assigned over the raw token stream, so changing the
	// stopword list does not shift surviving positions.
	text := "the quick brown fox"
	withStops := New([]string{"the"}, 1).Analyze(text)
	noStops := New(nil, 1).Analyze(text)
	if withStops[0].Term != "quick" || withStops[0].Position != 1 {
		t.Errorf("got %v", withStops[0])
	}
	if noStops[1].Term != "quick" || noStops[1].Position != 1 {
		t.Errorf("got %v", noStops[1])
	}
}

func TestAnalyzeLowercaseAndBoundaries(t *testing.T) {
	a := New(nil, 1)
	got := a.Analyze("Hello, World!  42-foo_bar")
	want := []Token{
		{Term: "hello", Position: 0},
		{Term: "world", Position: 1},
		{Term: "42", Position: 2},
		{Term: "foo", Position: 3},
		{Term: "bar", Position: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze = %v, want %v", got, want)
	}
}

func TestAnalyzeEmptyAndNonText(t *testing.T) {
	a := New(nil, 1)
	for _, text := range []string{"", "   ", "!!!...---", "\x00\x01"} {
		if got := a.Analyze(text); len(got) != 0 {
			t.Errorf("Analyze(%q) = %v, want empty", text, got)
		}
	}
}

func TestMinTokenLength(t *testing.T) {
	a := New(nil, 3)
	got := a.Analyze("a bb ccc dddd")
	if len(got) != 2 || got[0].Term != "ccc" || got[1].Term != "dddd" {
		t.Errorf("Analyze = %v", got)
	}
	// Dropped short tokens still consume positions.
	if got[0].Position != 2 {
		t.Errorf("position = %d, want 2", got[0].Position)
	}
}

func TestMinTokenLengthCountsRunes(t *testing.T) {
	// Length is measured in runes, so multibyte characters are not
	// over-counted against the minimum.
	a := New(nil, 2)
	got := a.Analyze("猫 ab café x")
	if len(got) != 2 || got[0].Term != "ab" || got[1].Term != "café" {
		t.Errorf("Analyze = %v", got)
	}
}

func TestNormalizeDedupes(t *testing.T) {
	a := New([]string{"the"}, 1)
	got := a.Normalize("The CAT the cat dog")
	want := []string{"cat", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestSpans(t *testing.T) {
	text := "cat, mat"
	spans := Spans(text)
	if len(spans) != 2 {
		t.Fatalf("got %d spans", len(spans))
	}
	if text[spans[0].Start:spans[0].End] != "cat" {
		t.Errorf("span 0 = %q", text[spans[0].Start:spans[0].End])
	}
	if text[spans[1].Start:spans[1].End] != "mat" {
		t.Errorf("span 1 = %q", text[spans[1].Start:spans[1].End])
	}
}

func TestSpansMatchPositions(t *testing.T) {
	a := New([]string{"on"}, 1)
	text := "Cat on mat"
	spans := Spans(text)
	for _, tok := range a.Analyze(text) {
		sp := spans[tok.Position]
		raw := text[sp.Start:sp.End]
		if tok.Term != "cat" && tok.Term != "mat" {
			t.Errorf("unexpected term %q", tok.Term)
		}
		if raw != "Cat" && raw != "mat" {
			t.Errorf("span text %q does not match term %q", raw, tok.Term)
		}
	}
}
