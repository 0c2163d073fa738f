package script

import (
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func mustParse(t *testing.T, raw string, width float64) *Script {
	t.Helper()
	s, err := Parse(raw, CellMetrics{}, width)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return s
}

func TestParseWordOffsetsFollowAdvance(t *testing.T) {
	s := mustParse(t, "one two three", 0)

	words := s.Words()
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %d", len(words))
	}
	// line width: 3 + 1 + 3 + 1 + 5 = 13 cells, one row tall
	want := [][2]float64{{0, 4.0 / 13}, {4.0 / 13, 8.0 / 13}, {8.0 / 13, 1}}
	for i, w := range words {
		if !approx(w.Start, want[i][0]) || !approx(w.End, want[i][1]) {
			t.Errorf("word %d %q: got [%v, %v), want [%v, %v)", i, w.Text, w.Start, w.End, want[i][0], want[i][1])
		}
	}
	if s.EndOffset() != 1 {
		t.Errorf("EndOffset = %v, want 1", s.EndOffset())
	}
}

func TestParseWrapsToWidth(t *testing.T) {
	s := mustParse(t, "aaa bbb ccc", 7)

	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "aaa bbb" || lines[1].Text != "ccc" {
		t.Errorf("unexpected lines: %q, %q", lines[0].Text, lines[1].Text)
	}
	if lines[1].FirstWord != 2 || lines[1].NumWords != 1 {
		t.Errorf("line 1 word range = %d+%d, want 2+1", lines[1].FirstWord, lines[1].NumWords)
	}
	if s.EndOffset() != 2 {
		t.Errorf("EndOffset = %v, want 2", s.EndOffset())
	}
}

func TestParseOverlongWordGetsOwnLine(t *testing.T) {
	s := mustParse(t, "a extraordinarily b", 5)
	if got := len(s.Lines()); got != 3 {
		t.Fatalf("expected 3 lines, got %d", got)
	}
	if s.Lines()[1].Text != "extraordinarily" {
		t.Errorf("line 1 = %q", s.Lines()[1].Text)
	}
}

func TestParsePauseOnOwnParagraph(t *testing.T) {
	s := mustParse(t, "intro\n[PAUSE]\nmore", 0)

	lines := s.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !lines[1].Marker {
		t.Error("expected line 1 to be a marker row")
	}
	if m := s.Markers(); len(m) != 1 || m[0] != 1 {
		t.Errorf("markers = %v, want [1]", m)
	}
	if s.WordCount() != 2 {
		t.Errorf("WordCount = %d, want 2", s.WordCount())
	}
}

func TestParseInlinePauseBreaksLine(t *testing.T) {
	s := mustParse(t, "before[PAUSE]after", 0)

	lines := s.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Text != "before" || !lines[1].Marker || lines[2].Text != "after" {
		t.Errorf("unexpected layout: %+v", lines)
	}
}

func TestParsePauseIsCaseSensitive(t *testing.T) {
	s := mustParse(t, "[pause] [Pause] [PAUSE ]", 0)
	if len(s.Markers()) != 0 {
		t.Fatalf("expected no markers, got %v", s.Markers())
	}
	if s.WordCount() != 4 {
		t.Errorf("WordCount = %d, want 4", s.WordCount())
	}
}

func TestParseConsecutivePausesAreDistinct(t *testing.T) {
	s := mustParse(t, "a [PAUSE][PAUSE] b", 0)
	m := s.Markers()
	if len(m) != 2 || !(m[0] < m[1]) {
		t.Fatalf("markers = %v, want two increasing offsets", m)
	}
}

func TestParseNotes(t *testing.T) {
	s := mustParse(t, "Hello [[look up]] world\n\n[[smile]]\nNext", 0)

	notes := s.Notes()
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[0].Text != "look up" || notes[0].At != 0 {
		t.Errorf("note 0 = %+v", notes[0])
	}
	if notes[1].Text != "smile" || notes[1].At != 2 {
		t.Errorf("note 1 = %+v", notes[1])
	}
	if s.Lines()[0].Text != "Hello world" {
		t.Errorf("note text leaked into line: %q", s.Lines()[0].Text)
	}
	if s.WordCount() != 3 {
		t.Errorf("notes must not count as words: WordCount = %d", s.WordCount())
	}
	if tok := s.Tokens()[0]; tok.Kind != KindNote {
		t.Errorf("expected note to sort before the word at the same offset, got %v", tok.Kind)
	}
}

func TestParseNoteIsNonGreedy(t *testing.T) {
	s := mustParse(t, "[[a]] x [[b [PAUSE] c]] y", 0)

	notes := s.Notes()
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if notes[1].Text != "b [PAUSE] c" {
		t.Errorf("note 1 = %q", notes[1].Text)
	}
	if len(s.Markers()) != 0 {
		t.Error("a [PAUSE] inside a note must not become a marker")
	}
}

func TestParseUnterminatedNoteRecovers(t *testing.T) {
	s, err := Parse("Hello [[oops world [PAUSE] end", CellMetrics{}, 0)
	if s == nil {
		t.Fatal("expected a script even on parse error")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Offset != 6 {
		t.Errorf("ParseError.Offset = %d, want 6", perr.Offset)
	}

	var texts []string
	for _, w := range s.Words() {
		texts = append(texts, w.Text)
	}
	want := []string{"Hello", "[[oops", "world", "end"}
	if len(texts) != len(want) {
		t.Fatalf("words = %q, want %q", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Fatalf("words = %q, want %q", texts, want)
		}
	}
	if len(s.Markers()) != 1 {
		t.Errorf("markers after the bad delimiter should still parse, got %v", s.Markers())
	}
}

func TestParseStrayCloseIsLiteral(t *testing.T) {
	s := mustParse(t, "a ]] b", 0)
	if s.WordCount() != 3 || len(s.Notes()) != 0 {
		t.Fatalf("unexpected parse: %d words, %d notes", s.WordCount(), len(s.Notes()))
	}
}

func TestParseBlankParagraphs(t *testing.T) {
	s := mustParse(t, "a\n\n\nb", 0)
	lines := s.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[1].NumWords != 0 || lines[2].NumWords != 0 {
		t.Error("expected blank rows between paragraphs")
	}
}

func TestParseEmpty(t *testing.T) {
	s := mustParse(t, "", 40)
	if s.EndOffset() != 0 || len(s.Tokens()) != 0 {
		t.Fatalf("expected empty script, got end=%v tokens=%d", s.EndOffset(), len(s.Tokens()))
	}
	if s.WordIndex(10) != -1 {
		t.Error("WordIndex on empty script should be -1")
	}
	if s.LineAt(0) != -1 {
		t.Error("LineAt on empty script should be -1")
	}
}

func TestTokenOffsetsAreOrdered(t *testing.T) {
	raw := "[[open]]Welcome everyone to the show\n[PAUSE]\nToday [[breathe]] we talk about timing and pace " +
		"and why it matters\n\n[PAUSE][PAUSE]\nThanks"
	s := mustParse(t, raw, 12)

	var prev float64 = -1
	var prevWord, prevMark float64 = -1, -1
	for i, tok := range s.Tokens() {
		if tok.Start < prev {
			t.Fatalf("token %d offset %v decreased from %v", i, tok.Start, prev)
		}
		prev = tok.Start
		switch tok.Kind {
		case KindWord:
			if !(tok.Start > prevWord) {
				t.Fatalf("word starts not strictly increasing at token %d", i)
			}
			prevWord = tok.Start
		case KindPause:
			if !(tok.Start > prevMark) {
				t.Fatalf("marker offsets not strictly increasing at token %d", i)
			}
			prevMark = tok.Start
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	raw := "some words [[n]] and more words\n[PAUSE]\nend"
	a := mustParse(t, raw, 10)
	b := mustParse(t, raw, 10)
	if len(a.Tokens()) != len(b.Tokens()) {
		t.Fatal("token count differs between parses")
	}
	for i := range a.Tokens() {
		if a.Tokens()[i] != b.Tokens()[i] {
			t.Fatalf("token %d differs: %+v vs %+v", i, a.Tokens()[i], b.Tokens()[i])
		}
	}
}
