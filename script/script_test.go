package script

import (
	"testing"

	"golang.org/x/image/font/basicfont"
)

func TestWordAtAndWordIndex(t *testing.T) {
	// rows: "one two" | blank | "three"
	s := mustParse(t, "one two\n\nthree", 0)

	if i, ok := s.WordAt(0.1); !ok || i != 0 {
		t.Errorf("WordAt(0.1) = %d, %v; want 0, true", i, ok)
	}
	if i, ok := s.WordAt(0.9); !ok || i != 1 {
		t.Errorf("WordAt(0.9) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := s.WordAt(1.5); ok {
		t.Error("WordAt on a blank row should report no word")
	}
	if i := s.WordIndex(1.5); i != 1 {
		t.Errorf("WordIndex(1.5) = %d, want 1 (previous word stays current)", i)
	}
	if i := s.WordIndex(2); i != 2 {
		t.Errorf("WordIndex(2) = %d, want 2", i)
	}
	if i := s.WordIndex(-1); i != -1 {
		t.Errorf("WordIndex(-1) = %d, want -1", i)
	}
	if i := s.WordIndex(100); i != 2 {
		t.Errorf("WordIndex past end = %d, want 2", i)
	}
}

func TestPauseMarkersBetween(t *testing.T) {
	s := mustParse(t, "a\n[PAUSE]\nb\n[PAUSE]\nc", 0)
	// markers sit at rows 1 and 3

	cases := []struct {
		a, b float64
		want []float64
	}{
		{0, 0.5, nil},
		{0, 1, []float64{1}},
		{1, 1, []float64{1}},
		{0.5, 10, []float64{1, 3}},
		{3, 0.5, []float64{1, 3}},
		{3.5, 10, nil},
	}
	for _, tc := range cases {
		got := s.PauseMarkersBetween(tc.a, tc.b)
		if len(got) != len(tc.want) {
			t.Errorf("PauseMarkersBetween(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("PauseMarkersBetween(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		}
	}
	if !s.HasMarker(3) || s.HasMarker(2) {
		t.Error("HasMarker mismatch")
	}
}

func TestNoteAt(t *testing.T) {
	s := mustParse(t, "a\nb [[first]]\nc\n[[second]] d", 0)

	if _, ok := s.NoteAt(0.5); ok {
		t.Error("no note should be active before the first one")
	}
	if n, ok := s.NoteAt(1.2); !ok || n.Text != "first" {
		t.Errorf("NoteAt(1.2) = %+v, %v", n, ok)
	}
	if n, ok := s.NoteAt(2.5); !ok || n.Text != "first" {
		t.Errorf("NoteAt(2.5) = %+v, %v", n, ok)
	}
	if n, ok := s.NoteAt(3); !ok || n.Text != "second" {
		t.Errorf("NoteAt(3) = %+v, %v", n, ok)
	}
}

func TestLineAtClamps(t *testing.T) {
	s := mustParse(t, "a\nb\nc", 0)
	if s.LineAt(-3) != 0 || s.LineAt(1.5) != 1 || s.LineAt(99) != 2 {
		t.Errorf("LineAt: %d %d %d", s.LineAt(-3), s.LineAt(1.5), s.LineAt(99))
	}
}

func TestCellMetricsWideRunes(t *testing.T) {
	m := CellMetrics{}
	if got := m.Advance("日本"); got != 4 {
		t.Errorf("Advance(日本) = %v, want 4", got)
	}
	if m.LineHeight() != 1 {
		t.Errorf("default LineHeight = %v, want 1", m.LineHeight())
	}
	if (CellMetrics{Rows: 2}).LineHeight() != 2 {
		t.Error("Rows should set line height")
	}
}

func TestFaceMetricsBasicFont(t *testing.T) {
	m := NewFaceMetrics(basicfont.Face7x13, 1.2)
	if got := m.Advance("ab"); got != 14 {
		t.Errorf("Advance(ab) = %v, want 14", got)
	}
	if got := m.SpaceWidth(); got != 7 {
		t.Errorf("SpaceWidth = %v, want 7", got)
	}
	if got := m.LineHeight(); !approx(got, 13*1.2) {
		t.Errorf("LineHeight = %v, want %v", got, 13*1.2)
	}

	s, err := Parse("aa bb cc", m, 40)
	if err != nil {
		t.Fatal(err)
	}
	// 14 + 7 + 14 = 35 fits in 40, adding "cc" does not
	if len(s.Lines()) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(s.Lines()))
	}
	if !approx(s.EndOffset(), 2*13*1.2) {
		t.Errorf("EndOffset = %v", s.EndOffset())
	}
}

func TestLoadFaceDefault(t *testing.T) {
	face, err := LoadFace("", 48, 72)
	if err != nil {
		t.Fatal(err)
	}
	if face != basicfont.Face7x13 {
		t.Error("expected the built-in face for an empty path")
	}
	if _, err := LoadFace("/nonexistent/font.ttf", 48, 72); err == nil {
		t.Error("expected error for a missing font file")
	}
}
