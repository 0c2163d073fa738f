// Package script turns raw teleprompter text into an immutable sequence of
// words, [PAUSE] cue markers and [[ ... ]] presenter notes, each placed at a
// scroll offset derived from text layout.
package script

import "sort"

// Script is the parsed, laid-out form of a script. It is never modified after
// Parse returns, so it may be shared freely.
type Script struct {
	tokens  []Token
	words   []Word
	markers []float64
	notes   []Note
	lines   []Line
	lh      float64
	end     float64
}

func (s *Script) Tokens() []Token     { return s.tokens }
func (s *Script) Words() []Word       { return s.words }
func (s *Script) Markers() []float64  { return s.markers }
func (s *Script) Notes() []Note       { return s.notes }
func (s *Script) Lines() []Line       { return s.lines }
func (s *Script) WordCount() int      { return len(s.words) }
func (s *Script) LineHeight() float64 { return s.lh }

// EndOffset is the scroll offset at which the last row leaves the focus zone.
func (s *Script) EndOffset() float64 { return s.end }

// WordAt returns the word whose [Start, End) range contains offset.
func (s *Script) WordAt(offset float64) (int, bool) {
	i := sort.Search(len(s.words), func(i int) bool { return s.words[i].End > offset })
	if i < len(s.words) && s.words[i].Start <= offset {
		return i, true
	}
	return -1, false
}

// WordIndex returns the last word starting at or before offset, or -1. Blank
// and marker rows keep the preceding word current.
func (s *Script) WordIndex(offset float64) int {
	return sort.Search(len(s.words), func(i int) bool { return s.words[i].Start > offset }) - 1
}

// PauseMarkersBetween returns the marker offsets inside the closed range
// [a, b] in ascending order.
func (s *Script) PauseMarkersBetween(a, b float64) []float64 {
	if a > b {
		a, b = b, a
	}
	lo := sort.SearchFloat64s(s.markers, a)
	hi := sort.Search(len(s.markers), func(i int) bool { return s.markers[i] > b })
	if lo >= hi {
		return nil
	}
	out := make([]float64, hi-lo)
	copy(out, s.markers[lo:hi])
	return out
}

// HasMarker reports whether a pause marker sits exactly at offset.
func (s *Script) HasMarker(offset float64) bool {
	i := sort.SearchFloat64s(s.markers, offset)
	return i < len(s.markers) && s.markers[i] == offset
}

// NoteAt returns the most recent note at or before offset.
func (s *Script) NoteAt(offset float64) (Note, bool) {
	i := sort.Search(len(s.notes), func(i int) bool { return s.notes[i].At > offset }) - 1
	if i < 0 {
		return Note{}, false
	}
	return s.notes[i], true
}

// LineAt returns the index of the row containing offset, clamped to the
// script's rows. It returns -1 for an empty script.
func (s *Script) LineAt(offset float64) int {
	if len(s.lines) == 0 {
		return -1
	}
	i := int(offset / s.lh)
	if i < 0 {
		return 0
	}
	if i >= len(s.lines) {
		return len(s.lines) - 1
	}
	return i
}
