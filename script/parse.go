package script

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PauseTag  = "[PAUSE]"
	noteOpen  = "[["
	noteClose = "]]"
)

// ParseError reports malformed marker syntax. Parse still returns a complete
// Script alongside it; the offending delimiter is kept as literal text.
type ParseError struct {
	Offset int // byte offset of the delimiter in the raw text
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("script: %s at byte %d", e.Msg, e.Offset)
}

type pieceKind int

const (
	pieceWord pieceKind = iota
	pieceBreak
	piecePause
	pieceNote
)

type piece struct {
	kind pieceKind
	text string
}

// lex splits raw text into words, paragraph breaks and control tags.
func lex(raw string) ([]piece, *ParseError) {
	var (
		out     []piece
		perr    *ParseError
		word    strings.Builder
		literal bool // an unterminated [[ was seen; later [[ are plain text
	)
	flush := func() {
		if word.Len() > 0 {
			out = append(out, piece{kind: pieceWord, text: word.String()})
			word.Reset()
		}
	}

	for i := 0; i < len(raw); {
		rest := raw[i:]
		switch {
		case strings.HasPrefix(rest, PauseTag):
			flush()
			out = append(out, piece{kind: piecePause})
			i += len(PauseTag)
			continue
		case !literal && strings.HasPrefix(rest, noteOpen):
			end := strings.Index(rest[len(noteOpen):], noteClose)
			if end < 0 {
				perr = &ParseError{Offset: i, Msg: "unterminated [[ note"}
				literal = true
				word.WriteString(noteOpen)
				i += len(noteOpen)
				continue
			}
			flush()
			if text := strings.TrimSpace(rest[len(noteOpen) : len(noteOpen)+end]); text != "" {
				out = append(out, piece{kind: pieceNote, text: text})
			}
			i += len(noteOpen) + end + len(noteClose)
			continue
		}

		r, size := utf8.DecodeRuneInString(rest)
		switch {
		case r == '\n':
			flush()
			out = append(out, piece{kind: pieceBreak})
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteString(rest[:size])
		}
		i += size
	}
	flush()
	return out, perr
}

type pendingWord struct {
	text    string
	advance float64
}

type layout struct {
	m     Metrics
	width float64
	lh    float64
	space float64

	lines  []Line
	tokens []Token
	words  []Word
	marks  []float64
	notes  []Note

	cur      []pendingWord
	curWidth float64
}

func (l *layout) lineStart() float64 { return float64(len(l.lines)) * l.lh }

func (l *layout) addWord(text string) {
	adv := l.m.Advance(text)
	if len(l.cur) > 0 && l.curWidth+l.space+adv > l.width {
		l.flushLine()
	}
	if len(l.cur) > 0 {
		l.curWidth += l.space
	}
	l.cur = append(l.cur, pendingWord{text: text, advance: adv})
	l.curWidth += adv
}

// flushLine lays out the pending words as one row. Each word gets the share
// of the row's offset range matching its horizontal advance; the gap after a
// word belongs to that word.
func (l *layout) flushLine() {
	if len(l.cur) == 0 {
		return
	}
	li := len(l.lines)
	start := l.lineStart()
	first := len(l.words)

	total := l.curWidth
	texts := make([]string, len(l.cur))
	x := 0.0
	for i, pw := range l.cur {
		texts[i] = pw.text
		span := pw.advance
		if i < len(l.cur)-1 {
			span += l.space
		}
		var ws, we float64
		if total > 0 {
			ws = start + l.lh*x/total
			we = start + l.lh*(x+span)/total
		} else {
			ws = start + l.lh*float64(i)/float64(len(l.cur))
			we = start + l.lh*float64(i+1)/float64(len(l.cur))
		}
		if i == len(l.cur)-1 {
			we = start + l.lh
		}
		x += span
		idx := len(l.words)
		l.words = append(l.words, Word{Text: pw.text, Start: ws, End: we, Line: li})
		l.tokens = append(l.tokens, Token{Kind: KindWord, Text: pw.text, Start: ws, End: we, Index: idx})
	}

	l.lines = append(l.lines, Line{
		Start:     start,
		Text:      strings.Join(texts, " "),
		FirstWord: first,
		NumWords:  len(l.cur),
	})
	l.cur = l.cur[:0]
	l.curWidth = 0
}

func (l *layout) addBlank() {
	l.lines = append(l.lines, Line{Start: l.lineStart()})
}

func (l *layout) addPause() {
	l.flushLine()
	at := l.lineStart()
	l.tokens = append(l.tokens, Token{Kind: KindPause, Start: at, End: at, Index: len(l.marks)})
	l.marks = append(l.marks, at)
	l.lines = append(l.lines, Line{Start: at, Marker: true})
}

// addNote attaches text to the row currently being filled, or to the next
// row when nothing is pending. Both cases resolve to the same row index.
func (l *layout) addNote(text string) {
	at := l.lineStart()
	l.tokens = append(l.tokens, Token{Kind: KindNote, Text: text, Start: at, End: at, Index: len(l.notes)})
	l.notes = append(l.notes, Note{Text: text, At: at, Line: len(l.lines)})
}

// Parse lays out raw script text and returns its token structure. width is
// the usable line width in the same unit as m.Advance; width <= 0 disables
// wrapping. The returned Script is never nil. A non-nil error is always a
// *ParseError describing recovered marker syntax.
func Parse(raw string, m Metrics, width float64) (*Script, error) {
	if m == nil {
		m = CellMetrics{}
	}
	if width <= 0 || math.IsNaN(width) {
		width = math.Inf(1)
	}
	lh := m.LineHeight()
	if lh <= 0 || math.IsNaN(lh) {
		lh = 1
	}
	pieces, perr := lex(raw)

	l := &layout{
		m:     m,
		width: width,
		lh:    lh,
		space: m.SpaceWidth(),
	}

	paraContent := false
	for _, p := range pieces {
		switch p.kind {
		case pieceWord:
			l.addWord(p.text)
			paraContent = true
		case piecePause:
			l.addPause()
			paraContent = true
		case pieceNote:
			l.addNote(p.text)
		case pieceBreak:
			if len(l.cur) > 0 {
				l.flushLine()
			} else if !paraContent {
				l.addBlank()
			}
			paraContent = false
		}
	}
	l.flushLine()

	// Notes are recorded when encountered, which may be after the words of
	// the row they attach to.
	slices.SortStableFunc(l.tokens, func(a, b Token) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(kindOrder(a.Kind), kindOrder(b.Kind))
	})

	s := &Script{
		tokens:  l.tokens,
		words:   l.words,
		markers: l.marks,
		notes:   l.notes,
		lines:   l.lines,
		lh:      l.lh,
		end:     float64(len(l.lines)) * l.lh,
	}
	if perr != nil {
		return s, perr
	}
	return s, nil
}

func kindOrder(k Kind) int {
	switch k {
	case KindNote:
		return 0
	case KindPause:
		return 1
	}
	return 2
}
