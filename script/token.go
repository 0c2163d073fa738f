package script

// Kind identifies the structural role of a Token.
type Kind int

const (
	KindWord Kind = iota
	KindPause
	KindNote
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindPause:
		return "pause"
	case KindNote:
		return "note"
	}
	return "unknown"
}

// Token is one structural element of a parsed script. Start and End are
// scroll offsets; for pause markers and notes End equals Start.
type Token struct {
	Kind  Kind
	Text  string
	Start float64
	End   float64
	Index int // position within Words, Markers or Notes depending on Kind
}

// Offset returns the scroll offset at which the token begins.
func (t Token) Offset() float64 { return t.Start }

// Word is a visible, scrolled word. [Start, End) is the scroll range during
// which the word sits in the focus zone.
type Word struct {
	Text  string
	Start float64
	End   float64
	Line  int
}

// Note is a presenter note taken from a [[ ... ]] span. It is never scrolled
// and never counted as a word.
type Note struct {
	Text string
	At   float64
	Line int
}

// Line is one laid-out row of the script as a renderer would draw it.
type Line struct {
	Start     float64
	Text      string
	FirstWord int // index into Words; valid only when NumWords > 0
	NumWords  int
	Marker    bool // the row holds a [PAUSE] cue and no text
}
