// Package wpm estimates reading speed from word-passed events.
package wpm

import "time"

const (
	DefaultWindow = 12 * time.Second
	DefaultTarget = 150.0 // comfortable reading pace sits around 120-180

	bandTolerance = 0.15
)

// Estimator keeps a trailing window of word-passed timestamps (seconds on any
// monotonic time base) and reports words per minute over it.
type Estimator struct {
	window float64
	stamps []float64
	first  float64 // earliest event since Reset, kept after trimming
	seen   bool
}

func New(window time.Duration) *Estimator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Estimator{window: window.Seconds()}
}

// Window returns the trailing window length.
func (e *Estimator) Window() time.Duration {
	return time.Duration(e.window * float64(time.Second))
}

// RecordWordPassed notes that one word was read at ts. Timestamps earlier
// than the latest recorded one are treated as simultaneous with it.
func (e *Estimator) RecordWordPassed(ts float64) {
	if n := len(e.stamps); n > 0 && ts < e.stamps[n-1] {
		ts = e.stamps[n-1]
	}
	if !e.seen {
		e.first = ts
		e.seen = true
	}
	e.stamps = append(e.stamps, ts)
	e.trim(ts)
}

func (e *Estimator) trim(now float64) {
	cut := 0
	for cut < len(e.stamps) && e.stamps[cut] <= now-e.window {
		cut++
	}
	if cut > 0 {
		e.stamps = append(e.stamps[:0], e.stamps[cut:]...)
	}
}

// CurrentWPM reports the rate as of the latest recorded event.
func (e *Estimator) CurrentWPM() float64 {
	if len(e.stamps) == 0 {
		return 0
	}
	return e.CurrentWPMAt(e.stamps[len(e.stamps)-1])
}

// CurrentWPMAt reports the rate as of now. Once history covers the whole
// window the rate is events-in-window over the window; before that it is
// measured over the span actually observed, so a handful of early words do
// not read as a sprint.
func (e *Estimator) CurrentWPMAt(now float64) float64 {
	e.trim(now)
	n := len(e.stamps)
	if !e.seen || n < 1 {
		return 0
	}
	if now-e.first >= e.window {
		return float64(n) / e.window * 60
	}
	if n < 2 {
		return 0
	}
	span := now - e.first
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span * 60
}

// Len reports how many events are inside the window.
func (e *Estimator) Len() int { return len(e.stamps) }

func (e *Estimator) Reset() {
	e.stamps = e.stamps[:0]
	e.first = 0
	e.seen = false
}

// Band classifies a reading rate against a target pace.
type Band int

const (
	BandNone Band = iota
	BandSlow
	BandOnPace
	BandFast
)

func (b Band) String() string {
	switch b {
	case BandSlow:
		return "slow"
	case BandOnPace:
		return "on-pace"
	case BandFast:
		return "fast"
	}
	return "none"
}

// BandFor is a pure function of its inputs. A zero rate (nothing read yet)
// or a zero target yields BandNone.
func BandFor(wpm, target float64) Band {
	if wpm <= 0 || target <= 0 {
		return BandNone
	}
	switch {
	case wpm < target*(1-bandTolerance):
		return BandSlow
	case wpm > target*(1+bandTolerance):
		return BandFast
	}
	return BandOnPace
}
