// Package engine advances a script's scroll position against real elapsed
// time. It owns the play state machine, stops exactly on pause markers,
// feeds word-passed events to the WPM estimator and, when auto-speed is on,
// holds the scroll while the voice gate reports silence.
//
// An Engine is not safe for concurrent use; callers serialize Tick and the
// command methods (the app runs them all on the UI loop).
package engine

import (
	"math"
	"time"

	"prompter/script"
	"prompter/wpm"
)

const (
	DefaultSpeed     = 0.3 // offset units (terminal rows) per second
	DefaultMinSpeed  = 0.05
	DefaultMaxSpeed  = 5.0
	DefaultCountdown = 3.0
	DefaultMaxStep   = 0.25
)

type Config struct {
	Speed     float64 // base speed, offset units per second
	MinSpeed  float64
	MaxSpeed  float64 // 0 means unbounded
	Countdown float64 // seconds before playback starts; 0 disables
	MaxStep   float64 // largest dt a single Tick applies

	AutoSpeed        bool
	TargetWPM        float64
	WPMWindow        time.Duration
	ResetWPMOnMarker bool // clear WPM history whenever a marker pauses
}

func DefaultConfig() Config {
	return Config{
		Speed:     DefaultSpeed,
		MinSpeed:  DefaultMinSpeed,
		MaxSpeed:  DefaultMaxSpeed,
		Countdown: DefaultCountdown,
		MaxStep:   DefaultMaxStep,
		TargetWPM: wpm.DefaultTarget,
		WPMWindow: wpm.DefaultWindow,
	}
}

func (c Config) normalized() Config {
	if !(c.MinSpeed > 0) {
		c.MinSpeed = DefaultMinSpeed
	}
	if c.MaxSpeed < 0 || math.IsNaN(c.MaxSpeed) {
		c.MaxSpeed = 0
	}
	if c.MaxSpeed > 0 && c.MaxSpeed < c.MinSpeed {
		c.MaxSpeed = c.MinSpeed
	}
	if !(c.MaxStep > 0) {
		c.MaxStep = DefaultMaxStep
	}
	if !(c.Countdown >= 0) {
		c.Countdown = 0
	}
	if !(c.TargetWPM >= 0) {
		c.TargetWPM = 0
	}
	c.Speed = c.clampSpeed(c.Speed)
	return c
}

func (c Config) clampSpeed(v float64) float64 {
	if !(v > 0) {
		return c.MinSpeed
	}
	if c.MaxSpeed > 0 && v > c.MaxSpeed {
		return c.MaxSpeed
	}
	return v
}

type PlayState int

const (
	Stopped PlayState = iota
	Countdown
	Playing
	Paused
)

func (s PlayState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Countdown:
		return "countdown"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// SpeechDetector is the voice gate as seen by the engine.
type SpeechDetector interface {
	IsSpeechPresent() bool
}

// Sink receives transition events. Calls happen synchronously inside the
// engine method that caused them and must not call back into the engine.
type Sink interface {
	StateChanged(from, to PlayState)
	MarkerReached(offset float64)
	CountdownStep(remaining int)
	Finished()
}

type NopSink struct{}

func (NopSink) StateChanged(from, to PlayState) {}
func (NopSink) MarkerReached(offset float64)    {}
func (NopSink) CountdownStep(remaining int)     {}
func (NopSink) Finished()                       {}

// Snapshot is an immutable view of the engine after a tick or command.
type Snapshot struct {
	ScrollOffset       float64
	State              PlayState
	CountdownRemaining float64
	CurrentWord        int
	WPM                float64
	Band               wpm.Band
	Multiplier         float64
	Progress           float64 // 0..1
	Remaining          float64 // seconds to the end at base speed
	Note               string
	AtEnd              bool
}

type Engine struct {
	cfg  Config
	gate SpeechDetector
	sink Sink

	script *script.Script
	est    *wpm.Estimator

	offset      float64
	state       PlayState
	countdown   float64
	speed       float64
	autoSpeed   bool
	target      float64
	currentWord int
	consumed    map[float64]bool
	clock       float64 // seconds spent Playing, the WPM time base
}

// New returns a Stopped engine with an empty script. gate may be nil, in
// which case auto-speed never holds the scroll.
func New(cfg Config, gate SpeechDetector, sink Sink) *Engine {
	cfg = cfg.normalized()
	if sink == nil {
		sink = NopSink{}
	}
	empty, _ := script.Parse("", nil, 0)
	return &Engine{
		cfg:         cfg,
		gate:        gate,
		sink:        sink,
		script:      empty,
		est:         wpm.New(cfg.WPMWindow),
		speed:       cfg.Speed,
		autoSpeed:   cfg.AutoSpeed,
		target:      cfg.TargetWPM,
		currentWord: -1,
		consumed:    make(map[float64]bool),
	}
}

func (e *Engine) Script() *script.Script    { return e.script }
func (e *Engine) State() PlayState          { return e.state }
func (e *Engine) Offset() float64           { return e.offset }
func (e *Engine) Speed() float64            { return e.speed }
func (e *Engine) AutoSpeed() bool           { return e.autoSpeed }
func (e *Engine) TargetWPM() float64        { return e.target }
func (e *Engine) CountdownSeconds() float64 { return e.cfg.Countdown }

func (e *Engine) setState(to PlayState) {
	if e.state == to {
		return
	}
	from := e.state
	e.state = to
	e.sink.StateChanged(from, to)
}

func (e *Engine) multiplier() float64 {
	if !e.autoSpeed || e.gate == nil {
		return 1
	}
	if e.gate.IsSpeechPresent() {
		return 1
	}
	return 0
}

// Tick advances the engine by dt seconds of real time. Negative dt counts
// as zero and anything above MaxStep is cut to MaxStep, so a laptop waking
// from sleep does not jump the scroll.
func (e *Engine) Tick(dt float64) Snapshot {
	if !(dt > 0) {
		dt = 0
	}
	if dt > e.cfg.MaxStep {
		dt = e.cfg.MaxStep
	}

	switch e.state {
	case Countdown:
		e.tickCountdown(dt)
	case Playing:
		e.tickPlaying(dt)
	}
	return e.Snapshot()
}

func (e *Engine) tickCountdown(dt float64) {
	before := int(math.Ceil(e.countdown))
	e.countdown -= dt
	if e.countdown <= 0 {
		// leftover dt is not applied to the scroll
		e.countdown = 0
		e.setState(Playing)
		return
	}
	if after := int(math.Ceil(e.countdown)); after < before {
		e.sink.CountdownStep(after)
	}
}

func (e *Engine) tickPlaying(dt float64) {
	e.clock += dt
	end := e.script.EndOffset()
	start := e.offset
	tentative := start + e.speed*e.multiplier()*dt

	limit := math.Min(tentative, end)
	for _, m := range e.script.PauseMarkersBetween(start, limit) {
		if e.consumed[m] {
			continue
		}
		e.offset = m
		e.consumed[m] = true
		e.advanceWord()
		if e.cfg.ResetWPMOnMarker {
			e.est.Reset()
		}
		e.setState(Paused)
		e.sink.MarkerReached(m)
		return
	}

	if tentative >= end {
		e.offset = end
		e.advanceWord()
		e.setState(Paused)
		if start < end {
			e.sink.Finished()
		}
		return
	}
	e.offset = tentative
	e.advanceWord()
}

// advanceWord moves currentWord forward after a playback advance and
// records one WPM event per word passed.
func (e *Engine) advanceWord() {
	idx := e.script.WordIndex(e.offset)
	for w := e.currentWord + 1; w <= idx; w++ {
		e.est.RecordWordPassed(e.clock)
	}
	if idx > e.currentWord {
		e.currentWord = idx
	}
}

// Play starts playback: Stopped goes through the countdown when one is
// configured, Paused resumes directly. Paused at the end of the script
// stays Paused; Seek back or Reset first.
func (e *Engine) Play() {
	switch e.state {
	case Stopped:
		if e.cfg.Countdown > 0 {
			e.countdown = e.cfg.Countdown
			e.setState(Countdown)
			e.sink.CountdownStep(int(math.Ceil(e.countdown)))
			return
		}
		e.setState(Playing)
	case Paused:
		if e.offset >= e.script.EndOffset() {
			return
		}
		e.setState(Playing)
	}
}

// Pause is a no-op unless Playing.
func (e *Engine) Pause() {
	if e.state == Playing {
		e.setState(Paused)
	}
}

// TogglePlayPause pauses while Playing, plays while Stopped or Paused and
// skips the rest of a running countdown.
func (e *Engine) TogglePlayPause() {
	switch e.state {
	case Playing:
		e.Pause()
	case Countdown:
		e.countdown = 0
		e.setState(Playing)
	default:
		e.Play()
	}
}

// Seek moves the scroll by delta, clamped to the script. Markers after the
// new position are re-armed. Seeking is not reading, so no WPM events.
func (e *Engine) Seek(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	e.offset = clamp(e.offset+delta, 0, e.script.EndOffset())
	e.rearmAfter(e.offset)
	e.currentWord = e.script.WordIndex(e.offset)
}

func (e *Engine) rearmAfter(offset float64) {
	for m := range e.consumed {
		if m > offset {
			delete(e.consumed, m)
		}
	}
}

func (e *Engine) Reset() {
	e.setState(Stopped)
	e.offset = 0
	e.countdown = 0
	e.currentWord = -1
	e.clock = 0
	e.est.Reset()
	for m := range e.consumed {
		delete(e.consumed, m)
	}
}

// SetSpeed takes effect on the next tick. Non-positive values fall back to
// the configured minimum.
func (e *Engine) SetSpeed(v float64) {
	e.speed = e.cfg.clampSpeed(v)
}

func (e *Engine) AdjustSpeed(delta float64) {
	e.SetSpeed(e.speed + delta)
}

func (e *Engine) SetAutoSpeedEnabled(on bool) { e.autoSpeed = on }

// SetCountdown applies from the next Play out of Stopped.
func (e *Engine) SetCountdown(seconds float64) {
	if !(seconds >= 0) {
		seconds = 0
	}
	e.cfg.Countdown = seconds
}

func (e *Engine) SetTargetWPM(target float64) {
	if !(target >= 0) {
		target = 0
	}
	e.target = target
}

// Load swaps in a freshly parsed script, keeping the play state. The offset
// is clamped to the new end, consumed markers that no longer exist are
// dropped and the current word is recomputed without WPM events.
func (e *Engine) Load(s *script.Script) {
	if s == nil {
		s, _ = script.Parse("", nil, 0)
	}
	e.script = s
	e.offset = clamp(e.offset, 0, s.EndOffset())
	for m := range e.consumed {
		if !s.HasMarker(m) || m > e.offset {
			delete(e.consumed, m)
		}
	}
	if e.currentWord == -1 && e.offset == 0 {
		return
	}
	e.currentWord = s.WordIndex(e.offset)
}

func (e *Engine) Snapshot() Snapshot {
	end := e.script.EndOffset()
	rate := e.est.CurrentWPMAt(e.clock)
	snap := Snapshot{
		ScrollOffset:       e.offset,
		State:              e.state,
		CountdownRemaining: e.countdown,
		CurrentWord:        e.currentWord,
		WPM:                rate,
		Band:               wpm.BandFor(rate, e.target),
		Multiplier:         e.multiplier(),
		Remaining:          (end - e.offset) / e.speed,
		AtEnd:              e.offset >= end,
	}
	if end > 0 {
		snap.Progress = e.offset / end
	}
	if n, ok := e.script.NoteAt(e.offset); ok {
		snap.Note = n.Text
	}
	return snap
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
