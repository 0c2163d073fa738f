// Package voice turns microphone amplitude into a speech-present signal.
package voice

import (
	"math"
	"sync"
	"time"
)

const (
	DefaultThreshold = 0.025
	DefaultSmoothing = 20 * time.Millisecond
	DefaultAttack    = 150 * time.Millisecond
	DefaultRelease   = 800 * time.Millisecond
	DefaultStale     = time.Second
)

type GateConfig struct {
	Threshold float64       // smoothed level at or above which input counts as voice
	Smoothing time.Duration // EMA time constant
	Attack    time.Duration // sustained voice before speech is declared; negative means none
	Release   time.Duration // sustained quiet before silence is declared; negative means none
	Stale     time.Duration // no samples for this long -> speech assumed

	// Now returns seconds on the same time base as PushSample timestamps.
	// Defaults to a monotonic clock started by NewGate.
	Now func() float64
}

func (c GateConfig) withDefaults() GateConfig {
	if c.Threshold <= 0 || math.IsNaN(c.Threshold) {
		c.Threshold = DefaultThreshold
	}
	if c.Smoothing <= 0 {
		c.Smoothing = DefaultSmoothing
	}
	if c.Attack < 0 {
		c.Attack = 0
	} else if c.Attack == 0 {
		c.Attack = DefaultAttack
	}
	if c.Release < 0 {
		c.Release = 0
	} else if c.Release == 0 {
		c.Release = DefaultRelease
	}
	if c.Stale <= 0 {
		c.Stale = DefaultStale
	}
	if c.Now == nil {
		start := time.Now()
		c.Now = func() float64 { return time.Since(start).Seconds() }
	}
	return c
}

// Gate smooths amplitude samples and applies asymmetric hysteresis: speech
// must persist for Attack before it is reported and quiet must persist for
// Release before it is cleared. When the sample stream dries up for longer
// than Stale the gate reports speech, so a dead microphone never freezes
// the scroll.
//
// PushSample is safe to call from the audio driver goroutine while another
// goroutine reads IsSpeechPresent.
type Gate struct {
	cfg     GateConfig
	tau     float64
	attack  float64
	release float64
	stale   float64

	mu         sync.Mutex
	level      float64
	last       float64
	hasSample  bool
	speech     bool
	aboveSince float64
	belowSince float64
	above      bool
}

func NewGate(cfg GateConfig) *Gate {
	cfg = cfg.withDefaults()
	return &Gate{
		cfg:     cfg,
		tau:     cfg.Smoothing.Seconds(),
		attack:  cfg.Attack.Seconds(),
		release: cfg.Release.Seconds(),
		stale:   cfg.Stale.Seconds(),
	}
}

func (g *Gate) Config() GateConfig { return g.cfg }

// PushSample feeds one amplitude reading taken at ts seconds. Negative
// amplitudes are folded; timestamps older than the previous sample are
// treated as simultaneous with it.
func (g *Gate) PushSample(amplitude, ts float64) {
	amplitude = math.Abs(amplitude)
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		amplitude = 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasSample {
		g.hasSample = true
		g.level = amplitude
		g.last = ts
		g.above = g.loud(amplitude)
		g.aboveSince, g.belowSince = ts, ts
		g.settle(ts)
		return
	}

	if ts < g.last {
		ts = g.last
	}
	dt := ts - g.last
	g.last = ts
	alpha := 1 - math.Exp(-dt/g.tau)
	g.level += alpha * (amplitude - g.level)

	above := g.loud(amplitude)
	if above != g.above {
		g.above = above
		if above {
			g.aboveSince = ts
		} else {
			g.belowSince = ts
		}
	}
	g.settle(ts)
}

// loud reports whether the input counts as above threshold. Until speech
// is declared the raw reading must agree with the smoothed level, so the
// decay tail of a short loud burst cannot run out the attack time.
func (g *Gate) loud(amplitude float64) bool {
	if g.level < g.cfg.Threshold {
		return false
	}
	return g.speech || amplitude >= g.cfg.Threshold
}

func (g *Gate) settle(ts float64) {
	switch {
	case g.above && !g.speech && ts-g.aboveSince >= g.attack:
		g.speech = true
	case !g.above && g.speech && ts-g.belowSince >= g.release:
		g.speech = false
	}
}

// PushLevel feeds a reading stamped with the gate's own clock.
func (g *Gate) PushLevel(amplitude float64) {
	g.PushSample(amplitude, g.cfg.Now())
}

func (g *Gate) IsSpeechPresent() bool {
	now := g.cfg.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.hasSample || now-g.last > g.stale {
		return true
	}
	return g.speech
}

// Stale reports whether the gate is currently running on its fail-safe.
func (g *Gate) Stale() bool {
	now := g.cfg.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.hasSample || now-g.last > g.stale
}

// Level returns the smoothed amplitude.
func (g *Gate) Level() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.level
}

func (g *Gate) Now() float64 { return g.cfg.Now() }

func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.level = 0
	g.last = 0
	g.hasSample = false
	g.speech = false
	g.above = false
	g.aboveSince, g.belowSince = 0, 0
}
