package voice

import "time"

const (
	DefaultMonitorTick = 100 * time.Millisecond

	silenceWarnEvery    = 8 * time.Second
	silenceAutoPauseDur = 30 * time.Second
	speechMinRatio      = 0.10
	speechClearRatio    = 0.25 // higher threshold to clear warning (hysteresis)
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // presenter has gone quiet
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // still quiet, remind again (every 8s)
	SilenceAutoPause              // 30s of silence while active
)

func (e SilenceEvent) String() string {
	switch e {
	case SilenceWarn:
		return "warn"
	case SilenceWarnClear:
		return "warn_clear"
	case SilenceRepeat:
		return "repeat"
	case SilenceAutoPause:
		return "auto_pause"
	}
	return "none"
}

// SilenceMonitor watches the gate's output at a fixed tick rate and raises
// presenter-facing events on long stretches of silence. Reminders and
// auto-pause only fire while active reports true (auto-speed playback).
type SilenceMonitor struct {
	warnAt   int
	windowSz int

	active func() bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	lastBeep    int
}

func NewSilenceMonitor(tick time.Duration, active func() bool) *SilenceMonitor {
	if tick <= 0 {
		tick = DefaultMonitorTick
	}
	if active == nil {
		active = func() bool { return false }
	}
	warnAt := int(silenceWarnEvery / tick)
	windowSz := int(silenceAutoPauseDur / tick)
	return &SilenceMonitor{
		warnAt:   warnAt,
		windowSz: windowSz,
		active:   active,
		window:   make([]bool, windowSz),
	}
}

func (m *SilenceMonitor) ratio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// Warned reports whether a silence warning is currently showing.
func (m *SilenceMonitor) Warned() bool { return m.warned }

func (m *SilenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)

	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastBeep = m.ticks
		return SilenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return SilenceWarnClear
	}

	if !m.active() {
		return SilenceNone
	}

	// checked before repeat so the pause wins when both are due
	if m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		return SilenceAutoPause
	}

	if m.warned && m.ticks-m.lastBeep >= m.warnAt {
		m.lastBeep = m.ticks
		return SilenceRepeat
	}

	return SilenceNone
}

// Reset forgets history, e.g. after the presenter restarts the script.
func (m *SilenceMonitor) Reset() {
	m.ticks = 0
	m.speechCount = 0
	m.warned = false
	m.lastBeep = 0
	for i := range m.window {
		m.window[i] = false
	}
}
