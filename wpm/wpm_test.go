package wpm

import (
	"math"
	"testing"
	"time"
)

func feedEvery(e *Estimator, interval, duration float64) float64 {
	var ts float64
	steps := int(math.Round(duration / interval))
	for i := 0; i <= steps; i++ {
		ts = float64(i) * interval
		e.RecordWordPassed(ts)
	}
	return ts
}

func TestConvergesToConstantRate(t *testing.T) {
	e := New(12 * time.Second)
	feedEvery(e, 0.2, 20)

	got := e.CurrentWPM()
	if math.Abs(got-300) > 6 {
		t.Fatalf("CurrentWPM = %.1f, want ~300", got)
	}
}

func TestFewerThanTwoEventsIsZero(t *testing.T) {
	e := New(0)
	if e.CurrentWPM() != 0 {
		t.Fatal("expected 0 with no events")
	}
	e.RecordWordPassed(1)
	if got := e.CurrentWPM(); got != 0 {
		t.Fatalf("expected 0 with one event, got %v", got)
	}
}

func TestEarlyEstimateUsesObservedSpan(t *testing.T) {
	e := New(15 * time.Second)
	e.RecordWordPassed(0)
	e.RecordWordPassed(0.5)

	// one interval of 0.5s -> 120 wpm, not 2 words / 15s
	if got := e.CurrentWPM(); math.Abs(got-120) > 1e-9 {
		t.Fatalf("CurrentWPM = %v, want 120", got)
	}
}

func TestSimultaneousEventsDoNotDivideByZero(t *testing.T) {
	e := New(0)
	e.RecordWordPassed(3)
	e.RecordWordPassed(3)
	e.RecordWordPassed(3)
	if got := e.CurrentWPM(); got != 0 {
		t.Fatalf("expected 0 for zero span, got %v", got)
	}
}

func TestRateDecaysWhenReadingStops(t *testing.T) {
	e := New(10 * time.Second)
	end := feedEvery(e, 0.25, 20)

	before := e.CurrentWPMAt(end)
	after := e.CurrentWPMAt(end + 5)
	if !(after < before) {
		t.Fatalf("expected rate to fall after 5s without words: before=%.1f after=%.1f", before, after)
	}
	if got := e.CurrentWPMAt(end + 11); got != 0 {
		t.Fatalf("expected 0 once the window is empty, got %v", got)
	}
}

func TestWindowIsBounded(t *testing.T) {
	e := New(5 * time.Second)
	feedEvery(e, 0.1, 60)
	if e.Len() > 51 {
		t.Fatalf("window holds %d events, want <= 51", e.Len())
	}
}

func TestReset(t *testing.T) {
	e := New(0)
	feedEvery(e, 0.2, 5)
	e.Reset()
	if e.Len() != 0 || e.CurrentWPM() != 0 {
		t.Fatal("expected empty estimator after Reset")
	}
	e.RecordWordPassed(100)
	e.RecordWordPassed(100.5)
	if got := e.CurrentWPM(); math.Abs(got-120) > 1e-9 {
		t.Fatalf("history before Reset leaked: %v", got)
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		wpm, target float64
		want        Band
	}{
		{0, 150, BandNone},
		{100, 0, BandNone},
		{100, 150, BandSlow},
		{150, 150, BandOnPace},
		{130, 150, BandOnPace},
		{172, 150, BandOnPace},
		{200, 150, BandFast},
	}
	for _, tc := range cases {
		if got := BandFor(tc.wpm, tc.target); got != tc.want {
			t.Errorf("BandFor(%v, %v) = %v, want %v", tc.wpm, tc.target, got, tc.want)
		}
	}
}
