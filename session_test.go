package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"prompter/beep"
	"prompter/config"
	"prompter/encoder"
	"prompter/engine"
)

func TestMain(m *testing.M) {
	beep.Disable()
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Countdown = 0
	cfg.Speed = 1
	return cfg
}

func newTestSession(t *testing.T, raw string, cfg *config.Config) *session {
	t.Helper()
	path := filepath.Join(t.TempDir(), "talk.txt")
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := newSession(path, raw, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSessionReparseClampsOffset(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 3
	s := newTestSession(t, "aaa bbb ccc ddd", cfg)
	if end := s.eng.Script().EndOffset(); end != 4 {
		t.Fatalf("EndOffset at width 3 = %v, want 4", end)
	}
	s.seek(3)
	s.reparse(0)
	snap := s.eng.Snapshot()
	if snap.ScrollOffset != 1 {
		t.Errorf("offset after reparse = %v, want 1 (new end)", snap.ScrollOffset)
	}
	if snap.CurrentWord != 3 {
		t.Errorf("current word = %d, want 3", snap.CurrentWord)
	}
}

func TestSessionFitWidthFollowsTerminal(t *testing.T) {
	s := newTestSession(t, "aaa bbb ccc ddd", testConfig())
	s.fitWidth(7)
	if n := len(s.eng.Script().Lines()); n != 2 {
		t.Fatalf("lines at 7 cols = %d, want 2", n)
	}

	cfg := testConfig()
	cfg.Width = 100
	fixed := newTestSession(t, "aaa bbb ccc ddd", cfg)
	fixed.fitWidth(7)
	if n := len(fixed.eng.Script().Lines()); n != 1 {
		t.Errorf("configured width should ignore the terminal, got %d lines", n)
	}
}

func TestSessionRunSummaryOnFinish(t *testing.T) {
	s := newTestSession(t, "one two\n[PAUSE]\nthree", testConfig())
	s.play()
	for i := 0; i < 30 && s.eng.State() == engine.Playing; i++ {
		s.step(0.1)
	}
	if s.run.markers != 1 || s.eng.State() != engine.Paused {
		t.Fatalf("expected a marker pause, got markers=%d state=%v", s.run.markers, s.eng.State())
	}
	s.toggle()
	for i := 0; i < 30 && s.eng.State() == engine.Playing; i++ {
		s.step(0.1)
	}
	if s.runs != 1 {
		t.Fatalf("runs = %d, want 1 after reaching the end", s.runs)
	}
	if s.run.active {
		t.Error("run should be closed after finishing")
	}

	// Reset after the end must not log a second run.
	s.reset()
	if s.runs != 1 {
		t.Errorf("runs = %d after reset, want 1", s.runs)
	}
}

func TestSessionResetEndsRun(t *testing.T) {
	s := newTestSession(t, "one two three four", testConfig())
	s.play()
	s.step(0.1)
	s.step(0.1)
	if !s.run.active || s.run.played < 0.19 {
		t.Fatalf("run not tracked: %+v", s.run)
	}
	s.reset()
	if s.runs != 1 || s.run.active {
		t.Errorf("reset should close the run: runs=%d active=%v", s.runs, s.run.active)
	}
}

func TestSessionHoldSkipsCountdown(t *testing.T) {
	cfg := testConfig()
	cfg.Countdown = 3
	s := newTestSession(t, "hello world", cfg)
	s.holdStart()
	if s.eng.State() != engine.Playing {
		t.Fatalf("state = %v, want playing", s.eng.State())
	}
	s.pause()
	if s.eng.State() != engine.Paused {
		t.Errorf("release should pause, got %v", s.eng.State())
	}
}

func TestSessionSpeedInLines(t *testing.T) {
	s := newTestSession(t, "x", testConfig())
	s.setSpeed(2)
	s.adjustSpeed(-speedStep)
	if got := s.speed(); got != 1.75 {
		t.Errorf("speed = %v, want 1.75", got)
	}
	s.setSpeed(100)
	if got := s.speed(); got != config.Default().MaxSpeed {
		t.Errorf("speed = %v, want clamp to %v", got, config.Default().MaxSpeed)
	}
}

func TestSessionCopyNoteWithoutNote(t *testing.T) {
	s := newTestSession(t, "no notes here", testConfig())
	if err := s.copyNote(); !errors.Is(err, errNoNote) {
		t.Errorf("copyNote = %v, want errNoNote", err)
	}
}

func TestSessionReload(t *testing.T) {
	s := newTestSession(t, "one", testConfig())
	if err := os.WriteFile(s.path, []byte("one two three"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := s.reload(); err != nil {
		t.Fatal(err)
	}
	if n := s.eng.Script().WordCount(); n != 3 {
		t.Errorf("word count after reload = %d, want 3", n)
	}
	if s.currentNotice() == "" {
		t.Error("reload should leave a notice")
	}
}

func TestSessionParseWarningReportedOnce(t *testing.T) {
	s := newTestSession(t, "a [[open b", testConfig())
	if s.parseErr == nil {
		t.Fatal("expected a parse error to be kept")
	}
	s.notice = ""
	s.reparse(2)
	if s.notice != "" {
		t.Errorf("same parse error reported again: %q", s.notice)
	}
}

func TestSessionRecordsTakePerRun(t *testing.T) {
	s := newTestSession(t, "one two three four five six", testConfig())
	dir := t.TempDir()
	s.rec = encoder.NewRecorder(dir)

	s.play()
	if !s.rec.Recording() {
		t.Fatal("take should start with the run")
	}
	s.rec.Write(make([]byte, encoder.SampleRate/2))
	s.step(0.1)
	s.reset()
	if s.rec.Recording() {
		t.Error("reset should close the take")
	}
	takes, err := filepath.Glob(filepath.Join(dir, "talk-*.flac"))
	if err != nil {
		t.Fatal(err)
	}
	if len(takes) != 1 {
		t.Errorf("takes = %v, want one file", takes)
	}
}

func TestSessionPlayAtEndKeepsRunClosed(t *testing.T) {
	s := newTestSession(t, "one two", testConfig())
	s.rec = encoder.NewRecorder(t.TempDir())

	s.play()
	for i := 0; i < 20 && s.eng.State() == engine.Playing; i++ {
		s.step(0.1)
	}
	if s.runs != 1 || s.run.active || s.rec.Recording() {
		t.Fatalf("after finish: runs=%d active=%v recording=%v", s.runs, s.run.active, s.rec.Recording())
	}

	s.toggle()
	s.step(1)
	s.play()
	s.step(1)
	if s.eng.State() != engine.Paused {
		t.Errorf("state = %v, want paused at the end", s.eng.State())
	}
	if s.run.active || s.rec.Recording() || s.runs != 1 {
		t.Errorf("play at the end reopened a run: runs=%d active=%v recording=%v", s.runs, s.run.active, s.rec.Recording())
	}
}
