package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"prompter/beep"
	"prompter/clipboard"
	"prompter/config"
	"prompter/encoder"
	"prompter/engine"
	"prompter/log"
	"prompter/script"
	"prompter/voice"
)

const (
	speedStep        = 0.25 // lines per second per ↑/↓
	seekLines        = 4
	defaultFaceWidth = 960 // px, when -font is set without -width
	fontDPI          = 72
	noticeFor        = 3 * time.Second
)

var errNoNote = errors.New("no presenter note at this position")

type runStats struct {
	active  bool
	played  float64 // seconds spent Playing
	markers int
}

// session ties one script file to an engine, the microphone gate and the
// silence monitor. It is not safe for concurrent use: the TUI update loop
// or the headless command loop owns it.
type session struct {
	path string
	raw  string
	cfg  *config.Config

	metrics script.Metrics
	lh      float64 // one layout line in offset units
	width   float64

	eng    *engine.Engine
	gate   *voice.Gate       // nil without a microphone
	rec    *encoder.Recorder // nil unless takes are recorded
	mon    *voice.SilenceMonitor
	monAcc float64

	run      runStats
	runs     int
	finished bool
	warn     bool
	parseErr *script.ParseError

	notice   string
	noticeAt time.Time

	out io.Writer // headless event echo, nil in the TUI
}

func newSession(path, raw string, cfg *config.Config, gate *voice.Gate) (*session, error) {
	s := &session{path: path, raw: raw, cfg: cfg, gate: gate}

	if cfg.FontPath != "" {
		face, err := script.LoadFace(cfg.FontPath, cfg.FontSize, fontDPI)
		if err != nil {
			return nil, err
		}
		s.metrics = script.NewFaceMetrics(face, cfg.LineSpacing)
	} else {
		s.metrics = script.CellMetrics{}
	}
	s.lh = s.metrics.LineHeight()

	// speeds are configured in lines per second
	ecfg := cfg.Engine()
	ecfg.Speed *= s.lh
	ecfg.MinSpeed *= s.lh
	ecfg.MaxSpeed *= s.lh

	var det engine.SpeechDetector
	if gate != nil {
		det = gate
	}
	s.eng = engine.New(ecfg, det, sessionEvents{s})
	s.mon = voice.NewSilenceMonitor(voice.DefaultMonitorTick, s.listening)

	width := float64(cfg.Width)
	if width <= 0 && cfg.FontPath != "" {
		width = defaultFaceWidth
	}
	s.reparse(width)
	return s, nil
}

func readScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(data), nil
}

func (s *session) name() string { return filepath.Base(s.path) }

// reparse lays the text out again at width and reconciles playback with the
// new layout. Malformed markers are reported once per distinct error.
func (s *session) reparse(width float64) {
	s.width = width
	sc, err := script.Parse(s.raw, s.metrics, width)
	s.eng.Load(sc)

	var perr *script.ParseError
	if !errors.As(err, &perr) {
		s.parseErr = nil
		return
	}
	if s.parseErr == nil || *s.parseErr != *perr {
		log.ParseWarning(perr.Offset, perr.Msg)
		s.notify(perr.Error())
	}
	s.parseErr = perr
}

// reload re-reads the script file and keeps the scroll position.
func (s *session) reload() error {
	raw, err := readScript(s.path)
	if err != nil {
		return err
	}
	s.raw = raw
	s.reparse(s.width)
	log.Info("script_reloaded")
	s.notify("reloaded " + s.name())
	return nil
}

// fitWidth follows the terminal when no wrap width is configured. Font
// layouts wrap in pixels and ignore the terminal.
func (s *session) fitWidth(cols int) {
	if s.cfg.Width > 0 || s.cfg.FontPath != "" {
		return
	}
	if w := float64(cols); w != s.width {
		s.reparse(w)
	}
}

func (s *session) step(dt float64) engine.Snapshot {
	playing := s.eng.State() == engine.Playing
	s.eng.Tick(dt)
	if playing && dt > 0 {
		s.run.played += math.Min(dt, engine.DefaultMaxStep)
	}
	s.watchSilence(dt)
	if s.finished {
		s.finished = false
		s.endRun(true)
	}
	return s.eng.Snapshot()
}

// listening reports whether silence should hold or stop the scroll.
func (s *session) listening() bool {
	return s.gate != nil && s.eng.AutoSpeed() && s.eng.State() == engine.Playing
}

func (s *session) watchSilence(dt float64) {
	if s.gate == nil || !(dt > 0) {
		return
	}
	tick := voice.DefaultMonitorTick.Seconds()
	s.monAcc = math.Min(s.monAcc+dt, 1)
	for s.monAcc >= tick {
		s.monAcc -= tick
		s.onSilence(s.mon.Tick(s.gate.IsSpeechPresent()))
	}
}

func (s *session) onSilence(ev voice.SilenceEvent) {
	switch ev {
	case voice.SilenceWarn:
		s.warn = true
		log.Info("no_voice_warning")
		s.echo("silence warn")
		if s.listening() {
			beep.PlayWarn()
		}
	case voice.SilenceWarnClear:
		s.warn = false
		s.echo("silence clear")
	case voice.SilenceRepeat:
		log.Info("silence_during_warning")
		beep.PlayWarn()
	case voice.SilenceAutoPause:
		log.Info("silence_auto_pause")
		s.echo("silence auto_pause")
		s.eng.Pause()
		s.mon.Reset()
		s.warn = false
		s.notify("paused: no voice for 30s")
	}
}

func (s *session) toggle() { s.eng.TogglePlayPause() }
func (s *session) play()   { s.eng.Play() }
func (s *session) pause()  { s.eng.Pause() }

// holdStart scrolls immediately, skipping the countdown.
func (s *session) holdStart() {
	s.eng.Play()
	if s.eng.State() == engine.Countdown {
		s.eng.TogglePlayPause()
	}
}

func (s *session) reset() {
	if s.run.active {
		s.endRun(false)
	}
	s.eng.Reset()
	s.mon.Reset()
	s.warn = false
}

func (s *session) seek(lines float64) { s.eng.Seek(lines * s.lh) }

// speed reports the base speed in lines per second.
func (s *session) speed() float64 { return s.eng.Speed() / s.lh }

func (s *session) setSpeed(linesPerSec float64) { s.eng.SetSpeed(linesPerSec * s.lh) }

func (s *session) adjustSpeed(delta float64) { s.setSpeed(s.speed() + delta) }

func (s *session) setAuto(on bool) {
	s.eng.SetAutoSpeedEnabled(on)
	if !on {
		s.warn = false
	}
	log.Info(fmt.Sprintf("auto_speed: %t", on))
}

func (s *session) copyNote() error {
	note := s.eng.Snapshot().Note
	if note == "" {
		return errNoNote
	}
	return clipboard.Copy(note)
}

// startRun opens the bookkeeping, and the take when recording, for a run
// that has just left Stopped or Paused.
func (s *session) startRun() {
	s.run = runStats{active: true}
	if s.rec == nil {
		return
	}
	if _, err := s.rec.Start(s.name()); err != nil {
		log.Warnf("take start error: %v", err)
		s.notify("recording failed: " + err.Error())
	}
}

// endRun writes the rehearsal summary for the run in progress.
func (s *session) endRun(done bool) {
	if s.rec != nil && s.rec.Recording() {
		take, err := s.rec.Stop()
		if err != nil {
			log.Warnf("take save error: %v", err)
		} else {
			log.TakeSaved(take.Path, take.Duration)
			s.echo("take " + filepath.Base(take.Path))
		}
	}

	snap := s.eng.Snapshot()
	words := snap.CurrentWord + 1
	var avg float64
	if s.run.played > 0 {
		avg = float64(words) / s.run.played * 60
	}
	log.RunSummary(log.Run{
		Script:    s.name(),
		Duration:  time.Duration(s.run.played * float64(time.Second)),
		Words:     words,
		Markers:   s.run.markers,
		AvgWPM:    avg,
		TargetWPM: s.eng.TargetWPM(),
		Finished:  done,
	})
	s.echo(fmt.Sprintf("run words=%d avg_wpm=%.0f finished=%t", words, avg, done))
	s.runs++
	s.run = runStats{}
}

func (s *session) notify(text string) {
	s.notice = text
	s.noticeAt = time.Now()
}

// currentNotice returns the last notice while it is still fresh.
func (s *session) currentNotice() string {
	if s.notice == "" || time.Since(s.noticeAt) > noticeFor {
		return ""
	}
	return s.notice
}

func (s *session) echo(event string) {
	if s.out != nil {
		fmt.Fprintf(s.out, "event %s\n", event)
	}
}
