package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"prompter/audio"
	"prompter/beep"
	"prompter/config"
	"prompter/encoder"
	"prompter/engine"
	"prompter/log"
	"prompter/voice"
)

const (
	micFrame  = float64(audio.FrameSamples) / audio.SampleRate // one fake capture chunk
	levelStep = 0.01
)

// headless drives a session from stdin commands on a virtual clock, so a
// scripted run behaves the same on any machine.
type headless struct {
	s   *session
	out io.Writer

	now float64

	// -wav chunks, one per micFrame, consumed as the clock advances
	mic   [][]byte
	micAt float64

	// LEVEL: a constant amplitude pushed every levelStep
	steady   bool
	level    float64
	lastPush float64
}

func runTestMode(path, raw string, cfg *config.Config, wavPath string, in io.Reader, out io.Writer) error {
	beep.Disable()

	h := &headless{out: out}
	gcfg := cfg.Gate()
	gcfg.Now = func() float64 { return h.now }
	gate := voice.NewGate(gcfg)

	s, err := newSession(path, raw, cfg, gate)
	if err != nil {
		return err
	}
	s.out = out
	h.s = s

	device := ""
	if wavPath != "" {
		h.mic, err = loadMicFrames(wavPath)
		if err != nil {
			return err
		}
		device = "fake"
		if cfg.Record {
			s.rec = encoder.NewRecorder(filepath.Join(log.Dir(), "takes"))
		}
	}
	sc := s.eng.Script()
	log.SessionStart(path, sc.WordCount(), len(sc.Markers()), s.eng.AutoSpeed(), device)

	h.loop(in)
	gracefulShutdown(s)
	return nil
}

// loadMicFrames replays a WAV through the fake capture device and keeps
// every chunk it delivers.
func loadMicFrames(wavPath string) ([][]byte, error) {
	ctx, err := audio.NewFakeContext(wavPath)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	capture, err := ctx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: audio.SampleRate, Channels: audio.Channels,
	})
	if err != nil {
		return nil, err
	}
	defer capture.Close()

	var frames [][]byte
	capture.SetCallback(func(data []byte, _ uint32) {
		frames = append(frames, data)
	})
	// the fake device delivers the whole file before Start returns
	if err := capture.Start(); err != nil {
		return nil, err
	}
	capture.Stop()
	capture.ClearCallback()
	return frames, nil
}

func (h *headless) loop(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !h.exec(strings.Fields(line)) {
			return
		}
	}
}

// exec runs one command and reports whether to keep reading.
func (h *headless) exec(args []string) bool {
	s := h.s
	switch strings.ToUpper(args[0]) {
	case "PLAY":
		s.play()
	case "PAUSE":
		s.pause()
	case "TOGGLE":
		s.toggle()
	case "HOLD":
		s.holdStart()
	case "RELEASE":
		s.pause()
	case "RESET":
		s.reset()
	case "TICK":
		dt, ok := h.floatArg(args, 1)
		if ok {
			h.advance(dt)
		}
	case "RUN":
		secs, ok1 := h.floatArg(args, 1)
		dt, ok2 := h.floatArg(args, 2)
		if ok1 && ok2 && dt > 0 {
			for n := int(math.Round(secs / dt)); n > 0; n-- {
				h.advance(dt)
			}
		}
	case "SEEK":
		if lines, ok := h.floatArg(args, 1); ok {
			s.seek(lines)
		}
	case "SPEED":
		if v, ok := h.floatArg(args, 1); ok {
			s.setSpeed(v)
		}
	case "TARGET":
		if v, ok := h.floatArg(args, 1); ok {
			s.eng.SetTargetWPM(v)
		}
	case "AUTO":
		s.setAuto(len(args) > 1 && strings.EqualFold(args[1], "on"))
	case "LEVEL":
		h.setLevel(args)
	case "WIDTH":
		if w, ok := h.floatArg(args, 1); ok {
			s.reparse(w)
		}
	case "RELOAD":
		if err := s.reload(); err != nil {
			fmt.Fprintf(h.out, "error %v\n", err)
		}
	case "SNAPSHOT":
		h.printSnapshot()
	case "QUIT":
		return false
	default:
		fmt.Fprintf(h.out, "error unknown command %q\n", args[0])
	}
	return true
}

func (h *headless) floatArg(args []string, i int) (float64, bool) {
	if len(args) <= i {
		fmt.Fprintf(h.out, "error %s: missing argument\n", args[0])
		return 0, false
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		fmt.Fprintf(h.out, "error %s: %v\n", args[0], err)
		return 0, false
	}
	return v, true
}

func (h *headless) setLevel(args []string) {
	if len(args) < 2 || strings.EqualFold(args[1], "off") {
		h.steady = false
		return
	}
	amp, ok := h.floatArg(args, 1)
	if !ok {
		return
	}
	h.steady = true
	h.level = amp
	h.lastPush = h.now
	h.s.gate.PushSample(amp, h.now)
}

// advance moves the virtual clock, delivers the microphone samples that
// fall inside the step and then ticks the session.
func (h *headless) advance(dt float64) {
	if dt > 0 {
		end := h.now + dt
		for len(h.mic) > 0 && h.micAt <= end {
			h.s.gate.PushSample(audio.Level(h.mic[0]), h.micAt)
			if h.s.rec != nil {
				h.s.rec.Write(h.mic[0])
			}
			h.mic = h.mic[1:]
			h.micAt += micFrame
		}
		if h.steady {
			for t := h.lastPush + levelStep; t <= end+1e-9; t += levelStep {
				h.s.gate.PushSample(h.level, t)
				h.lastPush = t
			}
		}
		h.now = end
	}
	h.s.step(dt)
}

func (h *headless) printSnapshot() {
	snap := h.s.eng.Snapshot()
	fmt.Fprintf(h.out, "snapshot state=%s offset=%.3f line=%d word=%d wpm=%.1f band=%s speed=%.2f auto=%t speech=%t progress=%.3f remaining=%.1f note=%q\n",
		snap.State, snap.ScrollOffset, h.s.eng.Script().LineAt(snap.ScrollOffset), snap.CurrentWord,
		snap.WPM, snap.Band, h.s.speed(), h.s.eng.AutoSpeed(), h.s.gate.IsSpeechPresent(),
		snap.Progress, snap.Remaining, snap.Note)
	if snap.State == engine.Countdown {
		fmt.Fprintf(h.out, "countdown %.2f\n", snap.CountdownRemaining)
	}
}
