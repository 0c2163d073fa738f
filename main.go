package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"prompter/audio"
	"prompter/beep"
	"prompter/config"
	"prompter/doctor"
	"prompter/encoder"
	"prompter/hotkey"
	"prompter/log"
	"prompter/shutdown"
	"prompter/voice"
)

var version = "dev"

var shutdownOnce sync.Once

// gracefulShutdown closes the run in progress and the logs. The caller must
// own the session: the TUI has returned or the headless loop has ended.
func gracefulShutdown(s *session) {
	shutdownOnce.Do(func() {
		if s != nil {
			if s.run.active {
				s.endRun(false)
			}
			log.SessionEnd(s.runs)
		}
		log.Close()
	})
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: prompter [flags] <script.txt>\n\n")
	fmt.Fprintf(os.Stderr, "Scrolls a script in the terminal. [PAUSE] stops the scroll, [[note]] is a presenter note.\n\nFlags:\n")
	flag.PrintDefaults()
}

func run() {
	cfgFlags := config.RegisterFlags(flag.CommandLine)
	configFlag := flag.String("config", "", "YAML config file (default: $XDG_CONFIG_HOME/prompter/config.yaml)")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	noMicFlag := flag.Bool("nomic", false, "Do not open a microphone; auto-speed never holds the scroll")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for hold vs tap (with -hold)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	headlessFlag := flag.Bool("headless", false, "Headless mode (stdin-driven, virtual clock)")
	wavFlag := flag.String("wav", "", "Headless mode: replay a 16kHz mono WAV as the microphone")
	flag.Usage = usage
	flag.Parse()

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("prompter %s\n", version)
		os.Exit(0)
	}

	cfgPath, err := config.ResolvePath(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfgFlags.Apply(cfg)

	combo, err := hotkey.ParseCombo(cfg.Hotkey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using %s\n", err, hotkey.DefaultCombo)
		combo, _ = hotkey.ParseCombo(hotkey.DefaultCombo)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(doctor.Options{
			Hotkey:   combo,
			Gate:     cfg.Gate(),
			Device:   cfg.Device,
			FontPath: cfg.FontPath,
			FontSize: cfg.FontSize,
		}))
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	scriptPath := flag.Arg(0)
	raw, err := readScript(scriptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *headlessFlag {
		if err := runTestMode(scriptPath, raw, cfg, *wavFlag, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			log.Close()
			os.Exit(1)
		}
		return
	}

	var gate *voice.Gate
	var capture audio.CaptureDevice
	var rec *encoder.Recorder
	if !*noMicFlag {
		if cfg.Record {
			rec = encoder.NewRecorder(filepath.Join(log.Dir(), "takes"))
		}
		gate, capture = openMic(cfg, *setupFlag, rec)
	}
	if capture != nil {
		defer capture.Close()
	}

	s, err := newSession(scriptPath, raw, cfg, gate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if gate != nil {
		s.rec = rec
	}
	deviceName := ""
	if capture != nil {
		deviceName = capture.DeviceName()
	}
	sc := s.eng.Script()
	log.SessionStart(scriptPath, sc.WordCount(), len(sc.Markers()), s.eng.AutoSpeed(), deviceName)

	go beep.Init()

	hotkeyLabel := ""
	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: global hotkey unavailable: %v\n", err)
	} else {
		defer hk.Unregister()
		hotkeyLabel = combo.String()
		go forwardHotkey(hk, cfg.HoldToScroll, *longPressFlag)
	}

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(s, deviceName, hotkeyLabel)
	tuiMu.Unlock()

	sigChan := shutdown.Signals()
	defer shutdown.Stop(sigChan)
	go func() {
		<-sigChan
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		p.Quit()
	}()

	if _, err := tuiProgram.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if capture != nil {
		capture.Stop()
		capture.ClearCallback()
	}
	gracefulShutdown(s)
}

// openMic starts capture into a fresh gate. Any failure leaves the app
// running without a microphone.
func openMic(cfg *config.Config, setup bool, rec *encoder.Recorder) (*voice.Gate, audio.CaptureDevice) {
	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: microphone unavailable: %v\n", err)
		return nil, nil
	}

	var selected *audio.DeviceInfo
	if cfg.Device != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == cfg.Device {
					selected = &devices[i]
					break
				}
			}
		}
		if selected == nil {
			log.Warnf("device not found: %s", cfg.Device)
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using system default\n", cfg.Device)
		}
	} else if setup {
		selected, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			selected = nil
		}
	}
	if selected != nil && audio.IsBluetooth(selected.Name) {
		fmt.Fprintf(os.Stderr, "Warning: %s looks like a Bluetooth headset; its mic may lower playback quality\n", selected.Name)
	}

	capture, err := ctx.NewCapture(selected, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: microphone unavailable: %v\n", err)
		return nil, nil
	}

	gate := voice.NewGate(cfg.Gate())
	capture.SetCallback(func(data []byte, _ uint32) {
		gate.PushLevel(audio.Level(data))
		if rec != nil {
			rec.Write(data)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		log.Errorf("capture start error: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: microphone unavailable: %v\n", err)
		return nil, nil
	}
	log.Info("recording_device: " + capture.DeviceName())
	return gate, capture
}

// forwardHotkey turns global key presses into TUI messages. With hold
// enabled a tap toggles and a long press scrolls only while held.
func forwardHotkey(hk hotkey.Hotkey, hold bool, longPress time.Duration) {
	if hold {
		hy := hotkey.NewHybrid(hk, longPress)
		for a := range hy.Actions() {
			log.Info("hotkey_" + a.String())
			tuiSend(hotkeyMsg(a))
		}
		return
	}
	for range hk.Keydown() {
		log.Info("hotkey_down")
		tuiSend(hotkeyMsg(hotkey.ActionToggle))
	}
}
