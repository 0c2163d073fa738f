package doctor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"prompter/audio"
	"prompter/clipboard"
	"prompter/hotkey"
	"prompter/script"
	"prompter/voice"
)

type Options struct {
	Hotkey   hotkey.Combo
	Gate     voice.GateConfig
	Device   string // preferred microphone; empty asks when there are several
	FontPath string
	FontSize float64
}

var tty *terminal

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(opts Options) int {
	tty = saveTerminal()
	tty.exitOnInterrupt()
	defer tty.restore()

	fmt.Println("prompter doctor - interactive system diagnostics")
	fmt.Println("================================================")

	checks := []func(Options) bool{checkHotkey, checkMicAndGate, checkClipboard, checkFont}
	allPass := true
	for _, check := range checks {
		if !check(opts) {
			allPass = false
		}
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkHotkey(opts Options) bool {
	fmt.Println()
	fmt.Println("[1/4] Global hotkey")

	msg, err := hotkey.Diagnose()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  %s\n", msg)
	fmt.Printf("Press %s...\n", opts.Hotkey)

	hk := hotkey.New(opts.Hotkey)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		tty.restore()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func pickDevice(ctx audio.Context, preferred string, reader *bufio.Reader) (*audio.DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	for i := range devices {
		if devices[i].Name == preferred {
			return &devices[i], nil
		}
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fmt.Println()
	fmt.Println("Select input device:")
	for i, d := range devices {
		fmt.Printf("  %d. %s\n", i+1, d.Name)
	}
	fmt.Printf("Choice [1-%d]: ", len(devices))

	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	idx := 0
	if choice != "" {
		fmt.Sscanf(choice, "%d", &idx)
		idx--
	}
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("invalid choice")
	}
	return &devices[idx], nil
}

func checkMicAndGate(opts Options) bool {
	fmt.Println()
	fmt.Println("[2/4] Microphone and voice detection")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	device, err := pickDevice(ctx, opts.Device, reader)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("Using device: %s\n", device.Name)
	if audio.IsBluetooth(device.Name) {
		fmt.Println("  Note: Bluetooth microphones add latency to voice detection")
	}

	fmt.Println()
	fmt.Print("Press Enter, stay quiet for 2 seconds, then read a sentence aloud...")
	reader.ReadString('\n')

	gate := voice.NewGate(opts.Gate)
	res, err := listen(ctx, device, gate, 6*time.Second)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if res.chunks == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	fmt.Printf("  Peak level %.3f (threshold %.3f), quiet floor %.3f\n", res.peak, gate.Config().Threshold, res.floor)
	switch {
	case !res.sawSpeech:
		fmt.Println("  FAIL: speech never detected; lower mic_threshold or move closer")
		return false
	case !res.sawSilence:
		fmt.Println("  FAIL: silence never detected; raise mic_threshold or reduce background noise")
		return false
	}
	fmt.Println("  PASS: voice gate switched between silence and speech")
	return true
}

type listenResult struct {
	chunks     int
	peak       float64
	floor      float64
	sawSpeech  bool
	sawSilence bool
}

func listen(ctx audio.Context, device *audio.DeviceInfo, gate *voice.Gate, d time.Duration) (listenResult, error) {
	var res listenResult

	captureDevice, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return res, err
	}
	defer captureDevice.Close()

	levels := make(chan float64, 256)
	captureDevice.SetCallback(func(data []byte, _ uint32) {
		l := audio.Level(data)
		gate.PushLevel(l)
		select {
		case levels <- l:
		default:
		}
	})
	if err := captureDevice.Start(); err != nil {
		return res, err
	}
	defer captureDevice.Stop()

	res.floor = 1
	deadline := time.After(d)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case l := <-levels:
			res.chunks++
			res.peak = max(res.peak, l)
			res.floor = min(res.floor, l)
		case <-ticker.C:
			if gate.Stale() {
				continue
			}
			speech := gate.IsSpeechPresent()
			if speech {
				res.sawSpeech = true
			} else {
				res.sawSilence = true
			}
			bar := int(min(gate.Level()*200, 40))
			state := "quiet"
			if speech {
				state = "SPEECH"
			}
			fmt.Printf("\r  [%-40s] %-6s", strings.Repeat("#", bar), state)
		case <-deadline:
			captureDevice.ClearCallback()
			fmt.Println()
			return res, nil
		}
	}
}

func checkClipboard(_ Options) bool {
	fmt.Println()
	fmt.Println("[3/4] Clipboard (copying notes)")

	if !clipboard.Available() {
		fmt.Printf("  FAIL: %v\n", clipboard.ErrUnsupported)
		return false
	}
	msg, err := clipboard.Verify()
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s\n", msg)
	return true
}

func checkFont(opts Options) bool {
	fmt.Println()
	fmt.Println("[4/4] Layout font")

	if opts.FontPath == "" {
		fmt.Println("  PASS: no font configured, wrapping by terminal cells")
		return true
	}
	face, err := script.LoadFace(opts.FontPath, opts.FontSize, 72)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	m := script.NewFaceMetrics(face, 0)
	fmt.Printf("  PASS: %s loaded, line height %.1fpx, space %.1fpx\n", opts.FontPath, m.LineHeight(), m.SpaceWidth())
	return true
}
