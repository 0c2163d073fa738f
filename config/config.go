// Package config loads prompter settings from an optional YAML file and
// lets command-line flags override individual keys.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"prompter/engine"
	"prompter/hotkey"
	"prompter/voice"
	"prompter/wpm"
)

type Config struct {
	Speed            float64 `yaml:"speed"`
	MinSpeed         float64 `yaml:"min_speed"`
	MaxSpeed         float64 `yaml:"max_speed"`
	Countdown        float64 `yaml:"countdown"`
	TargetWPM        float64 `yaml:"target_wpm"`
	AutoSpeed        bool    `yaml:"auto_speed"`
	MicThreshold     float64 `yaml:"mic_threshold"`
	AttackMs         int     `yaml:"attack_ms"`
	ReleaseMs        int     `yaml:"release_ms"`
	StaleMs          int     `yaml:"stale_ms"`
	WPMWindowS       float64 `yaml:"wpm_window_s"`
	ResetWPMOnMarker bool    `yaml:"reset_wpm_on_marker"`
	FontPath         string  `yaml:"font_path"`
	FontSize         float64 `yaml:"font_size"`
	LineSpacing      float64 `yaml:"line_spacing"`
	Width            int     `yaml:"width"` // wrap column; 0 follows the terminal
	Device           string  `yaml:"device"`
	HoldToScroll     bool    `yaml:"hold_to_scroll"`
	Hotkey           string  `yaml:"hotkey"`
	Record           bool    `yaml:"record"` // save each run's microphone audio as FLAC
}

func Default() *Config {
	return &Config{
		Speed:        engine.DefaultSpeed,
		MinSpeed:     engine.DefaultMinSpeed,
		MaxSpeed:     engine.DefaultMaxSpeed,
		Countdown:    engine.DefaultCountdown,
		TargetWPM:    wpm.DefaultTarget,
		MicThreshold: voice.DefaultThreshold,
		AttackMs:     int(voice.DefaultAttack / time.Millisecond),
		ReleaseMs:    int(voice.DefaultRelease / time.Millisecond),
		StaleMs:      int(voice.DefaultStale / time.Millisecond),
		WPMWindowS:   wpm.DefaultWindow.Seconds(),
		FontSize:     48,
		LineSpacing:  1.2,
		Hotkey:       hotkey.DefaultCombo,
	}
}

// ResolvePath picks the config file: -config flag, then PROMPTER_CONFIG,
// then the per-user default location.
func ResolvePath(flagPath string) (string, error) {
	if flagPath != "" {
		return flagPath, nil
	}
	if env := os.Getenv("PROMPTER_CONFIG"); env != "" {
		return env, nil
	}
	return defaultPath()
}

func defaultPath() (string, error) {
	if runtime.GOOS == "windows" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "prompter", "config.yaml"), nil
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "prompter", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate pulls numeric settings back into range.
func (c *Config) Validate() {
	d := Default()
	if c.MinSpeed <= 0 {
		c.MinSpeed = d.MinSpeed
	}
	if c.MaxSpeed < c.MinSpeed {
		c.MaxSpeed = d.MaxSpeed
		if c.MaxSpeed < c.MinSpeed {
			c.MaxSpeed = c.MinSpeed
		}
	}
	if c.Speed < c.MinSpeed {
		c.Speed = c.MinSpeed
	} else if c.Speed > c.MaxSpeed {
		c.Speed = c.MaxSpeed
	}
	if c.Countdown < 0 {
		c.Countdown = 0
	}
	if c.TargetWPM < 0 {
		c.TargetWPM = 0
	}
	if c.MicThreshold <= 0 || c.MicThreshold >= 1 {
		c.MicThreshold = d.MicThreshold
	}
	if c.AttackMs < 0 {
		c.AttackMs = d.AttackMs
	}
	if c.ReleaseMs < 0 {
		c.ReleaseMs = d.ReleaseMs
	}
	if c.StaleMs <= 0 {
		c.StaleMs = d.StaleMs
	}
	if c.WPMWindowS <= 0 {
		c.WPMWindowS = d.WPMWindowS
	}
	if c.FontSize <= 0 {
		c.FontSize = d.FontSize
	}
	if c.LineSpacing <= 0 {
		c.LineSpacing = d.LineSpacing
	}
	if c.Width < 0 {
		c.Width = 0
	}
	if c.Hotkey == "" {
		c.Hotkey = d.Hotkey
	}
}

func (c *Config) Engine() engine.Config {
	return engine.Config{
		Speed:            c.Speed,
		MinSpeed:         c.MinSpeed,
		MaxSpeed:         c.MaxSpeed,
		Countdown:        c.Countdown,
		MaxStep:          engine.DefaultMaxStep,
		AutoSpeed:        c.AutoSpeed,
		TargetWPM:        c.TargetWPM,
		WPMWindow:        time.Duration(c.WPMWindowS * float64(time.Second)),
		ResetWPMOnMarker: c.ResetWPMOnMarker,
	}
}

func (c *Config) Gate() voice.GateConfig {
	return voice.GateConfig{
		Threshold: c.MicThreshold,
		Attack:    gateHold(c.AttackMs),
		Release:   gateHold(c.ReleaseMs),
		Stale:     time.Duration(c.StaleMs) * time.Millisecond,
	}
}

// gateHold converts a hold time from the file. 0 ms is taken literally,
// which the gate spells as a negative duration.
func gateHold(ms int) time.Duration {
	if ms == 0 {
		return -1
	}
	return time.Duration(ms) * time.Millisecond
}

// Flags binds one command-line flag per config key. Only flags the user
// actually passed override the file.
type Flags struct {
	fs   *flag.FlagSet
	vals *Config
}

func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	v := &Config{}
	fs.Float64Var(&v.Speed, "speed", d.Speed, "Scroll speed in lines per second")
	fs.Float64Var(&v.MinSpeed, "min-speed", d.MinSpeed, "Lowest allowed scroll speed")
	fs.Float64Var(&v.MaxSpeed, "max-speed", d.MaxSpeed, "Highest allowed scroll speed")
	fs.Float64Var(&v.Countdown, "countdown", d.Countdown, "Seconds of countdown before playback (0 disables)")
	fs.Float64Var(&v.TargetWPM, "target-wpm", d.TargetWPM, "Target reading pace for the WPM band")
	fs.BoolVar(&v.AutoSpeed, "auto-speed", d.AutoSpeed, "Hold the scroll while the microphone hears silence")
	fs.Float64Var(&v.MicThreshold, "mic-threshold", d.MicThreshold, "Voice threshold on smoothed RMS (0-1)")
	fs.IntVar(&v.AttackMs, "attack-ms", d.AttackMs, "Sustained voice before speech is detected (ms, 0 = immediate)")
	fs.IntVar(&v.ReleaseMs, "release-ms", d.ReleaseMs, "Sustained quiet before silence is detected (ms, 0 = immediate)")
	fs.IntVar(&v.StaleMs, "stale-ms", d.StaleMs, "Treat the microphone as absent after this long without audio (ms)")
	fs.Float64Var(&v.WPMWindowS, "wpm-window", d.WPMWindowS, "WPM averaging window in seconds")
	fs.BoolVar(&v.ResetWPMOnMarker, "reset-wpm-on-marker", d.ResetWPMOnMarker, "Clear WPM history at every [PAUSE]")
	fs.StringVar(&v.FontPath, "font", d.FontPath, "TTF/OTF font used to measure line wrapping (default: terminal cells)")
	fs.Float64Var(&v.FontSize, "font-size", d.FontSize, "Font size in points when -font is set")
	fs.Float64Var(&v.LineSpacing, "line-spacing", d.LineSpacing, "Line height as a multiple of the font height")
	fs.IntVar(&v.Width, "width", d.Width, "Wrap column (0 follows the terminal)")
	fs.StringVar(&v.Device, "device", d.Device, "Use named microphone device")
	fs.BoolVar(&v.HoldToScroll, "hold", d.HoldToScroll, "Hotkey hold scrolls, tap toggles")
	fs.StringVar(&v.Hotkey, "hotkey", d.Hotkey, "Global play/pause key (e.g. ctrl+shift+space, pagedown)")
	fs.BoolVar(&v.Record, "record", d.Record, "Save each run's microphone audio as FLAC in the takes folder")
	return &Flags{fs: fs, vals: v}
}

// Apply copies every explicitly set flag onto c and revalidates.
func (f *Flags) Apply(c *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "speed":
			c.Speed = f.vals.Speed
		case "min-speed":
			c.MinSpeed = f.vals.MinSpeed
		case "max-speed":
			c.MaxSpeed = f.vals.MaxSpeed
		case "countdown":
			c.Countdown = f.vals.Countdown
		case "target-wpm":
			c.TargetWPM = f.vals.TargetWPM
		case "auto-speed":
			c.AutoSpeed = f.vals.AutoSpeed
		case "mic-threshold":
			c.MicThreshold = f.vals.MicThreshold
		case "attack-ms":
			c.AttackMs = f.vals.AttackMs
		case "release-ms":
			c.ReleaseMs = f.vals.ReleaseMs
		case "stale-ms":
			c.StaleMs = f.vals.StaleMs
		case "wpm-window":
			c.WPMWindowS = f.vals.WPMWindowS
		case "reset-wpm-on-marker":
			c.ResetWPMOnMarker = f.vals.ResetWPMOnMarker
		case "font":
			c.FontPath = f.vals.FontPath
		case "font-size":
			c.FontSize = f.vals.FontSize
		case "line-spacing":
			c.LineSpacing = f.vals.LineSpacing
		case "width":
			c.Width = f.vals.Width
		case "device":
			c.Device = f.vals.Device
		case "hold":
			c.HoldToScroll = f.vals.HoldToScroll
		case "hotkey":
			c.Hotkey = f.vals.Hotkey
		case "record":
			c.Record = f.vals.Record
		}
	})
	c.Validate()
}
