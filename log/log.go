package log

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog       zerolog.Logger
	diagFile      *os.File
	rehearsalFile *os.File
	logMu         sync.Mutex
	logReady      bool
	pid           int
	dir           string
)

// Run summarizes one pass through a script, from Play to end or Reset.
type Run struct {
	Script    string
	Duration  time.Duration // time spent playing
	Words     int
	Markers   int
	AvgWPM    float64
	TargetWPM float64
	Finished  bool // reached the end rather than being reset
}

// ResolveDir picks the log directory: -logpath flag, then
// PROMPTER_LOG_PATH, then the per-OS default. Relative paths are taken
// from the working directory.
func ResolveDir(flagPath string) (string, error) {
	for _, p := range []string{flagPath, os.Getenv("PROMPTER_LOG_PATH")} {
		if p != "" {
			return filepath.Abs(p)
		}
	}
	return defaultDir()
}

func defaultDir() (string, error) {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "prompter", "logs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "prompter"), nil
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "prompter", "logs"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	rehearsalPath := filepath.Join(dir, "rehearsal_log.txt")
	rehearsalFile, err = os.OpenFile(rehearsalPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if rehearsalFile != nil {
		rehearsalFile.Close()
		rehearsalFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(scriptPath string, words, markers int, autoSpeed bool, device string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("script", scriptPath).
		Int("words", words).
		Int("markers", markers).
		Bool("auto_speed", autoSpeed)
	if device != "" {
		ev = ev.Str("device", device)
	}
	ev.Msg("session_start")
}

func StateChange(from, to string, offset float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Float64("offset", offset).
		Msg("state_change")
}

func MarkerPause(offset float64, word int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("offset", offset).
		Int("word", word).
		Msg("marker_pause")
}

func ParseWarning(offset int, msg string) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Int("byte", offset).
		Str("detail", msg).
		Msg("script_parse")
}

// RunSummary writes one line to the rehearsal log and mirrors it as a
// structured diagnostics event.
func RunSummary(r Run) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("script", r.Script).
		Float64("duration_s", r.Duration.Seconds()).
		Int("words", r.Words).
		Int("markers", r.Markers).
		Float64("avg_wpm", r.AvgWPM).
		Float64("target_wpm", r.TargetWPM).
		Bool("finished", r.Finished).
		Msg("run_summary")

	logMu.Lock()
	defer logMu.Unlock()
	if rehearsalFile == nil {
		return
	}
	status := "reset"
	if r.Finished {
		status = "finished"
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%.1fs\t%d words\t%.0f wpm (target %.0f)\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, status, r.Script,
		r.Duration.Seconds(), r.Words, r.AvgWPM, r.TargetWPM)
	rehearsalFile.WriteString(line)
}

func TakeSaved(path string, d time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("path", path).
		Float64("duration_s", d.Seconds()).
		Msg("take_saved")
}

func SessionEnd(runs int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("runs", runs).
		Msg("session_end")
}
