package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDir(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		flag, env, want string
	}{
		{"/tmp/mylog", "/tmp/ignored", "/tmp/mylog"},
		{"logs", "", filepath.Join(wd, "logs")},
		{"", "/tmp/prompter-env-log", "/tmp/prompter-env-log"},
		{"", "rel", filepath.Join(wd, "rel")},
	}
	for _, c := range cases {
		t.Setenv("PROMPTER_LOG_PATH", c.env)
		got, err := ResolveDir(c.flag)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("ResolveDir(%q) with env %q = %q, want %q", c.flag, c.env, got, c.want)
		}
	}

	t.Setenv("PROMPTER_LOG_PATH", "")
	if got, err := ResolveDir(""); err != nil || !strings.Contains(got, "prompter") {
		t.Errorf("default dir = %q, %v", got, err)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"diagnostics_log.txt", "rehearsal_log.txt"} {
		path := filepath.Join(tmp, name)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestRunSummary(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	RunSummary(Run{
		Script:    "keynote.txt",
		Duration:  95 * time.Second,
		Words:     240,
		AvgWPM:    151.6,
		TargetWPM: 150,
		Finished:  true,
	})

	data, err := os.ReadFile(filepath.Join(tmp, "rehearsal_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{"finished", "keynote.txt", "95.0s", "240 words", "152 wpm"} {
		if !strings.Contains(line, want) {
			t.Errorf("rehearsal_log.txt missing %q, got: %q", want, line)
		}
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("expected one line per run, got: %q", line)
	}

	diag, err := os.ReadFile(filepath.Join(tmp, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(diag), "run_summary") {
		t.Errorf("diagnostics_log.txt missing run_summary event: %q", diag)
	}
	if !strings.Contains(string(diag), "avg_wpm=151.6") {
		t.Errorf("run_summary fields missing: %q", diag)
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	// must be safe to call without Init, as packages do in tests
	Info("x")
	StateChange("stopped", "playing", 0)
	MarkerPause(1, 2)
	ParseWarning(3, "unterminated")
	RunSummary(Run{})
	TakeSaved("take.flac", time.Second)
	SessionEnd(0)
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
