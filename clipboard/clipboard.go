// Package clipboard copies presenter notes to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("no clipboard utility found (install xclip, xsel or wl-clipboard)")

const timeout = 3 * time.Second

func Available() bool { return !cb.Unsupported }

func Read() (string, error) {
	if !Available() {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

// Copy writes text, giving up if the clipboard tool hangs (compositor not
// accessible).
func Copy(text string) error {
	if !Available() {
		return ErrUnsupported
	}
	ch := make(chan error, 1)
	go func() { ch <- cb.WriteAll(text) }()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("clipboard write timed out after %s", timeout)
	}
}

// Verify round-trips a unique string through the clipboard.
func Verify() (string, error) {
	testStr := fmt.Sprintf("prompter-doctor-%d", time.Now().UnixNano())
	if err := Copy(testStr); err != nil {
		return "", fmt.Errorf("clipboard write failed: %w", err)
	}

	type result struct {
		got string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		got, err := Read()
		ch <- result{got, err}
	}()
	select {
	case res := <-ch:
		if res.err != nil {
			return "", fmt.Errorf("clipboard read failed: %w", res.err)
		}
		if res.got != testStr {
			return "", fmt.Errorf("clipboard mismatch: wrote %q, got %q", testStr, res.got)
		}
		return "clipboard write/read verified", nil
	case <-time.After(timeout):
		return "", fmt.Errorf("clipboard read timed out after %s", timeout)
	}
}
