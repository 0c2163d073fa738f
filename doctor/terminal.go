package doctor

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"prompter/shutdown"
)

// terminal holds the stdin state from before the checks. Hotkey hooks can
// leave the terminal raw; restore puts it back.
type terminal struct {
	fd    int
	state *term.State
}

func saveTerminal() *terminal {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &terminal{fd: fd}
	}
	st, err := term.GetState(fd)
	if err != nil {
		return &terminal{fd: fd}
	}
	return &terminal{fd: fd, state: st}
}

func (t *terminal) restore() {
	if t.state != nil {
		term.Restore(t.fd, t.state)
	}
}

func (t *terminal) exitOnInterrupt() {
	ch := shutdown.Signals()
	go func() {
		<-ch
		t.restore()
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()
}
