package audio

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// picker is the key handling behind SelectDevice, kept free of terminal
// I/O. Row 0 is the system default; row i+1 is devices[i].
type picker struct {
	devices []DeviceInfo
	cursor  int
}

type pickResult int

const (
	pickNone pickResult = iota
	pickChosen
	pickCancel
	pickQuit
)

func (p *picker) rows() int { return len(p.devices) + 1 }

// key applies one read from the terminal.
func (p *picker) key(buf []byte) pickResult {
	if len(buf) == 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A':
			p.move(-1)
		case 'B':
			p.move(1)
		}
		return pickNone
	}
	if len(buf) != 1 {
		return pickNone
	}
	switch buf[0] {
	case '\r', '\n':
		return pickChosen
	case 0x1b, 'q':
		return pickCancel
	case 3: // Ctrl+C
		return pickQuit
	case 'j':
		p.move(1)
	case 'k':
		p.move(-1)
	}
	return pickNone
}

func (p *picker) move(d int) {
	p.cursor = min(max(p.cursor+d, 0), p.rows()-1)
}

// selected returns the highlighted device, nil for the system default.
func (p *picker) selected() *DeviceInfo {
	if p.cursor == 0 {
		return nil
	}
	return &p.devices[p.cursor-1]
}

func (p *picker) render(w io.Writer) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select microphone (↑/↓, Enter to confirm, Esc for default):\r\n\r\n")
	for row := 0; row < p.rows(); row++ {
		name := "system default"
		tag := ""
		if row > 0 {
			name = p.devices[row-1].Name
			if IsBluetooth(name) {
				tag = " \x1b[33m[⚠ Bluetooth]\x1b[0m"
			}
		}
		if row == p.cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", name, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", name, tag)
		}
	}
}

// SelectDevice presents an interactive device picker on the terminal. A nil
// device with a nil error means the system default. With a single device
// it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no capture devices found")
	}
	if len(devices) == 1 {
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := &picker{devices: devices}
	p.render(os.Stdout)

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch p.key(buf[:n]) {
		case pickChosen:
			fmt.Print("\r\n")
			return p.selected(), nil
		case pickCancel:
			fmt.Print("\r\n")
			return nil, nil
		case pickQuit:
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(130)
		}
		fmt.Printf("\x1b[%dA", p.rows()+2)
		p.render(os.Stdout)
	}
}
