// Package hotkey delivers a global key combination that works while the
// terminal is not focused, so a presenter can drive playback from another
// window or a presentation clicker.
package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const DefaultCombo = "ctrl+shift+space"

// Combo is a parsed key combination such as "ctrl+shift+space".
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string // lower-case key name, see keyNames
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	k := c.Key
	if k != "" {
		k = strings.ToUpper(k[:1]) + k[1:]
	}
	return strings.Join(append(parts, k), "+")
}

// ParseCombo accepts "+"-separated, case-insensitive modifiers (ctrl,
// shift) followed by exactly one key. Bare keys are allowed for keys a
// clicker sends, like pagedown.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	if strings.TrimSpace(s) == "" {
		s = DefaultCombo
	}
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		case "":
			return Combo{}, fmt.Errorf("hotkey %q: empty key", s)
		default:
			if c.Key != "" {
				return Combo{}, fmt.Errorf("hotkey %q: more than one key", s)
			}
			if !supportedKey(part) {
				return Combo{}, fmt.Errorf("hotkey %q: unsupported key %q", s, part)
			}
			c.Key = part
		}
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("hotkey %q: no key", s)
	}
	return c, nil
}
