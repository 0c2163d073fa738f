package hotkey

import (
	"time"
)

type Action int

const (
	ActionToggle    Action = iota // short tap: play/pause
	ActionHoldStart               // key held past the long-press threshold
	ActionHoldEnd                 // key released after a hold
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionHoldStart:
		return "hold_start"
	case ActionHoldEnd:
		return "hold_end"
	}
	return "unknown"
}

// Hybrid wraps a Hotkey to provide tap-to-toggle and hold-to-scroll on the
// same key combination. A tap emits ActionToggle on release; a press held
// past longPress emits ActionHoldStart at the threshold and ActionHoldEnd on
// release.
type Hybrid struct {
	actions chan Action
}

// NewHybrid builds a Hybrid controller on top of an existing Hotkey.
// longPress specifies the duration threshold to treat a press as hold vs tap.
func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		actions: make(chan Action, 4),
	}
	go h.run(hk, longPress)
	return h
}

func (h *Hybrid) Actions() <-chan Action { return h.actions }

func (h *Hybrid) emit(a Action) {
	select {
	case h.actions <- a:
	default:
	}
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		<-hk.Keydown()
		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			h.emit(ActionHoldStart)
			<-hk.Keyup()
			h.emit(ActionHoldEnd)
		case <-hk.Keyup():
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			h.emit(ActionToggle)
		}
	}
}
