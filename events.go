package main

import (
	"fmt"

	"prompter/beep"
	"prompter/engine"
	"prompter/log"
)

// sessionEvents turns engine transitions into log lines, cue sounds and
// run bookkeeping. Engine calls it synchronously, so it may read engine
// getters but never issues commands.
type sessionEvents struct{ s *session }

func (ev sessionEvents) StateChanged(from, to engine.PlayState) {
	s := ev.s
	log.StateChange(from.String(), to.String(), s.eng.Offset())
	s.echo(fmt.Sprintf("state %s->%s", from, to))

	switch {
	case from == engine.Countdown && to == engine.Playing:
		beep.PlayGo()
	case to == engine.Stopped:
		return
	}
	if !s.run.active && (to == engine.Countdown || to == engine.Playing) {
		s.startRun()
	}
}

func (ev sessionEvents) MarkerReached(offset float64) {
	s := ev.s
	word := s.eng.Script().WordIndex(offset)
	log.MarkerPause(offset, word)
	s.echo(fmt.Sprintf("marker %.3f", offset))
	s.run.markers++
	beep.PlayCue()
	s.notify("[PAUSE] press space to continue")
}

func (ev sessionEvents) CountdownStep(remaining int) {
	ev.s.echo(fmt.Sprintf("countdown %d", remaining))
	beep.PlayCount()
}

func (ev sessionEvents) Finished() {
	s := ev.s
	log.Info("script_finished")
	s.echo("finished")
	s.finished = true
	beep.PlayEnd()
	s.notify("end of script")
}
