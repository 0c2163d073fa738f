// Package shutdown delivers the platform's termination signals so the app
// can close the terminal UI and write its session summary before exiting.
package shutdown

import (
	"os"
	"os/signal"
)

// Signals returns a channel that receives each termination signal. Call
// Stop with the same channel to restore default handling.
func Signals() chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	return ch
}

func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
