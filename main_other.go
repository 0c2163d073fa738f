//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The hotkey library needs the main thread on macOS, so the app runs on
// a second goroutine.
func main() {
	mainthread.Init(run)
}
