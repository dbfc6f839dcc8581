//go:build !linux

package main

// disableInputEcho is a no-op where termios ioctls are not wired up; typed
// keys may show through the watch view.
func disableInputEcho(int) (func(), error) {
	return nil, nil
}
