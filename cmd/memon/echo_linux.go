//go:build linux

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// disableInputEcho stops keystrokes from being drawn over watch frames. The
// returned func puts the saved terminal settings back.
func disableInputEcho(fd int) (func(), error) {
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("reading terminal settings: %w", err)
	}
	if saved.Lflag&unix.ECHO == 0 {
		return func() {}, nil
	}

	quiet := *saved
	quiet.Lflag &^= unix.ECHO | unix.ECHONL
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &quiet); err != nil {
		return nil, fmt.Errorf("silencing terminal echo: %w", err)
	}
	return func() { _ = unix.IoctlSetTermios(fd, unix.TCSETS, saved) }, nil
}
