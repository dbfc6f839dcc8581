package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

func clearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

// enableSingleView switches w to the alternate screen buffer and hides the
// cursor so each watch frame replaces the previous one. The returned func
// restores the terminal.
func enableSingleView(w io.Writer, logger *zap.SugaredLogger) func() {
	fmt.Fprint(w, "\033[?1049h") // switch to alternate buffer
	fmt.Fprint(w, "\033[?25l")   // hide cursor

	var restore []func()
	stdinFD := int(os.Stdin.Fd())
	if isTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err != nil {
			logger.Warnf("unable to suppress stdin echo: %v", err)
		} else if undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Fprint(w, "\033[?25h")   // show cursor
		fmt.Fprint(w, "\033[?1049l") // restore main buffer
	}
}
