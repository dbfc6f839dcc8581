package snapshot

import (
	"fmt"
	"strings"
)

// displayName trims the raw OS name and falls back to pid-N when nothing is left.
func displayName(pid int, raw string) string {
	if pid == 0 && strings.TrimSpace(raw) == "" {
		return "idle"
	}
	name := strings.TrimSpace(strings.TrimRight(raw, "\x00\n"))
	if name == "" {
		return fmt.Sprintf("pid-%d", pid)
	}
	return name
}

// trimArgs drops the trailing empty strings some platforms leave behind
// when splitting a NUL-terminated command line.
func trimArgs(args []string) []string {
	for len(args) > 0 && args[len(args)-1] == "" {
		args = args[:len(args)-1]
	}
	if len(args) == 0 {
		return nil
	}
	return args
}
