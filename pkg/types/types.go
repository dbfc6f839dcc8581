package types

// DefaultNameWidth controls how many characters of a process name we display before eliding.
const DefaultNameWidth = 40

// CommTruncation is the length at which the Linux kernel cuts /proc/PID/comm.
const CommTruncation = 15

// ProcessRecord is one entry of a process table snapshot. Records are never
// mutated once a snapshot source has produced them.
type ProcessRecord struct {
	PID      int
	PPID     int // 0 when the process has no known parent
	Name     string
	Exe      string // full executable path, empty when unreadable
	Args     []string
	RSSBytes uint64
}
