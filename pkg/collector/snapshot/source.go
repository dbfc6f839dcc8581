// Package snapshot reads the process table. Every call to Snapshot is a fresh,
// independent enumeration; nothing is cached between calls.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/srodi/memon/pkg/types"
)

// ErrUnavailable is returned when not a single process record could be read.
var ErrUnavailable = errors.New("process snapshot unavailable")

// Source supplies point-in-time lists of process records.
type Source interface {
	Snapshot(ctx context.Context) ([]types.ProcessRecord, error)
}

// Kind names a Source implementation.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindGopsutil Kind = "gopsutil"
	KindProcfs   Kind = "procfs"
)

// DefaultProcMount is where procfs is expected on linux hosts.
const DefaultProcMount = "/proc"

// ParseKind validates a source name from flags or config.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "", KindAuto:
		return KindAuto, nil
	case KindGopsutil, KindProcfs:
		return k, nil
	default:
		return "", fmt.Errorf("unknown snapshot source %q (want auto, gopsutil or procfs)", s)
	}
}

// New builds the Source for kind. Auto prefers procfs on linux and gopsutil elsewhere.
func New(kind Kind, logger *zap.SugaredLogger) (Source, error) {
	switch kind {
	case "", KindAuto:
		if runtime.GOOS == "linux" {
			return newProcfsSource(logger)
		}
		return NewGopsutil(logger), nil
	case KindGopsutil:
		return NewGopsutil(logger), nil
	case KindProcfs:
		return newProcfsSource(logger)
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", kind)
	}
}

func newProcfsSource(logger *zap.SugaredLogger) (Source, error) {
	p, err := NewProcfs(DefaultProcMount, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Static is a Source that always returns the same records. Useful for tests and demos.
type Static []types.ProcessRecord

// Snapshot returns a copy of the static records, sorted by PID.
func (s Static) Snapshot(context.Context) ([]types.ProcessRecord, error) {
	records := make([]types.ProcessRecord, len(s))
	copy(records, s)
	return finalize(records, nil, len(s), nil)
}

// finalize applies the shared snapshot policy: records that could not be read
// were already dropped, an empty result with a non-empty table is a failure,
// and the survivors are normalized and ordered by PID.
func finalize(records []types.ProcessRecord, skipped error, total int, logger *zap.SugaredLogger) ([]types.ProcessRecord, error) {
	if len(records) == 0 && total > 0 {
		return nil, fmt.Errorf("%w: none of %d processes readable: %w", ErrUnavailable, total, skipped)
	}
	if len(records) == 0 {
		return nil, ErrUnavailable
	}
	if skipped != nil && logger != nil {
		errs := multierr.Errors(skipped)
		logger.Debugw("skipped unreadable processes", "count", len(errs), "total", total)
		for _, err := range errs {
			logger.Debugw("skipped process", "error", err)
		}
	}
	for i := range records {
		records[i].Name = displayName(records[i].PID, records[i].Name)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
	return records, nil
}
