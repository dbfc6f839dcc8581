package snapshot

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/srodi/memon/pkg/types"
)

// procHandle is the subset of *process.Process the gopsutil source reads.
type procHandle interface {
	NameWithContext(ctx context.Context) (string, error)
	PpidWithContext(ctx context.Context) (int32, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
	CmdlineSliceWithContext(ctx context.Context) ([]string, error)
	ExeWithContext(ctx context.Context) (string, error)
}

type pidHandle struct {
	pid int32
	procHandle
}

// listProcesses allows tests to stub the gopsutil process listing.
var listProcesses = func(ctx context.Context) ([]pidHandle, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	handles := make([]pidHandle, 0, len(procs))
	for _, p := range procs {
		handles = append(handles, pidHandle{pid: p.Pid, procHandle: p})
	}
	return handles, nil
}

// Gopsutil enumerates processes through gopsutil, which works on linux, darwin and windows.
type Gopsutil struct {
	logger *zap.SugaredLogger
}

// NewGopsutil returns a gopsutil-backed Source. A nil logger discards diagnostics.
func NewGopsutil(logger *zap.SugaredLogger) *Gopsutil {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gopsutil{logger: logger}
}

// Snapshot lists every process it can fully read.
func (g *Gopsutil) Snapshot(ctx context.Context) ([]types.ProcessRecord, error) {
	handles, err := listProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing processes: %w", ErrUnavailable, err)
	}

	records := make([]types.ProcessRecord, 0, len(handles))
	var skipped error
	for _, h := range handles {
		rec, err := readHandle(ctx, h)
		if err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return finalize(records, skipped, len(handles), g.logger)
}

func readHandle(ctx context.Context, h pidHandle) (types.ProcessRecord, error) {
	rec := types.ProcessRecord{PID: int(h.pid)}

	name, err := h.NameWithContext(ctx)
	if err != nil {
		return rec, fmt.Errorf("pid %d name: %w", h.pid, err)
	}
	rec.Name = name

	ppid, err := h.PpidWithContext(ctx)
	if err != nil {
		return rec, fmt.Errorf("pid %d parent: %w", h.pid, err)
	}
	rec.PPID = int(ppid)

	mem, err := h.MemoryInfoWithContext(ctx)
	if err != nil {
		return rec, fmt.Errorf("pid %d memory: %w", h.pid, err)
	}
	if mem != nil {
		rec.RSSBytes = mem.RSS
	}

	args, err := h.CmdlineSliceWithContext(ctx)
	if err != nil {
		return rec, fmt.Errorf("pid %d cmdline: %w", h.pid, err)
	}
	rec.Args = trimArgs(args)

	// exe needs elevated rights for other users' processes; the path is optional.
	if exe, err := h.ExeWithContext(ctx); err == nil {
		rec.Exe = exe
	}
	return rec, nil
}
