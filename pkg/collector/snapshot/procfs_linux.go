//go:build linux
// +build linux

package snapshot

import (
	"context"
	"fmt"

	"github.com/prometheus/procfs"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/srodi/memon/pkg/types"
)

// Procfs reads the process table straight from a procfs mount.
type Procfs struct {
	fs     procfs.FS
	logger *zap.SugaredLogger
}

// NewProcfs opens the procfs mounted at mountPoint.
func NewProcfs(mountPoint string, logger *zap.SugaredLogger) (*Procfs, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", mountPoint, err)
	}
	return &Procfs{fs: fs, logger: logger}, nil
}

// Snapshot walks every PID directory once. Processes that exit mid-walk are skipped.
func (p *Procfs) Snapshot(_ context.Context) ([]types.ProcessRecord, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("%w: listing procfs: %w", ErrUnavailable, err)
	}

	records := make([]types.ProcessRecord, 0, len(procs))
	var skipped error
	for _, proc := range procs {
		rec, err := readProc(proc)
		if err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		records = append(records, rec)
	}
	return finalize(records, skipped, len(procs), p.logger)
}

func readProc(proc procfs.Proc) (types.ProcessRecord, error) {
	stat, err := proc.Stat()
	if err != nil {
		return types.ProcessRecord{}, fmt.Errorf("pid %d stat: %w", proc.PID, err)
	}
	args, err := proc.CmdLine()
	if err != nil {
		return types.ProcessRecord{}, fmt.Errorf("pid %d cmdline: %w", proc.PID, err)
	}
	rec := types.ProcessRecord{
		PID:  proc.PID,
		PPID: stat.PPID,
		Name: stat.Comm,
		Args: trimArgs(args),
	}
	if rss := stat.ResidentMemory(); rss > 0 {
		rec.RSSBytes = uint64(rss)
	}
	// the exe link is only readable for our own processes unless we run as root
	if exe, err := proc.Executable(); err == nil {
		rec.Exe = exe
	}
	return rec, nil
}
