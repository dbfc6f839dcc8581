//go:build !linux
// +build !linux

package snapshot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/srodi/memon/pkg/types"
)

var errUnsupported = errors.New("procfs source requires linux")

// Procfs is a placeholder on non-Linux platforms.
type Procfs struct{}

// NewProcfs returns an error because procfs only exists on Linux.
func NewProcfs(mountPoint string, logger *zap.SugaredLogger) (*Procfs, error) {
	return nil, errUnsupported
}

// Snapshot always fails on unsupported platforms.
func (p *Procfs) Snapshot(context.Context) ([]types.ProcessRecord, error) {
	return nil, errUnsupported
}
