package monitor

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidInterval is returned by Watch for a non-positive interval.
var ErrInvalidInterval = errors.New("watch interval must be positive")

// Watch runs cycle immediately and then on every tick until ctx is done.
// Cycles never overlap. Cancellation is observed between cycles only: each
// cycle gets a context that keeps ctx's values but not its cancellation, so a
// frame in progress is always completed. An error from cycle stops the loop.
func Watch(ctx context.Context, interval time.Duration, cycle func(context.Context) error) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	runCtx := context.WithoutCancel(ctx)
	if err := cycle(runCtx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			if err := cycle(runCtx); err != nil {
				return err
			}
		}
	}
}
