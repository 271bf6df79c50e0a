// Package autosave runs a save function on a fixed wall-clock interval.
package autosave

import (
	"context"
	"log/slog"
	"time"
)

// DefaultInterval matches how often the stand persisted while open.
const DefaultInterval = 3 * time.Minute

// Task calls Save every Interval until its context is cancelled.
// The next run is scheduled only after the previous one returns, so runs never overlap.
type Task struct {
	Interval time.Duration
	Save     func(ctx context.Context) error
	Logger   *slog.Logger
}

// Run blocks until ctx is done. Save failures are logged and retried on the next tick.
func (t Task) Run(ctx context.Context) {
	interval := t.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		started := time.Now()
		if err := t.Save(ctx); err != nil {
			logger.Warn("autosave failed", "err", err)
		} else {
			logger.Debug("autosave complete", "took", time.Since(started))
		}
		timer.Reset(interval)
	}
}
