package main

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"procura/internal/platform/metrics"
	"procura/pkg/requestcontext"
)

// sweep is one periodic background pass.
type sweep struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// runSweeps ticks every enabled sweep until ctx is cancelled. A failed run is
// logged and retried on the next tick; every pass is safe to repeat.
func runSweeps(ctx context.Context, sweeps []sweep, m *metrics.Metrics, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range sweeps {
		if s.interval <= 0 {
			logger.InfoContext(ctx, "sweep disabled", "sweep", s.name)
			continue
		}
		g.Go(func() error {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					runOnce(ctx, s, m, logger)
				case <-ctx.Done():
					return nil
				}
			}
		})
	}
	return g.Wait()
}

func runOnce(ctx context.Context, s sweep, m *metrics.Metrics, logger *slog.Logger) {
	started := time.Now()
	ctx = requestcontext.WithTime(ctx, started.UTC())
	err := s.run(ctx)
	m.ObserveSweep(s.name, started, err)
	if err != nil {
		logger.ErrorContext(ctx, "sweep failed", "sweep", s.name, "error", err)
		return
	}
	logger.DebugContext(ctx, "sweep completed", "sweep", s.name, "duration_ms", time.Since(started).Milliseconds())
}
