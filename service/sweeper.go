package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/layer-3/gatekeeper/internal/metrics"
	"github.com/layer-3/gatekeeper/ports"
)

// Sweeper periodically drops expired revocations and challenges from stores that do not
// expire entries on their own
type Sweeper struct {
	targets  []ports.Sweeper
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewSweeper creates a sweeper. Stores that do not implement ports.Sweeper are skipped.
func NewSweeper(interval time.Duration, logger *slog.Logger, m *metrics.Metrics, stores ...any) *Sweeper {
	s := &Sweeper{
		interval: interval,
		logger:   orDiscard(logger),
		metrics:  m,
	}
	for _, store := range stores {
		if target, ok := store.(ports.Sweeper); ok {
			s.targets = append(s.targets, target)
		}
	}
	return s
}

// Len is the number of stores being swept
func (s *Sweeper) Len() int {
	return len(s.targets)
}

// SweepOnce runs one pass over all stores and returns the number of entries removed
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	total := 0
	for _, target := range s.targets {
		n, err := target.Sweep(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "sweep failed", "error", err)
			continue
		}
		total += n
	}
	s.metrics.Swept(total)
	return total
}

// Run sweeps every interval until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	if len(s.targets) == 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.SweepOnce(ctx); n > 0 {
				s.logger.DebugContext(ctx, "swept expired entries", "removed", n)
			}
		}
	}
}
