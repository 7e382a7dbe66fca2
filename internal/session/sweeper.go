package session

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"chessroom/internal/metrics"
)

// Sweeper periodically evicts abandoned and stale sessions. A pass runs as
// a single sweep over the registry; the guard keeps passes from overlapping
// if one ever outlives the interval.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	maxAge   time.Duration
	running  atomic.Bool
}

func NewSweeper(registry *Registry, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		registry: registry,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce performs one eviction pass. It is a no-op if a pass is already
// in progress.
func (s *Sweeper) SweepOnce() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	deleted := s.registry.Sweep(s.maxAge)
	if deleted > 0 {
		metrics.SweptSessions.Add(float64(deleted))
	}
	metrics.ActiveSessions.Set(float64(s.registry.Len()))
	log.Printf("[sweep] removed %d games, %d remaining", deleted, s.registry.Len())
}
