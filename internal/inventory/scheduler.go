package inventory

import (
	"context"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
)

// StartScheduler runs SyncAllSuppliers at every 6-hour boundary until ctx
// is cancelled. It blocks, so callers start it in a goroutine.
func (s *Service) StartScheduler(ctx context.Context) {
	s.logger.Info("sync scheduler started")
	defer func() {
		s.mu.Lock()
		s.schedulerOn = false
		s.nextScheduled = time.Time{}
		s.mu.Unlock()
		s.logger.Info("sync scheduler stopped")
	}()

	var last time.Time
	for {
		next := nextRun(s.now(), last)
		s.mu.Lock()
		s.schedulerOn = true
		s.nextScheduled = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		last = next
		s.runScheduled(ctx)
	}
}

// nextRun picks the boundary to wait for. A timer can fire a little
// early by the wall clock, so a boundary that already ran is skipped.
func nextRun(now, last time.Time) time.Time {
	next := NextSyncTime(now)
	if !last.IsZero() && !next.After(last) {
		next = last.Add(SyncInterval)
	}
	return next
}

// runScheduled performs one scheduled pass over every active supplier.
func (s *Service) runScheduled(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled sync panicked", "panic", r)
		}
	}()
	start := time.Now()
	results, err := s.SyncAllSuppliers(ctx, core.SourceSync)
	if err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}

	failed := 0
	for _, r := range results {
		if r.Status != core.SyncCompleted {
			failed++
		}
	}
	s.logger.Info("scheduled sync completed",
		"suppliers", len(results),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
