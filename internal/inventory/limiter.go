package inventory

// limiter.go caps how many supplier syncs run at once.
//
// Scheduled and manual syncs share the same slots. When all slots are
// occupied a new sync waits up to maxWait before failing with
// core.ErrTooManySyncs. Drain blocks until running syncs finish, for
// graceful shutdown.

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/invsync/internal/core"
)

// Defaults for the sync limiter.
const (
	DefaultMaxConcurrentSyncs = 2
	DefaultSlotWait           = 30 * time.Second
)

type syncLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu      sync.Mutex
	running map[string]int
}

func newSyncLimiter(maxConcurrent int, maxWait time.Duration) *syncLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentSyncs
	}
	if maxWait <= 0 {
		maxWait = DefaultSlotWait
	}
	return &syncLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		running: make(map[string]int),
	}
}

// acquire takes a slot for supplierID and returns its release. The caller
// must call release exactly once.
func (l *syncLimiter) acquire(ctx context.Context, supplierID string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
	case <-waitCtx.Done():
		// Distinguish the caller giving up from the wait expiring.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, core.ErrTooManySyncs
	}

	l.mu.Lock()
	l.running[supplierID]++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.running[supplierID]--; l.running[supplierID] <= 0 {
				delete(l.running, supplierID)
			}
			l.mu.Unlock()
			<-l.slots
		})
	}, nil
}

// active returns the suppliers currently syncing.
func (l *syncLimiter) active() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.running))
	for id := range l.running {
		ids = append(ids, id)
	}
	return ids
}

// drain blocks until no sync holds a slot or ctx is done.
func (l *syncLimiter) drain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(l.slots) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
