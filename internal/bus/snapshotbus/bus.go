// Package snapshotbus provides a single-value snapshot store with a
// wake-up primitive. Publishing replaces the stored value and wakes
// every waiter; slow readers coalesce onto the latest snapshot.
package snapshotbus

import (
	"context"
	"sync"
	"time"

	"github.com/pareedo/pigeonwatch/internal/schema"
)

// Bus holds the latest published snapshot.
type Bus struct {
	mu      sync.Mutex
	current *schema.Snapshot
	rearm   chan struct{}
	closed  bool
	once    sync.Once
}

// New constructs an empty bus.
func New() *Bus {
	bus := new(Bus)
	bus.rearm = make(chan struct{})
	return bus
}

// Publish replaces the stored snapshot and wakes all waiters.
func (b *Bus) Publish(snap *schema.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current = snap
	close(b.rearm)
	b.rearm = make(chan struct{})
}

// Peek returns the latest snapshot, or nil when nothing has been
// published yet.
func (b *Bus) Peek() *schema.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// WaitUpdate blocks until the next publish, the timeout, context
// cancellation, or bus close. It returns the freshly published snapshot,
// or nil for every other outcome.
func (b *Bus) WaitUpdate(ctx context.Context, timeout time.Duration) *schema.Snapshot {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	wake := b.rearm
	b.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-wake:
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.closed {
			return nil
		}
		return b.current
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Close wakes all waiters and rejects further publishes. Idempotent.
func (b *Bus) Close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.rearm)
		b.mu.Unlock()
	})
}
