// Package sniffer ingests raw tapped frames and routes decoded events to
// topic-matched handlers.
package sniffer

import (
	"context"
	"sync"
)

const defaultQueueCap = 1024

// DropHeadQueue is a bounded FIFO that discards its oldest element when a
// put arrives while full. It prefers freshness over completeness.
type DropHeadQueue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	signal   chan struct{}
	dropped  uint64
}

// NewDropHeadQueue constructs a queue with the provided capacity.
// Capacity <= 0 falls back to the default of 1024.
func NewDropHeadQueue[T any](capacity int) *DropHeadQueue[T] {
	if capacity <= 0 {
		capacity = defaultQueueCap
	}
	queue := new(DropHeadQueue[T])
	queue.capacity = capacity
	queue.items = make([]T, 0, capacity)
	queue.signal = make(chan struct{}, 1)
	return queue
}

// Put enqueues v, discarding the head element first when full. It never
// blocks.
func (q *DropHeadQueue[T]) Put(v T) {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		q.dropped++
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Get dequeues the oldest element, suspending while the queue is empty.
// The second return is false when ctx is cancelled first.
func (q *DropHeadQueue[T]) Get(ctx context.Context) (T, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				select {
				case q.signal <- struct{}{}:
				default:
				}
			}
			return v, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-q.signal:
		}
	}
}

// Len reports the number of queued elements.
func (q *DropHeadQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped reports how many elements were discarded by overflow.
func (q *DropHeadQueue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
