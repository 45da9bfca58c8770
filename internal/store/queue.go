package store

import (
	"sync"

	"github.com/roach88/fieldflow/internal/effect"
)

// item is one queued action together with the cancellation ids of the
// effect that produced it (none for actions sent from outside).
type item[A any] struct {
	action A
	scopes []effect.ID
}

// actionQueue is a thread-safe FIFO queue for actions.
//
// The queue is unbounded so that effects emitting many outputs never block
// on the reducer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type actionQueue[A any] struct {
	mu     sync.Mutex
	items  []item[A]
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

func newActionQueue[A any]() *actionQueue[A] {
	return &actionQueue[A]{
		items:  make([]item[A], 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *actionQueue[A]) Enqueue(it item[A]) bool {
	return q.EnqueueIf(it, nil)
}

// EnqueueIf adds an item only if cond holds. cond is evaluated under the
// queue lock, which orders it with Purge.
func (q *actionQueue[A]) EnqueueIf(it item[A], cond func() bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if cond != nil && !cond() {
		return false
	}

	q.items = append(q.items, it)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *actionQueue[A]) TryDequeue() (item[A], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item[A]{}, false
	}

	it := q.items[0]

	// Clear the slot so the backing array does not retain the action.
	q.items[0] = item[A]{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Purge removes every queued item for which drop returns true and reports
// how many were removed.
func (q *actionQueue[A]) Purge(drop func(item[A]) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if drop(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = item[A]{}
	}
	q.items = kept
	return removed
}

// Wait returns a channel that signals when items may be available. The
// channel is closed once the queue is closed.
func (q *actionQueue[A]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *actionQueue[A]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close was called.
func (q *actionQueue[A]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued and wakes waiters.
func (q *actionQueue[A]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
