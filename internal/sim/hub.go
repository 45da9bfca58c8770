package sim

import (
	"context"
	"sync"
)

// hub fans values out to subscribers. Every subscriber has an unbounded
// mailbox, so a slow subscriber never blocks publishers and never misses a
// value.
type hub[T any] struct {
	mu   sync.Mutex
	subs map[int]*mailbox[T]
	next int
}

type mailbox[T any] struct {
	mu      sync.Mutex
	pending []T
	signal  chan struct{}
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: map[int]*mailbox[T]{}}
}

// subscribe registers a mailbox pre-filled with initial. The caller must
// serve it with serve and release it with the returned function.
func (h *hub[T]) subscribe(initial ...T) (*mailbox[T], func()) {
	mb := &mailbox[T]{signal: make(chan struct{}, 1)}
	mb.push(initial...)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = mb
	h.mu.Unlock()

	return mb, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// publish delivers v to every subscriber and reports how many received it.
func (h *hub[T]) publish(v T) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, mb := range h.subs {
		mb.push(v)
	}
	return len(h.subs)
}

func (h *hub[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (mb *mailbox[T]) push(vs ...T) {
	if len(vs) == 0 {
		return
	}
	mb.mu.Lock()
	mb.pending = append(mb.pending, vs...)
	mb.mu.Unlock()

	select {
	case mb.signal <- struct{}{}:
	default:
	}
}

func (mb *mailbox[T]) drain() []T {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := mb.pending
	mb.pending = nil
	return out
}

// serve yields queued values on the calling goroutine until ctx is done.
func (mb *mailbox[T]) serve(ctx context.Context, yield func(T)) {
	for {
		for _, v := range mb.drain() {
			if ctx.Err() != nil {
				return
			}
			yield(v)
		}
		select {
		case <-ctx.Done():
			return
		case <-mb.signal:
		}
	}
}
