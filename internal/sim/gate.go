package sim

import (
	"context"
	"strings"
	"sync"
)

// gates holds calls by name until they are released. Scenarios use them to
// keep a request in flight while other actions are sent.
type gates struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// hold blocks every later call named name until the returned release runs.
// Holding a held gate again returns the existing release.
func (g *gates) hold(name string) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		g.held = map[string]chan struct{}{}
	}
	ch, ok := g.held[name]
	if !ok {
		ch = make(chan struct{})
		g.held[name] = ch
	}
	return func() { g.release(name, ch) }
}

func (g *gates) release(name string, ch chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[name] == ch {
		delete(g.held, name)
		close(ch)
	}
}

// releaseAll opens every gate.
func (g *gates) releaseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, ch := range g.held {
		delete(g.held, name)
		close(ch)
	}
}

// wait returns once the gate is open or ctx is done.
func (g *gates) wait(ctx context.Context, name string) error {
	g.mu.Lock()
	ch, ok := g.held[name]
	g.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// recorder is an append-only call log.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(parts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, strings.Join(parts, " "))
}

// Calls returns the recorded calls in order.
func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Count returns how many recorded calls start with name.
func (r *recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == name || strings.HasPrefix(c, name+" ") {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
