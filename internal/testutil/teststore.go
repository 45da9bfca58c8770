package testutil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/fieldflow/internal/reducer"
	"github.com/roach88/fieldflow/internal/store"
)

// DefaultReceiveTimeout bounds how long Receive waits for an effect output.
const DefaultReceiveTimeout = 2 * time.Second

// TestStore drives a store.Store from the test goroutine.
//
// Send reduces a user action immediately. Receive waits for the next action
// produced by a running effect and reduces it. Delayed effects only fire
// when the ManualClock is advanced.
type TestStore[S, A, E any] struct {
	t       testing.TB
	store   *store.Store[S, A, E]
	Clock   *ManualClock
	Timeout time.Duration
}

// NewTestStore creates a test store. The store is closed on test cleanup.
func NewTestStore[S, A, E any](t testing.TB, initial S, r reducer.Reducer[S, A, E], env E, opts ...store.Option) *TestStore[S, A, E] {
	t.Helper()

	clock := NewManualClock(time.Time{})
	base := []store.Option{
		store.WithClock(clock),
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	s := store.New(initial, r, env, append(base, opts...)...)
	t.Cleanup(s.Close)

	return &TestStore[S, A, E]{
		t:       t,
		store:   s,
		Clock:   clock,
		Timeout: DefaultReceiveTimeout,
	}
}

// Store returns the underlying store.
func (ts *TestStore[S, A, E]) Store() *store.Store[S, A, E] {
	return ts.store
}

// State returns the current state.
func (ts *TestStore[S, A, E]) State() S {
	return ts.store.State()
}

// Send reduces action immediately and returns the resulting state.
func (ts *TestStore[S, A, E]) Send(action A) S {
	ts.store.Dispatch(action)
	return ts.store.State()
}

// Receive waits for the next effect output, reduces it and returns it.
// Fails the test if nothing arrives within Timeout.
func (ts *TestStore[S, A, E]) Receive() A {
	ts.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), ts.Timeout)
	defer cancel()

	a, err := ts.store.Next(ctx)
	if err != nil {
		ts.t.Fatalf("expected an action from a running effect: %v", err)
	}
	return a
}

// ReceiveUntil reduces effect outputs until match returns true for one of
// them and returns that action. Fails the test on timeout.
func (ts *TestStore[S, A, E]) ReceiveUntil(match func(A) bool) A {
	ts.t.Helper()

	deadline := time.Now().Add(ts.Timeout)
	for {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		a, err := ts.store.Next(ctx)
		cancel()
		if err != nil {
			ts.t.Fatalf("expected a matching action from a running effect: %v", err)
		}
		if match(a) {
			return a
		}
	}
}

// ExpectNoAction fails the test if an effect output is reduced within wait.
func (ts *TestStore[S, A, E]) ExpectNoAction(wait time.Duration) {
	ts.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	a, err := ts.store.Next(ctx)
	if err == nil {
		ts.t.Fatalf("unexpected action: %s", reducer.ActionName(a))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		ts.t.Fatalf("unexpected error waiting for actions: %v", err)
	}
}

// Advance moves the manual clock forward.
func (ts *TestStore[S, A, E]) Advance(d time.Duration) {
	ts.Clock.Advance(d)
}

// ReceiveAs receives the next action and asserts its concrete type.
func ReceiveAs[T, S, A, E any](ts *TestStore[S, A, E]) T {
	ts.t.Helper()

	a := ts.Receive()
	v, ok := any(a).(T)
	if !ok {
		var want T
		ts.t.Fatalf("received %s, want %s", reducer.ActionName(a), reducer.ActionName(want))
	}
	return v
}
