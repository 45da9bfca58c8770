package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/reducer"
)

// ErrClosed is returned by Next once the store is closed and drained.
var ErrClosed = errors.New("store closed")

// Drop reasons reported to Instrumentation.
const (
	DropCancelled = "cancelled"
	DropClosed    = "closed"
)

// Instrumentation receives store events. Implementations must be safe for
// concurrent use: drops are reported from effect goroutines.
type Instrumentation interface {
	ActionProcessed(action string, d time.Duration)
	ActionDropped(reason string, n int)
	EffectCancelled(id effect.ID, wasRunning bool)
}

// Observer is called after every reduction with the new state and the action
// that produced it.
type Observer[S, A any] func(state S, action A)

// Option configures a Store.
type Option func(*config)

type config struct {
	clock  effect.Clock
	logger *slog.Logger
	inst   Instrumentation
}

// WithClock sets the clock used by delayed effects.
func WithClock(c effect.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithLogger sets the store logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithInstrumentation sets the instrumentation sink.
func WithInstrumentation(inst Instrumentation) Option {
	return func(cfg *config) { cfg.inst = inst }
}

// Store is the single-writer holder of application state.
//
// Thread-safety model:
//   - Send(): safe from any goroutine
//   - Run() / Next() / Dispatch(): must be called from exactly one goroutine
//   - State(): only from the goroutine calling Run/Next, or from observers
//   - Subscribe(): before the first action is processed
//
// INVARIANTS:
//   - The reducer runs only inside Run/Next, one action at a time
//   - Effects are started before the next action is dequeued
type Store[S, A, E any] struct {
	state   S
	reducer reducer.Reducer[S, A, E]
	env     E

	queue   *actionQueue[A]
	runtime *effect.Runtime[A]

	ctx    context.Context
	cancel context.CancelFunc

	// unsettled counts actions enqueued and not yet reduced or purged;
	// reductions counts finished reductions.
	unsettled  atomic.Int64
	reductions atomic.Uint64

	observers []Observer[S, A]
	logger    *slog.Logger
	inst      Instrumentation
}

// settlePoll is how often Settle samples the store.
const settlePoll = 5 * time.Millisecond

// New creates a store with the initial state, the root reducer and the
// environment handed to it on every reduction.
func New[S, A, E any](initial S, r reducer.Reducer[S, A, E], env E, opts ...Option) *Store[S, A, E] {
	cfg := config{clock: effect.SystemClock{}, logger: slog.Default(), inst: nopInstrumentation{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store[S, A, E]{
		state:   initial,
		reducer: r,
		env:     env,
		queue:   newActionQueue[A](),
		ctx:     ctx,
		cancel:  cancel,
		logger:  cfg.logger,
		inst:    cfg.inst,
	}
	s.runtime = effect.NewRuntime(s.emit,
		effect.WithClock(cfg.clock),
		effect.WithLogger(cfg.logger),
		effect.WithCancelHook(s.onCancel),
	)
	return s
}

// Send enqueues an action for processing. Returns false once the store is
// closed.
func (s *Store[S, A, E]) Send(action A) bool {
	s.unsettled.Add(1)
	if !s.queue.Enqueue(item[A]{action: action}) {
		s.unsettled.Add(-1)
		return false
	}
	return true
}

// Subscribe registers an observer.
func (s *Store[S, A, E]) Subscribe(obs Observer[S, A]) {
	s.observers = append(s.observers, obs)
}

// State returns the current state.
func (s *Store[S, A, E]) State() S {
	return s.state
}

// InFlight reports whether an effect is running under id.
func (s *Store[S, A, E]) InFlight(id effect.ID) bool {
	return s.runtime.InFlight(id)
}

// Pending returns the number of queued actions.
func (s *Store[S, A, E]) Pending() int {
	return s.queue.Len()
}

// Settle blocks until no action is queued or being reduced and no effect is
// registered under any of ids. Long-lived effects such as subscriptions are
// not waited for unless named. Safe from any goroutine. Returns ErrClosed
// once the store is closed.
func (s *Store[S, A, E]) Settle(ctx context.Context, ids ...effect.ID) error {
	ticker := time.NewTicker(settlePoll)
	defer ticker.Stop()
	for {
		if s.queue.Closed() {
			return ErrClosed
		}
		if s.settled(ids) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// settled samples the reduction count around the checks: an effect
// registered by a reduction that finished in between is caught by the
// count changing. An effect that finished before the InFlight check has
// already enqueued its outputs.
func (s *Store[S, A, E]) settled(ids []effect.ID) bool {
	before := s.reductions.Load()
	for _, id := range ids {
		if s.runtime.InFlight(id) {
			return false
		}
	}
	return s.unsettled.Load() == 0 && s.reductions.Load() == before
}

// Run processes actions until ctx is cancelled or the store is closed.
// On return the store is closed and every effect cancelled.
func (s *Store[S, A, E]) Run(ctx context.Context) error {
	s.logger.Info("store starting")
	defer s.Close()

	for {
		if _, ok := s.step(); ok {
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("store stopping: context cancelled")
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel is closed with the queue; stop once drained.
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("store stopping: closed")
				return nil
			}
		}
	}
}

// Next processes exactly one action, waiting for one to be enqueued if
// necessary, and returns it.
func (s *Store[S, A, E]) Next(ctx context.Context) (A, error) {
	for {
		if a, ok := s.step(); ok {
			return a, nil
		}

		select {
		case <-ctx.Done():
			var zero A
			return zero, ctx.Err()
		case <-s.queue.Wait():
			if s.queue.Closed() && s.queue.Len() == 0 {
				var zero A
				return zero, ErrClosed
			}
		}
	}
}

// Dispatch reduces action immediately, bypassing the queue. It must be
// called from the goroutine driving the store; tests use it to interleave
// user actions deterministically with effect outputs.
func (s *Store[S, A, E]) Dispatch(action A) {
	s.process(action)
}

// Close cancels every running effect, rejects further actions and waits
// for effect goroutines to return.
func (s *Store[S, A, E]) Close() {
	s.cancel()
	s.queue.Close()
	s.runtime.Wait()
}

func (s *Store[S, A, E]) step() (A, bool) {
	it, ok := s.queue.TryDequeue()
	if !ok {
		var zero A
		return zero, false
	}
	s.process(it.action)
	s.unsettled.Add(-1)
	return it.action, true
}

// process runs the reducer for one action. Called only from the goroutine
// driving the store.
func (s *Store[S, A, E]) process(action A) {
	start := time.Now()
	eff := s.reducer(&s.state, action, s.env)
	elapsed := time.Since(start)

	name := reducer.ActionName(action)
	s.logger.Debug("action processed", "action", name, "duration", elapsed)
	s.inst.ActionProcessed(name, elapsed)

	if !eff.IsNone() {
		s.runtime.Start(s.ctx, eff)
	}

	for _, obs := range s.observers {
		obs(s.state, action)
	}
	s.reductions.Add(1)
}

// emit receives effect outputs. The liveness check runs under the queue lock
// so it is ordered with the purge performed on cancellation.
func (s *Store[S, A, E]) emit(ctx context.Context, a A) {
	s.unsettled.Add(1)
	ok := s.queue.EnqueueIf(item[A]{action: a, scopes: effect.Scopes(ctx)}, func() bool {
		return ctx.Err() == nil
	})
	if !ok {
		s.unsettled.Add(-1)
		reason := DropCancelled
		if s.queue.Closed() {
			reason = DropClosed
		}
		s.logger.Debug("effect output dropped", "action", reducer.ActionName(a), "reason", reason)
		s.inst.ActionDropped(reason, 1)
	}
}

func (s *Store[S, A, E]) onCancel(id effect.ID, wasRunning bool) {
	n := s.queue.Purge(func(it item[A]) bool {
		return slices.Contains(it.scopes, id)
	})
	s.unsettled.Add(int64(-n))
	s.inst.EffectCancelled(id, wasRunning)
	if n > 0 {
		s.logger.Debug("purged outputs of cancelled effect", "id", id, "count", n)
		s.inst.ActionDropped(DropCancelled, n)
	}
}

type nopInstrumentation struct{}

func (nopInstrumentation) ActionProcessed(string, time.Duration) {}
func (nopInstrumentation) ActionDropped(string, int)             {}
func (nopInstrumentation) EffectCancelled(effect.ID, bool)       {}
