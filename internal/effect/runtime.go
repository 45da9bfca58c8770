package effect

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrCancelled is the context cause of an effect stopped by Cancel or by a
// Cancellable with cancelInFlight.
var ErrCancelled = errors.New("effect cancelled")

var errFinished = errors.New("effect finished")

// Option configures a Runtime.
type Option func(*options)

type options struct {
	clock    Clock
	logger   *slog.Logger
	onCancel func(id ID, wasRunning bool)
}

// WithClock sets the clock used by delayed effects. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCancelHook is called synchronously every time an id is cancelled,
// whether or not an effect was registered under it.
func WithCancelHook(fn func(id ID, wasRunning bool)) Option {
	return func(o *options) { o.onCancel = fn }
}

// Runtime executes effects and owns the cancellation registry.
//
// Thread-safety model:
//   - Start(): safe from any goroutine; the store calls it from its single
//     writer goroutine so that cancellation is ordered with reductions
//   - emit: called from effect goroutines, concurrently
type Runtime[A any] struct {
	opts options
	emit func(ctx context.Context, a A)

	mu    sync.Mutex
	tasks map[ID]*task

	wg sync.WaitGroup
}

type task struct {
	cancel context.CancelCauseFunc
}

type scopeKey struct{}

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// NewRuntime creates a runtime that delivers outputs to emit. The context
// passed to emit is the context of the emitting effect; Scopes(ctx) lists the
// cancellation ids enclosing it.
func NewRuntime[A any](emit func(ctx context.Context, a A), opts ...Option) *Runtime[A] {
	o := options{clock: SystemClock{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime[A]{
		opts:  o,
		emit:  emit,
		tasks: make(map[ID]*task),
	}
}

// Scopes returns the cancellation ids enclosing an effect context, outermost
// first.
func Scopes(ctx context.Context) []ID {
	ids, _ := ctx.Value(scopeKey{}).([]ID)
	return ids
}

func withScope(ctx context.Context, id ID) context.Context {
	parent := Scopes(ctx)
	ids := make([]ID, len(parent)+1)
	copy(ids, parent)
	ids[len(parent)] = id
	return context.WithValue(ctx, scopeKey{}, ids)
}

// Start begins executing e under ctx and returns a channel closed once the
// effect has completed or was cancelled.
func (rt *Runtime[A]) Start(ctx context.Context, e Effect[A]) <-chan struct{} {
	return rt.start(ctx, e)
}

// InFlight reports whether an effect is registered under id.
func (rt *Runtime[A]) InFlight(id ID) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	_, ok := rt.tasks[id]
	return ok
}

// Cancel cancels the effect registered under id, if any.
func (rt *Runtime[A]) Cancel(id ID) {
	rt.cancel(id)
}

// Wait blocks until every goroutine started by the runtime has returned.
// Call it only after the context given to Start is done.
func (rt *Runtime[A]) Wait() {
	rt.wg.Wait()
}

func (rt *Runtime[A]) start(ctx context.Context, e Effect[A]) <-chan struct{} {
	switch o := e.op.(type) {
	case nil:
		return closed

	case *runOp[A]:
		done := make(chan struct{})
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			defer close(done)
			defer rt.recoverLeaf()
			o.fn(ctx, func(a A) {
				if ctx.Err() != nil {
					return
				}
				rt.emit(ctx, a)
			})
		}()
		return done

	case *mergeOp[A]:
		dones := make([]<-chan struct{}, 0, len(o.effects))
		for _, child := range o.effects {
			dones = append(dones, rt.start(ctx, child))
		}
		return rt.join(dones)

	case *concatOp[A]:
		first := rt.start(ctx, o.effects[0])
		rest := o.effects[1:]
		done := make(chan struct{})
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			defer close(done)
			<-first
			for _, child := range rest {
				if ctx.Err() != nil {
					return
				}
				<-rt.start(ctx, child)
			}
		}()
		return done

	case *cancelOp[A]:
		for _, id := range o.ids {
			rt.cancel(id)
		}
		return closed

	case *cancellableOp[A]:
		return rt.startCancellable(ctx, o)

	case *delayOp[A]:
		timer := rt.opts.clock.After(o.d)
		done := make(chan struct{})
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			defer close(done)
			select {
			case <-ctx.Done():
				return
			case <-timer:
			}
			<-rt.start(ctx, o.effect)
		}()
		return done

	default:
		rt.opts.logger.Error("unknown effect op", "op", o)
		return closed
	}
}

func (rt *Runtime[A]) startCancellable(ctx context.Context, o *cancellableOp[A]) <-chan struct{} {
	taskCtx, cancel := context.WithCancelCause(ctx)
	taskCtx = withScope(taskCtx, o.id)
	t := &task{cancel: cancel}

	// Displacing and registering happen under one lock: an id never has two
	// live tasks.
	rt.mu.Lock()
	existing := rt.tasks[o.id]
	if existing != nil && !o.cancelInFlight {
		rt.mu.Unlock()
		cancel(errFinished)
		rt.opts.logger.Debug("effect rejected: already in flight", "id", o.id)
		return closed
	}
	rt.tasks[o.id] = t
	rt.mu.Unlock()

	// The old task's queued outputs are purged before the new one can emit.
	if existing != nil {
		existing.cancel(ErrCancelled)
		rt.notifyCancel(o.id, true)
	}

	child := rt.start(taskCtx, o.effect)

	done := make(chan struct{})
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		defer close(done)
		select {
		case <-child:
		case <-taskCtx.Done():
		}
		rt.mu.Lock()
		if rt.tasks[o.id] == t {
			delete(rt.tasks, o.id)
		}
		rt.mu.Unlock()
		cancel(errFinished)
	}()
	return done
}

func (rt *Runtime[A]) cancel(id ID) {
	rt.mu.Lock()
	t := rt.tasks[id]
	delete(rt.tasks, id)
	rt.mu.Unlock()

	if t != nil {
		t.cancel(ErrCancelled)
	}
	rt.notifyCancel(id, t != nil)
}

func (rt *Runtime[A]) notifyCancel(id ID, wasRunning bool) {
	rt.opts.logger.Debug("effect cancelled", "id", id, "was_running", wasRunning)
	if rt.opts.onCancel != nil {
		rt.opts.onCancel(id, wasRunning)
	}
}

func (rt *Runtime[A]) join(dones []<-chan struct{}) <-chan struct{} {
	switch len(dones) {
	case 0:
		return closed
	case 1:
		return dones[0]
	}
	done := make(chan struct{})
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		defer close(done)
		for _, d := range dones {
			<-d
		}
	}()
	return done
}

func (rt *Runtime[A]) recoverLeaf() {
	if r := recover(); r != nil {
		rt.opts.logger.Error("effect panicked", "panic", r)
	}
}
