package effect

import (
	"context"
	"time"
)

// ID identifies a class of in-flight effect for cancellation purposes.
type ID string

// Effect is a description of zero or more asynchronous outputs of type A.
// The zero value is None.
type Effect[A any] struct {
	op op[A]
}

type op[A any] interface {
	isOp()
}

type runOp[A any] struct {
	fn func(ctx context.Context, send func(A))
}

type mergeOp[A any] struct {
	effects []Effect[A]
}

type concatOp[A any] struct {
	effects []Effect[A]
}

type cancellableOp[A any] struct {
	id             ID
	cancelInFlight bool
	effect         Effect[A]
}

type cancelOp[A any] struct {
	ids []ID
}

type delayOp[A any] struct {
	d      time.Duration
	effect Effect[A]
}

func (*runOp[A]) isOp()         {}
func (*mergeOp[A]) isOp()       {}
func (*concatOp[A]) isOp()      {}
func (*cancellableOp[A]) isOp() {}
func (*cancelOp[A]) isOp()      {}
func (*delayOp[A]) isOp()       {}

// None completes immediately with no outputs.
func None[A any]() Effect[A] {
	return Effect[A]{}
}

// IsNone reports whether the effect does nothing.
func (e Effect[A]) IsNone() bool {
	return e.op == nil
}

// Run wraps a function that may emit any number of outputs before returning.
// The function must return once ctx is done.
func Run[A any](fn func(ctx context.Context, send func(A))) Effect[A] {
	return Effect[A]{op: &runOp[A]{fn: fn}}
}

// Just emits a single value.
func Just[A any](a A) Effect[A] {
	return Run(func(_ context.Context, send func(A)) { send(a) })
}

// Task runs fn and emits its result.
func Task[A any](fn func(ctx context.Context) A) Effect[A] {
	return Run(func(ctx context.Context, send func(A)) { send(fn(ctx)) })
}

// FireAndForget runs fn for its side effect only.
func FireAndForget[A any](fn func(ctx context.Context)) Effect[A] {
	return Run(func(ctx context.Context, _ func(A)) { fn(ctx) })
}

// Subscribe turns a blocking subscription into a stream effect. subscribe
// must deliver values through yield until ctx is done.
func Subscribe[T, A any](subscribe func(ctx context.Context, yield func(T)), f func(T) A) Effect[A] {
	return Run(func(ctx context.Context, send func(A)) {
		subscribe(ctx, func(t T) { send(f(t)) })
	})
}

// RemoveDuplicates wraps a subscription so that consecutive equal values are
// delivered once.
func RemoveDuplicates[T comparable](subscribe func(ctx context.Context, yield func(T))) func(context.Context, func(T)) {
	return func(ctx context.Context, yield func(T)) {
		var last T
		seen := false
		subscribe(ctx, func(t T) {
			if seen && t == last {
				return
			}
			seen, last = true, t
			yield(t)
		})
	}
}

// Merge runs all effects concurrently. Outputs interleave in completion order.
func Merge[A any](effects ...Effect[A]) Effect[A] {
	effects = compact(effects)
	switch len(effects) {
	case 0:
		return None[A]()
	case 1:
		return effects[0]
	}
	return Effect[A]{op: &mergeOp[A]{effects: effects}}
}

// Concatenate runs effects one after another; each starts only once the
// previous one has completed.
func Concatenate[A any](effects ...Effect[A]) Effect[A] {
	effects = compact(effects)
	switch len(effects) {
	case 0:
		return None[A]()
	case 1:
		return effects[0]
	}
	return Effect[A]{op: &concatOp[A]{effects: effects}}
}

// Cancel cancels every effect currently registered under the given ids.
func Cancel[A any](ids ...ID) Effect[A] {
	if len(ids) == 0 {
		return None[A]()
	}
	return Effect[A]{op: &cancelOp[A]{ids: ids}}
}

// Cancellable registers the effect under id while it runs. With
// cancelInFlight an effect already running under id is cancelled first;
// without it the new effect is rejected while another one is in flight.
func (e Effect[A]) Cancellable(id ID, cancelInFlight bool) Effect[A] {
	return Effect[A]{op: &cancellableOp[A]{id: id, cancelInFlight: cancelInFlight, effect: e}}
}

// Delay defers the start of the effect by d.
func (e Effect[A]) Delay(d time.Duration) Effect[A] {
	if e.IsNone() {
		return e
	}
	return Effect[A]{op: &delayOp[A]{d: d, effect: e}}
}

// Debounce delays the effect and restarts the delay whenever another effect
// is debounced under the same id.
func (e Effect[A]) Debounce(id ID, d time.Duration) Effect[A] {
	return e.Delay(d).Cancellable(id, true)
}

// Map transforms every output of e with f.
func Map[A, B any](e Effect[A], f func(A) B) Effect[B] {
	switch o := e.op.(type) {
	case nil:
		return None[B]()
	case *runOp[A]:
		return Run(func(ctx context.Context, send func(B)) {
			o.fn(ctx, func(a A) { send(f(a)) })
		})
	case *mergeOp[A]:
		return Effect[B]{op: &mergeOp[B]{effects: mapAll(o.effects, f)}}
	case *concatOp[A]:
		return Effect[B]{op: &concatOp[B]{effects: mapAll(o.effects, f)}}
	case *cancellableOp[A]:
		return Effect[B]{op: &cancellableOp[B]{id: o.id, cancelInFlight: o.cancelInFlight, effect: Map(o.effect, f)}}
	case *cancelOp[A]:
		return Effect[B]{op: &cancelOp[B]{ids: o.ids}}
	case *delayOp[A]:
		return Effect[B]{op: &delayOp[B]{d: o.d, effect: Map(o.effect, f)}}
	default:
		panic("effect: unknown op")
	}
}

func mapAll[A, B any](effects []Effect[A], f func(A) B) []Effect[B] {
	out := make([]Effect[B], len(effects))
	for i, e := range effects {
		out[i] = Map(e, f)
	}
	return out
}

func compact[A any](effects []Effect[A]) []Effect[A] {
	out := effects[:0:0]
	for _, e := range effects {
		if !e.IsNone() {
			out = append(out, e)
		}
	}
	return out
}
