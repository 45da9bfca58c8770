// Package reducer defines pure state-transition functions and the
// combinators that compose feature reducers into one application reducer.
package reducer

import (
	"log/slog"
	"time"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/optics"
)

// Reducer mutates state in place in response to an action and returns the
// effects whose outputs are fed back as further actions.
//
// A reducer is synchronous and total: it never blocks, never panics, and
// treats an action that makes no sense for the current state as a no-op.
type Reducer[S, A, E any] func(state *S, action A, env E) effect.Effect[A]

// Combine runs reducers in listed order against the same state and action.
// Later reducers observe the state left by earlier ones. Effects are merged;
// the runtime starts merged effects in listed order.
func Combine[S, A, E any](reducers ...Reducer[S, A, E]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		effects := make([]effect.Effect[A], 0, len(reducers))
		for _, r := range reducers {
			effects = append(effects, r(state, action, env))
		}
		return effect.Merge(effects...)
	}
}

// Pullback lifts a reducer over local state, action and environment into one
// over the global triple.
//
// When either the state or the action cannot be extracted the local reducer
// is not invoked and the result is effect.None: actions aimed at an inactive
// feature are dropped. Otherwise the mutated local state is injected back and
// the local effect's outputs are embedded into global actions.
func Pullback[GS, GA, GE, LS, LA, LE any](
	local Reducer[LS, LA, LE],
	state optics.Affine[GS, LS],
	action optics.Prism[GA, LA],
	environment func(GE) LE,
) Reducer[GS, GA, GE] {
	return func(global *GS, ga GA, genv GE) effect.Effect[GA] {
		la, ok := action.Extract(ga)
		if !ok {
			return effect.None[GA]()
		}
		ls, ok := state.Extract(*global)
		if !ok {
			return effect.None[GA]()
		}

		eff := local(&ls, la, environment(genv))

		if next, ok := state.Inject(*global, ls); ok {
			*global = next
		}
		return effect.Map(eff, action.Embed)
	}
}

// Optional runs a reducer over a pointer-valued focus only while it is set.
func Optional[S, A, E any](r Reducer[S, A, E]) Reducer[*S, A, E] {
	return func(state **S, action A, env E) effect.Effect[A] {
		if *state == nil {
			return effect.None[A]()
		}
		return r(*state, action, env)
	}
}

// Empty is the reducer that does nothing.
func Empty[S, A, E any]() Reducer[S, A, E] {
	return func(*S, A, E) effect.Effect[A] { return effect.None[A]() }
}

// Logging wraps a reducer with debug logging of every action and the time
// spent reducing it. name labels the log lines.
func Logging[S, A, E any](name string, logger *slog.Logger, r Reducer[S, A, E]) Reducer[S, A, E] {
	if logger == nil {
		logger = slog.Default()
	}
	return func(state *S, action A, env E) effect.Effect[A] {
		start := time.Now()
		eff := r(state, action, env)
		logger.Debug("reduced",
			"reducer", name,
			"action", ActionName(action),
			"duration", time.Since(start),
			"effects", !eff.IsNone(),
		)
		return eff
	}
}
