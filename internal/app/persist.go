package app

import (
	"context"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/reducer"
)

// Snapshot returns the persisted part of the state. There is nothing to
// persist before restoration finished.
//
// The driver-ID screen is not persisted as such: a relaunch resumes at an
// empty sign-in form.
func Snapshot(s State) (restoration.StorageState, bool) {
	var flow restoration.Flow
	switch f := s.Flow.(type) {
	case FirstRun:
		flow = restoration.FirstRunFlow{}
	case SignIn:
		flow = restoration.SignInFlow{Email: signInEmail(f.State)}
	case DriverID:
		flow = restoration.SignInFlow{}
	case Main:
		flow = restoration.MainFlow{
			Places:         model.SortedPlaces(f.Places),
			Tab:            f.Tab,
			PublishableKey: f.PublishableKey,
			DriverID:       f.DriverID,
		}
	default:
		return restoration.StorageState{}, false
	}
	return restoration.StorageState{
		Flow:           flow,
		LocationAlways: s.LocationAlways,
		PushStatus:     s.PushStatus,
		Experience:     s.Experience,
	}, true
}

func signInEmail(s signin.State) model.Email {
	switch s := s.(type) {
	case signin.Entering:
		return s.Email
	case signin.Entered:
		return s.Email
	}
	return ""
}

// persisting saves the snapshot after every reduction that changed it.
// Saves share one cancellation id so a newer snapshot supersedes an older
// one still being written. A failed save clears Saved, so the next
// reduction writes the snapshot again.
func persisting(r reducer.Reducer[State, Action, Environment]) reducer.Reducer[State, Action, Environment] {
	return func(state *State, action Action, env Environment) effect.Effect[Action] {
		if failed, ok := action.(SaveFailed); ok {
			if state.Saved != nil && state.Saved.Equal(failed.Snapshot) {
				state.Saved = nil
			}
			return effect.None[Action]()
		}

		eff := r(state, action, env)

		snap, ok := Snapshot(*state)
		if !ok || (state.Saved != nil && state.Saved.Equal(snap)) {
			return eff
		}
		state.Saved = &snap
		return effect.Merge(eff, save(env, snap))
	}
}

func save(env Environment, snap restoration.StorageState) effect.Effect[Action] {
	if env.Restoration.Save == nil {
		return effect.None[Action]()
	}
	return effect.Run(func(ctx context.Context, send func(Action)) {
		err := env.Restoration.Save(ctx, snap)
		if err == nil || ctx.Err() != nil {
			return
		}
		if env.Report.Capture != nil {
			env.Report.Capture(ctx, "save state: "+err.Error())
		}
		send(SaveFailed{Snapshot: snap, Err: err})
	}).Cancellable(SaveID, true)
}
