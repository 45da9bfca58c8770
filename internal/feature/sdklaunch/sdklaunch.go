// Package sdklaunch sequences SDK start-up: wait for restored state, then
// subscribe to status updates and, when a publishable key was restored,
// make the SDK for it. Two effects race to complete the launch; the state
// guard lets exactly one of them win.
package sdklaunch

import (
	"context"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/model"
)

// StatusID is the cancellation id of the status subscription.
const StatusID effect.ID = "sdk.status"

// State is the launch state machine.
type State interface{ isState() }

// AwaitingRestore is the state before restoration finished.
type AwaitingRestore struct{}

// StateRestored carries the restored publishable key, empty if none.
type StateRestored struct{ Key model.PublishableKey }

// Launching waits for the first applicable status.
type Launching struct{ Key model.PublishableKey }

// Launched holds the latest SDK status.
type Launched struct{ Status model.SDKStatusUpdate }

func (AwaitingRestore) isState() {}
func (StateRestored) isState()   {}
func (Launching) isState()       {}
func (Launched) isState()        {}

// Action is a launch action.
type Action interface{ isAction() }

type (
	// Restore records the restored key.
	Restore struct{ Key model.PublishableKey }
	// Launch starts the SDK.
	Launch struct{}
	// Subscribed is a status delivered by the subscription.
	Subscribed struct{ Update model.SDKStatusUpdate }
	// Initialized is the status returned by making the SDK at launch.
	Initialized struct{ Update model.SDKStatusUpdate }
	// Made is the status returned by making the SDK after launch, from a
	// deep link or sign-in.
	Made struct{ Update model.SDKStatusUpdate }
)

func (Restore) isAction()     {}
func (Launch) isAction()      {}
func (Subscribed) isAction()  {}
func (Initialized) isAction() {}
func (Made) isAction()        {}

// Environment is what the launch reducer needs from the outside.
type Environment struct {
	MakeSDK   func(ctx context.Context, key model.PublishableKey) model.SDKStatusUpdate
	Subscribe func(ctx context.Context, yield func(model.SDKStatusUpdate))
	Capture   func(ctx context.Context, message string)
}

// Reduce is the launch reducer.
func Reduce(state *State, action Action, env Environment) effect.Effect[Action] {
	switch a := action.(type) {
	case Restore:
		if _, ok := (*state).(AwaitingRestore); !ok {
			return capture(env, "restore while "+stateName(*state))
		}
		*state = StateRestored{Key: a.Key}

	case Launch:
		restored, ok := (*state).(StateRestored)
		if !ok {
			return capture(env, "launch while "+stateName(*state))
		}
		*state = Launching{Key: restored.Key}

		subscription := effect.Subscribe(effect.RemoveDuplicates(env.Subscribe), func(u model.SDKStatusUpdate) Action {
			return Subscribed{Update: u}
		}).Cancellable(StatusID, true)

		if restored.Key == "" {
			return subscription
		}
		key := restored.Key
		return effect.Merge(subscription, effect.Task(func(ctx context.Context) Action {
			return Initialized{Update: env.MakeSDK(ctx, key)}
		}))

	case Subscribed:
		switch s := (*state).(type) {
		case Launching:
			if s.Key == "" {
				*state = Launched{Status: a.Update}
			}
		case Launched:
			return update(state, s, a.Update, env)
		}

	case Initialized:
		switch s := (*state).(type) {
		case Launching:
			if s.Key != "" {
				*state = Launched{Status: a.Update}
			}
		case Launched:
			return update(state, s, a.Update, env)
		}

	case Made:
		if s, ok := (*state).(Launched); ok {
			return update(state, s, a.Update, env)
		}
	}
	return effect.None[Action]()
}

// update replaces the launched status unless doing so would change the
// device identity, which cannot happen once the device is unlocked.
func update(state *State, current Launched, next model.SDKStatusUpdate, env Environment) effect.Effect[Action] {
	if was, ok := model.DeviceIDOf(current.Status); ok {
		now, unlocked := model.DeviceIDOf(next)
		if !unlocked || now != was {
			return capture(env, "ignored status "+next.String()+" after "+current.Status.String())
		}
	}
	*state = Launched{Status: next}
	return effect.None[Action]()
}

// Status returns the launched status.
func Status(s State) (model.SDKStatusUpdate, bool) {
	if l, ok := s.(Launched); ok {
		return l.Status, true
	}
	return nil, false
}

func capture(env Environment, msg string) effect.Effect[Action] {
	if env.Capture == nil {
		return effect.None[Action]()
	}
	return effect.FireAndForget[Action](func(ctx context.Context) { env.Capture(ctx, "sdklaunch: "+msg) })
}

func stateName(s State) string {
	switch s.(type) {
	case AwaitingRestore:
		return "awaiting restore"
	case StateRestored:
		return "restored"
	case Launching:
		return "launching"
	case Launched:
		return "launched"
	default:
		return "unknown"
	}
}
