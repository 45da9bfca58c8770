package deeplink

import (
	"context"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/model"
)

// MakeSDKID is the cancellation id of SDK creation from a deep link.
const MakeSDKID effect.ID = "deeplink.make_sdk"

// Status is the progress of the driver-ID entry screen.
type Status int

const (
	Entering Status = iota
	MakingSDK
)

func (s Status) String() string {
	if s == MakingSDK {
		return "making_sdk"
	}
	return "entering"
}

// State is the driver-ID entry screen.
type State struct {
	Key      model.PublishableKey
	DriverID model.DriverID
	Status   Status
}

// Action is a driver-ID entry action.
type Action interface{ isAction() }

type (
	DriverIDChanged struct{ DriverID model.DriverID }
	SetDriverID     struct{}
	// SDKMade is the status returned by making the SDK.
	SDKMade struct{ Update model.SDKStatusUpdate }
)

func (DriverIDChanged) isAction() {}
func (SetDriverID) isAction()     {}
func (SDKMade) isAction()         {}

// Environment provides deep links and the SDK calls the entry screen makes.
type Environment struct {
	SubscribeToDeepLinks func(ctx context.Context, yield func(model.DeepLink))
	HandleDeepLink       func(ctx context.Context, url string)
	MakeSDK              func(ctx context.Context, key model.PublishableKey) model.SDKStatusUpdate
	SetDriverIdentity    func(ctx context.Context, driver model.DriverID)
}

// Reduce is the driver-ID entry reducer.
func Reduce(state *State, action Action, env Environment) effect.Effect[Action] {
	switch a := action.(type) {
	case DriverIDChanged:
		if state.Status == Entering {
			state.DriverID = a.DriverID
		}

	case SetDriverID:
		if state.Status != Entering {
			return effect.None[Action]()
		}
		driver := NormalizeDriverID(string(state.DriverID))
		if driver == "" {
			return effect.None[Action]()
		}
		state.DriverID = driver
		state.Status = MakingSDK
		return MakeSDK(env, state.Key, driver)

	case SDKMade:
		// Unlocking moves the app to the main flow; anything else lets the
		// driver retry.
		if _, ok := a.Update.(model.Unlocked); !ok && state.Status == MakingSDK {
			state.Status = Entering
		}
	}
	return effect.None[Action]()
}

// MakeSDK makes the SDK for key and attaches the driver identity. The two
// calls are independent and run concurrently; only the made status is fed
// back.
func MakeSDK(env Environment, key model.PublishableKey, driver model.DriverID) effect.Effect[Action] {
	return effect.Merge(
		effect.Task(func(ctx context.Context) Action {
			return SDKMade{Update: env.MakeSDK(ctx, key)}
		}).Cancellable(MakeSDKID, true),
		effect.FireAndForget[Action](func(ctx context.Context) {
			env.SetDriverIdentity(ctx, driver)
		}),
	)
}
