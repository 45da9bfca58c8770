package app

import (
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/optics"
)

// State optics.

var (
	launchLens = optics.NewLens(
		func(s State) sdklaunch.State { return s.Launch },
		func(s State, l sdklaunch.State) State { s.Launch = l; return s },
	)

	flowLens = optics.NewLens(
		func(s State) Flow { return s.Flow },
		func(s State, f Flow) State { s.Flow = f; return s },
	)

	signInFlow = optics.LensThenPrism(flowLens, optics.CasePrism[Flow, SignIn](func(v SignIn) Flow { return v }))
	signInState = optics.ThenLensAffine(signInFlow, optics.NewLens(
		func(f SignIn) signin.State { return f.State },
		func(_ SignIn, s signin.State) SignIn { return SignIn{State: s} },
	))

	driverIDFlow  = optics.LensThenPrism(flowLens, optics.CasePrism[Flow, DriverID](func(v DriverID) Flow { return v }))
	driverIDState = optics.ThenLensAffine(driverIDFlow, optics.NewLens(
		func(f DriverID) deeplink.State { return f.State },
		func(_ DriverID, s deeplink.State) DriverID { return DriverID{State: s} },
	))

	mainFlow = optics.LensThenPrism(flowLens, optics.CasePrism[Flow, Main](func(v Main) Flow { return v }))

	// refreshState focuses the main flow once its device is known; refresh
	// actions sent before that are dropped.
	refreshState = optics.ThenAffine(mainFlow, optics.NewAffine(
		func(m Main) (refresh.State, bool) {
			if m.DeviceID == "" {
				return refresh.State{}, false
			}
			return refresh.State{
				Flags:    m.Refreshing,
				Key:      m.PublishableKey,
				DeviceID: m.DeviceID,
				Token:    m.Token,
				Orders:   m.Orders,
				Places:   m.Places,
				History:  m.History,
			}, true
		},
		func(m Main, r refresh.State) (Main, bool) {
			if m.DeviceID == "" {
				return m, false
			}
			m.Refreshing = r.Flags
			m.Token = r.Token
			m.Orders = r.Orders
			m.Places = r.Places
			m.History = r.History
			return m, true
		},
	))
)

// Action optics. Some are not injective: app-level actions the feature
// also reacts to are extracted as the matching feature action, while the
// feature's own outputs are always embedded in its case.

var (
	launchAction = optics.NewPrism(
		func(a Action) (sdklaunch.Action, bool) {
			switch a := a.(type) {
			case LaunchAction:
				return a.Action, true
			case RestoredState:
				return sdklaunch.Restore{Key: restoredKey(a.State)}, true
			case MadeSDK:
				return sdklaunch.Made{Update: a.Update}, true
			}
			return nil, false
		},
		func(a sdklaunch.Action) Action { return LaunchAction{Action: a} },
	)

	signInAction = optics.NewPrism(
		func(a Action) (signin.Action, bool) {
			w, ok := a.(SignInAction)
			return w.Action, ok
		},
		func(a signin.Action) Action { return SignInAction{Action: a} },
	)

	driverIDAction = optics.NewPrism(
		func(a Action) (deeplink.Action, bool) {
			switch a := a.(type) {
			case DriverIDAction:
				return a.Action, true
			case MadeSDK:
				return deeplink.SDKMade{Update: a.Update}, true
			}
			return nil, false
		},
		func(a deeplink.Action) Action {
			if made, ok := a.(deeplink.SDKMade); ok {
				return MadeSDK{Update: made.Update}
			}
			return DriverIDAction{Action: a}
		},
	)

	refreshAction = optics.NewPrism(
		func(a Action) (refresh.Action, bool) {
			switch a := a.(type) {
			case RefreshAction:
				return a.Action, true
			case AppBecameVisible, ReceivedPushNotification, MainUnlocked, StartTracking:
				return refresh.UpdateAll{}, true
			case AppBecameInvisible, StopTracking, SignOut:
				return refresh.CancelAll{}, true
			}
			return nil, false
		},
		func(a refresh.Action) Action { return RefreshAction{Action: a} },
	)
)

func restoredKey(s *restoration.StorageState) model.PublishableKey {
	if s == nil {
		return ""
	}
	if m, ok := s.Flow.(restoration.MainFlow); ok {
		return m.PublishableKey
	}
	return ""
}
