package app

import (
	"context"
	"maps"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/reducer"
	"github.com/roach88/fieldflow/internal/report"
)

// Cancellation ids owned by the flow.
const (
	LoadID      effect.ID = "app.load"
	DeepLinksID effect.ID = "app.deeplinks"
	SplashID    effect.ID = "app.splash"
	SaveID      effect.ID = "app.save"
)

// OrderRequestID is the cancellation id of a cancel or complete request.
func OrderRequestID(id model.OrderID) effect.ID {
	return effect.ID("app.order." + string(id))
}

// Reduce is the application reducer.
//
// Feature reducers run first and the flow reducer last, so the flow
// observes their results: a successful sign-in is already Success when the
// flow makes the SDK for it, and refresh sees SignOut while the main flow
// still exists. Every reduction that changes the persisted snapshot saves
// it.
func Reduce(state *State, action Action, env Environment) effect.Effect[Action] {
	return root(state, action, env)
}

var root = persisting(reducer.Combine(
	reducer.Pullback(sdklaunch.Reduce, launchLens.Affine(), launchAction, launchEnvironment),
	reducer.Pullback(signin.Reduce, signInState, signInAction, signInEnvironment),
	reducer.Pullback(deeplink.Reduce, driverIDState, driverIDAction, deepLinkEnvironment),
	reducer.Pullback(refresh.Reduce, refreshState, refreshAction, refreshEnvironment),
	navigation(reduceFlow),
))

func reduceFlow(state *State, action Action, env Environment) effect.Effect[Action] {
	switch a := action.(type) {
	case OSFinishedLaunching:
		if _, ok := state.Flow.(Created); !ok {
			return effect.None[Action]()
		}
		load := effect.Task(func(ctx context.Context) Action {
			s, err := env.Restoration.Load(ctx)
			return RestoredState{State: s, Err: err}
		}).Cancellable(LoadID, false)
		if env.DeepLinks.Subscribe == nil {
			return load
		}
		links := effect.Subscribe(env.DeepLinks.Subscribe, func(l model.DeepLink) Action {
			return DeepLinkOpened{Link: l}
		}).Cancellable(DeepLinksID, true)
		return effect.Merge(load, links)

	case RestoredState:
		return restore(state, a, env)

	case FirstRunWaitingComplete:
		if _, ok := state.Flow.(FirstRun); ok {
			state.Flow = SignIn{State: signin.Entering{}}
		}

	case AppBecameVisible:
		state.Visible = true

	case AppBecameInvisible:
		state.Visible = false

	case OpenURL:
		if env.DeepLinks.Handle == nil {
			return effect.None[Action]()
		}
		url := a.URL
		return effect.FireAndForget[Action](func(ctx context.Context) { env.DeepLinks.Handle(ctx, url) })

	case DeepLinkOpened:
		return openDeepLink(state, a.Link, env)

	case ApplyPartialDeepLink:
		if !acceptsDeepLink(state.Flow) {
			return effect.None[Action]()
		}
		state.Flow = DriverID{State: deeplink.State{Key: a.Key}}
		return leaveSignIn()

	case ApplyFullDeepLink:
		if !acceptsDeepLink(state.Flow) {
			return effect.None[Action]()
		}
		state.Flow = DriverID{State: deeplink.State{Key: a.Key, DriverID: a.DriverID, Status: deeplink.MakingSDK}}
		return effect.Merge(leaveSignIn(), makeSDK(env, a.Key, a.DriverID))

	case MadeSDK:
		return madeSDK(state, a.Update, env)

	case LaunchAction:
		return unlockMain(state, env)

	case SignInAction:
		return signInResult(state, a.Action, env)

	case RefreshAction:
		return refreshResult(state, a.Action, env)

	case StartTracking:
		if _, ok := state.Flow.(Main); !ok {
			return effect.None[Action]()
		}
		state.Experience = model.ExperienceRegular
		return sdkCall(env.SDK.StartTracking)

	case StopTracking:
		if _, ok := state.Flow.(Main); !ok {
			return effect.None[Action]()
		}
		return sdkCall(env.SDK.StopTracking)

	case SignOut:
		m, ok := state.Flow.(Main)
		if !ok {
			return effect.None[Action]()
		}
		state.Flow = SignIn{State: signin.Entering{}}
		state.Alert = nil
		ids := make([]effect.ID, 0, len(m.OrderRequests))
		for id := range m.OrderRequests {
			ids = append(ids, OrderRequestID(id))
		}
		return effect.Merge(effect.Cancel[Action](ids...), sdkCall(env.SDK.StopTracking))

	case RequestPermissions:
		return sdkCall(env.SDK.RequestPermissions)

	case OpenSettings:
		return sdkCall(env.SDK.OpenSettings)

	case RequestAlwaysLocation:
		if state.LocationAlways != model.LocationAlwaysNotRequested {
			return effect.None[Action]()
		}
		state.LocationAlways = model.LocationAlwaysRequested
		return sdkCall(env.SDK.RequestAlwaysLocation)

	case RequestPushAuthorization:
		if state.PushStatus != model.PushNotShown {
			return effect.None[Action]()
		}
		state.PushStatus = model.PushWaitingForUser
		return effect.Task(func(ctx context.Context) Action {
			return PushAuthorized{Granted: env.SDK.RequestPushAuthorization(ctx)}
		})

	case PushAuthorized:
		if state.PushStatus == model.PushWaitingForUser {
			state.PushStatus = model.PushShown
		}

	case SelectTab:
		if m, ok := state.Flow.(Main); ok {
			m.Tab = a.Tab
			state.Flow = m
		}

	case SelectOrder:
		m, ok := state.Flow.(Main)
		if !ok {
			return effect.None[Action]()
		}
		if a.ID == nil {
			m.SelectedOrder = nil
		} else if _, exists := m.Orders[*a.ID]; exists {
			id := *a.ID
			m.SelectedOrder = &id
		}
		state.Flow = m

	case CancelOrder:
		return requestOrder(state, a.ID, Cancelling, env)

	case CompleteOrder:
		return requestOrder(state, a.ID, Completing, env)

	case OrderFinished:
		return orderFinished(state, a, env)

	case DismissAlert:
		state.Alert = nil
	}
	return effect.None[Action]()
}

func restore(state *State, a RestoredState, env Environment) effect.Effect[Action] {
	if _, ok := state.Flow.(Created); !ok {
		return capture(env, "restored state while "+FlowName(state.Flow))
	}

	var effects []effect.Effect[Action]
	restored := a.State
	if a.Err != nil {
		// Start fresh but report the anomaly.
		effects = append(effects, capture(env, a.Err.Error()))
		restored = nil
	}

	if restored == nil {
		state.Flow = FirstRun{}
		effects = append(effects, splash(env))
	} else {
		state.LocationAlways = restored.LocationAlways
		state.PushStatus = restored.PushStatus
		state.Experience = restored.Experience

		switch f := restored.Flow.(type) {
		case restoration.SignInFlow:
			state.Flow = SignIn{State: signin.Entering{Email: f.Email}}
		case restoration.MainFlow:
			state.Flow = Main{
				Places:         model.PlaceSet(f.Places),
				Tab:            f.Tab,
				PublishableKey: f.PublishableKey,
				DriverID:       f.DriverID,
			}
		default:
			state.Flow = FirstRun{}
			effects = append(effects, splash(env))
		}
		saved := *restored
		state.Saved = &saved
	}

	next := []effect.Effect[Action]{effect.Just[Action](LaunchAction{Action: sdklaunch.Launch{}})}
	if link := state.PendingDeepLink; link != nil {
		state.PendingDeepLink = nil
		next = append(next, effect.Just[Action](DeepLinkOpened{Link: *link}))
	}
	effects = append(effects, effect.Concatenate(next...))
	return effect.Merge(effects...)
}

func splash(env Environment) effect.Effect[Action] {
	return effect.Just[Action](FirstRunWaitingComplete{}).Delay(env.splashDelay()).Cancellable(SplashID, true)
}

func acceptsDeepLink(f Flow) bool {
	switch f := f.(type) {
	case FirstRun, SignIn:
		return true
	case DriverID:
		return f.State.Status == deeplink.Entering
	default:
		return false
	}
}

func openDeepLink(state *State, link model.DeepLink, env Environment) effect.Effect[Action] {
	if _, ok := state.Flow.(Created); ok {
		state.PendingDeepLink = &link
		return effect.None[Action]()
	}
	if !acceptsDeepLink(state.Flow) {
		return capture(env, "deep link ignored while "+FlowName(state.Flow))
	}
	if link.Partial() {
		return effect.Just[Action](ApplyPartialDeepLink{Key: link.PublishableKey})
	}
	return effect.Just[Action](ApplyFullDeepLink{Key: link.PublishableKey, DriverID: link.DriverID})
}

// leaveSignIn stops everything the first-run and sign-in flows may still
// have in flight.
func leaveSignIn() effect.Effect[Action] {
	return effect.Cancel[Action](SplashID, signin.RequestID, deeplink.MakeSDKID)
}

// makeSDK makes the SDK for key and sets the driver identity. The made
// status comes back as MadeSDK.
func makeSDK(env Environment, key model.PublishableKey, driver model.DriverID) effect.Effect[Action] {
	return effect.Map(deeplink.MakeSDK(deepLinkEnvironment(env), key, driver), driverIDAction.Embed)
}

func madeSDK(state *State, update model.SDKStatusUpdate, env Environment) effect.Effect[Action] {
	un, unlocked := update.(model.Unlocked)

	switch f := state.Flow.(type) {
	case DriverID:
		if unlocked && f.State.Status == deeplink.MakingSDK {
			return enterMain(state, Main{PublishableKey: f.State.Key, DriverID: f.State.DriverID}, un.DeviceID, env)
		}

	case SignIn:
		entered, ok := f.State.(signin.Entered)
		if !ok {
			return effect.None[Action]()
		}
		success, ok := entered.Request.(signin.Success)
		if !ok {
			return effect.None[Action]()
		}
		if !unlocked {
			state.Flow = SignIn{State: signin.Entering{Email: entered.Email, Password: entered.Password}}
			return showAlert(state, "Tracking unavailable", "The device could not be activated. Try again.", env)
		}
		return enterMain(state, Main{
			PublishableKey: success.Credential.PublishableKey,
			DriverID:       model.DriverID(signin.NormalizeEmail(string(entered.Email))),
			Token:          success.Credential.Token,
		}, un.DeviceID, env)

	case Main:
		return unlockMain(state, env)
	}
	return effect.None[Action]()
}

func enterMain(state *State, m Main, device model.DeviceID, env Environment) effect.Effect[Action] {
	m.DeviceID = device
	m.Tab = model.TabMap
	state.Flow = m
	return effect.Merge(updateUser(env, device), effect.Just[Action](MainUnlocked{}))
}

// unlockMain completes a restored main flow once the SDK reports the
// device unlocked.
func unlockMain(state *State, env Environment) effect.Effect[Action] {
	m, ok := state.Flow.(Main)
	if !ok || m.DeviceID != "" {
		return effect.None[Action]()
	}
	status, ok := sdklaunch.Status(state.Launch)
	if !ok {
		return effect.None[Action]()
	}
	device, ok := model.DeviceIDOf(status)
	if !ok {
		return effect.None[Action]()
	}
	m.DeviceID = device
	state.Flow = m
	return effect.Merge(updateUser(env, device), effect.Just[Action](MainUnlocked{}))
}

func signInResult(state *State, action signin.Action, env Environment) effect.Effect[Action] {
	signedIn, ok := action.(signin.SignedIn)
	if !ok {
		return effect.None[Action]()
	}
	f, ok := state.Flow.(SignIn)
	if !ok {
		return effect.None[Action]()
	}
	if signedIn.Err != nil {
		if _, entering := f.State.(signin.Entering); entering {
			title, message := signedIn.Err.Alert()
			return showAlert(state, title, message, env)
		}
		return effect.None[Action]()
	}
	entered, ok := f.State.(signin.Entered)
	if !ok {
		return effect.None[Action]()
	}
	success, ok := entered.Request.(signin.Success)
	if !ok {
		return effect.None[Action]()
	}
	return makeSDK(env, success.Credential.PublishableKey, model.DriverID(signin.NormalizeEmail(string(entered.Email))))
}

// refreshResult surfaces refresh failures other than token expiry, which
// the refresh reducer recovers from itself.
func refreshResult(state *State, action refresh.Action, env Environment) effect.Effect[Action] {
	m, ok := state.Flow.(Main)
	if !ok {
		return effect.None[Action]()
	}

	var err *api.Error[api.Expired]
	switch a := action.(type) {
	case refresh.OrdersUpdated:
		err = a.Err
		if err == nil && m.SelectedOrder != nil {
			if _, exists := m.Orders[*m.SelectedOrder]; !exists {
				m.SelectedOrder = nil
				state.Flow = m
			}
		}
	case refresh.PlacesUpdated:
		err = a.Err
	case refresh.HistoryUpdated:
		err = a.Err
	case refresh.TokenUpdated:
		if a.Err != nil {
			title, message := a.Err.Alert()
			return showAlert(state, title, message, env)
		}
	}
	if err == nil || err.IsSpecific() {
		return effect.None[Action]()
	}
	title, message := err.Alert()
	return showAlert(state, title, message, env)
}

func requestOrder(state *State, id model.OrderID, req OrderRequest, env Environment) effect.Effect[Action] {
	m, ok := state.Flow.(Main)
	if !ok || m.DeviceID == "" {
		return effect.None[Action]()
	}
	order, ok := m.Orders[id]
	if !ok || order.Status != model.OrderOngoing {
		return effect.None[Action]()
	}
	if _, pending := m.OrderRequests[id]; pending {
		return effect.None[Action]()
	}

	requests := maps.Clone(m.OrderRequests)
	if requests == nil {
		requests = map[model.OrderID]OrderRequest{}
	}
	requests[id] = req
	m.OrderRequests = requests
	state.Flow = m

	call := env.API.CancelOrder
	if req == Completing {
		call = env.API.CompleteOrder
	}
	token, device := m.Token, m.DeviceID
	return effect.Task(func(ctx context.Context) Action {
		err := call(ctx, token, device, id)
		return OrderFinished{ID: id, Request: req, Err: api.Classify[api.Expired](err)}
	}).Cancellable(OrderRequestID(id), true)
}

func orderFinished(state *State, a OrderFinished, env Environment) effect.Effect[Action] {
	m, ok := state.Flow.(Main)
	if !ok {
		return effect.None[Action]()
	}
	if req, pending := m.OrderRequests[a.ID]; !pending || req != a.Request {
		return effect.None[Action]()
	}

	requests := maps.Clone(m.OrderRequests)
	delete(requests, a.ID)
	m.OrderRequests = requests

	switch {
	case a.Err == nil:
		orders := maps.Clone(m.Orders)
		if o, ok := orders[a.ID]; ok {
			o.Status = model.OrderCancelled
			if a.Request == Completing {
				o.Status = model.OrderCompleted
			}
			orders[a.ID] = o
		}
		m.Orders = orders
		state.Flow = m
		return effect.Just[Action](RefreshAction{Action: refresh.UpdateOrders{}})

	case a.Err.IsSpecific():
		m.Token = ""
		state.Flow = m
		return effect.Merge(
			showAlert(state, "Session expired", "Your session was renewed. Try again.", env),
			effect.Just[Action](RefreshAction{Action: refresh.UpdateAll{}}),
		)

	default:
		state.Flow = m
		title, message := a.Err.Alert()
		return showAlert(state, title, message, env)
	}
}

func showAlert(state *State, title, message string, env Environment) effect.Effect[Action] {
	state.Alert = &Alert{Title: title, Message: message}
	return breadcrumb(env, report.BreadcrumbError, title+": "+message)
}

func sdkCall(fn func(context.Context)) effect.Effect[Action] {
	if fn == nil {
		return effect.None[Action]()
	}
	return effect.FireAndForget[Action](fn)
}

func capture(env Environment, message string) effect.Effect[Action] {
	if env.Report.Capture == nil {
		return effect.None[Action]()
	}
	return effect.FireAndForget[Action](func(ctx context.Context) { env.Report.Capture(ctx, message) })
}

func breadcrumb(env Environment, kind report.BreadcrumbType, message string) effect.Effect[Action] {
	if env.Report.AddBreadcrumb == nil {
		return effect.None[Action]()
	}
	return effect.FireAndForget[Action](func(ctx context.Context) { env.Report.AddBreadcrumb(ctx, kind, message) })
}

func updateUser(env Environment, device model.DeviceID) effect.Effect[Action] {
	if env.Report.UpdateUser == nil {
		return effect.None[Action]()
	}
	return effect.FireAndForget[Action](func(ctx context.Context) { env.Report.UpdateUser(ctx, device) })
}

// navigation leaves a breadcrumb whenever the flow changes.
func navigation(r reducer.Reducer[State, Action, Environment]) reducer.Reducer[State, Action, Environment] {
	return func(state *State, action Action, env Environment) effect.Effect[Action] {
		before := FlowName(state.Flow)
		eff := r(state, action, env)
		if after := FlowName(state.Flow); after != before {
			return effect.Merge(eff, breadcrumb(env, report.BreadcrumbNavigation, before+" -> "+after))
		}
		return eff
	}
}
