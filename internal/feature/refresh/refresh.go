// Package refresh keeps orders, places and history up to date. At most one
// fetch per resource kind is in flight; leaving the foreground cancels
// every fetch and drops their late results.
package refresh

import (
	"context"
	"time"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/model"
)

// Cancellation ids, one per kind.
const (
	OrdersID  effect.ID = "refresh.orders"
	PlacesID  effect.ID = "refresh.places"
	HistoryID effect.ID = "refresh.history"
	TokenID   effect.ID = "refresh.token"
)

// Status is the refresh flag of one kind.
type Status int

const (
	NotRefreshing Status = iota
	Refreshing
)

func (s Status) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "not_refreshing"
}

// Flags holds one flag per kind, plus one for the token request.
type Flags struct {
	Orders  Status
	Places  Status
	History Status
	Token   Status
}

// Idle reports whether nothing is being fetched.
func (f Flags) Idle() bool {
	return f == Flags{}
}

// State is the slice of the main screen the refresh reducer owns.
type State struct {
	Flags    Flags
	Key      model.PublishableKey
	DeviceID model.DeviceID
	Token    model.Token
	Orders   map[model.OrderID]model.Order
	Places   map[model.PlaceID]model.Place
	History  *model.History
}

// Action is a refresh action.
type Action interface{ isAction() }

type (
	UpdateOrders  struct{}
	UpdatePlaces  struct{}
	UpdateHistory struct{}
	UpdateAll     struct{}
	CancelAll     struct{}

	// Fetch results. Err is nil on success.
	OrdersUpdated struct {
		Orders []model.Order
		Err    *api.Error[api.Expired]
	}
	PlacesUpdated struct {
		Places []model.Place
		Err    *api.Error[api.Expired]
	}
	HistoryUpdated struct {
		History model.History
		Err     *api.Error[api.Expired]
	}
	TokenUpdated struct {
		Token model.Token
		Err   *api.Error[api.Expired]
	}
)

func (UpdateOrders) isAction()   {}
func (UpdatePlaces) isAction()   {}
func (UpdateHistory) isAction()  {}
func (UpdateAll) isAction()      {}
func (CancelAll) isAction()      {}
func (OrdersUpdated) isAction()  {}
func (PlacesUpdated) isAction()  {}
func (HistoryUpdated) isAction() {}
func (TokenUpdated) isAction()   {}

// Environment is what the refresh reducer needs.
type Environment struct {
	API                api.Environment
	GeocodeConcurrency int
	Now                func() time.Time
}

// Reduce is the refresh reducer.
func Reduce(state *State, action Action, env Environment) effect.Effect[Action] {
	switch a := action.(type) {
	case UpdateOrders:
		return updateOrders(state, env)
	case UpdatePlaces:
		return updatePlaces(state, env)
	case UpdateHistory:
		return updateHistory(state, env)
	case UpdateAll:
		return updateAll(state, env)

	case CancelAll:
		state.Flags = Flags{}
		return effect.Cancel[Action](OrdersID, PlacesID, HistoryID, TokenID)

	case OrdersUpdated:
		state.Flags.Orders = NotRefreshing
		if a.Err != nil {
			return expired(state, a.Err, env)
		}
		state.Orders = model.OrderSet(a.Orders)

	case PlacesUpdated:
		state.Flags.Places = NotRefreshing
		if a.Err != nil {
			return expired(state, a.Err, env)
		}
		state.Places = model.PlaceSet(a.Places)

	case HistoryUpdated:
		state.Flags.History = NotRefreshing
		if a.Err != nil {
			return expired(state, a.Err, env)
		}
		h := a.History
		state.History = &h

	case TokenUpdated:
		// Fetches waiting for the token restart with it, or give up with it.
		state.Flags = Flags{}
		if a.Err != nil {
			return effect.None[Action]()
		}
		state.Token = a.Token
		return updateAll(state, env)
	}
	return effect.None[Action]()
}

func updateAll(state *State, env Environment) effect.Effect[Action] {
	if state.Token == "" {
		state.Flags.Orders, state.Flags.Places, state.Flags.History = Refreshing, Refreshing, Refreshing
		return refreshToken(state, env)
	}
	return effect.Merge(
		updateOrders(state, env),
		updatePlaces(state, env),
		updateHistory(state, env),
	)
}

func updateOrders(state *State, env Environment) effect.Effect[Action] {
	if state.Flags.Orders == Refreshing {
		return effect.None[Action]()
	}
	state.Flags.Orders = Refreshing
	if state.Token == "" {
		return refreshToken(state, env)
	}

	token, device := state.Token, state.DeviceID
	return effect.Task(func(ctx context.Context) Action {
		orders, err := env.API.GetOrders(ctx, token, device)
		return OrdersUpdated{Orders: orders, Err: api.Classify[api.Expired](err)}
	}).Cancellable(OrdersID, true)
}

func updatePlaces(state *State, env Environment) effect.Effect[Action] {
	if state.Flags.Places == Refreshing {
		return effect.None[Action]()
	}
	state.Flags.Places = Refreshing
	if state.Token == "" {
		return refreshToken(state, env)
	}

	token, device := state.Token, state.DeviceID
	return effect.Task(func(ctx context.Context) Action {
		places, err := env.API.GetPlaces(ctx, token, device)
		if err != nil {
			return PlacesUpdated{Err: api.Classify[api.Expired](err)}
		}
		return PlacesUpdated{Places: Geocode(ctx, places, env.API.ReverseGeocode, env.GeocodeConcurrency)}
	}).Cancellable(PlacesID, true)
}

func updateHistory(state *State, env Environment) effect.Effect[Action] {
	if state.Flags.History == Refreshing {
		return effect.None[Action]()
	}
	state.Flags.History = Refreshing
	if state.Token == "" {
		return refreshToken(state, env)
	}

	now := time.Now
	if env.Now != nil {
		now = env.Now
	}
	t := now()
	since := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	token, device := state.Token, state.DeviceID
	return effect.Task(func(ctx context.Context) Action {
		history, err := env.API.GetHistory(ctx, token, device, since)
		return HistoryUpdated{History: history, Err: api.Classify[api.Expired](err)}
	}).Cancellable(HistoryID, true)
}

func refreshToken(state *State, env Environment) effect.Effect[Action] {
	if state.Flags.Token == Refreshing {
		return effect.None[Action]()
	}
	state.Flags.Token = Refreshing

	key, device := state.Key, state.DeviceID
	return effect.Task(func(ctx context.Context) Action {
		token, err := env.API.RefreshToken(ctx, key, device)
		return TokenUpdated{Token: token, Err: api.Classify[api.Expired](err)}
	}).Cancellable(TokenID, true)
}

// expired clears a stale token and requests a new one; the new token
// triggers a full refresh. Other errors only reset the flag.
func expired(state *State, err *api.Error[api.Expired], env Environment) effect.Effect[Action] {
	if !err.IsSpecific() {
		return effect.None[Action]()
	}
	state.Token = ""
	return refreshToken(state, env)
}
