package sim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/model"
)

// Gate names of the simulated API, one per endpoint.
const (
	GateSignIn         = "sign_in"
	GateRefreshToken   = "refresh_token"
	GateGetOrders      = "get_orders"
	GateGetPlaces      = "get_places"
	GateGetHistory     = "get_history"
	GateCancelOrder    = "cancel_order"
	GateCompleteOrder  = "complete_order"
	GateReverseGeocode = "reverse_geocode"
)

// ErrNoAddress is returned by ReverseGeocode for unknown coordinates.
var ErrNoAddress = errors.New("no address for coordinate")

// Account is a sign-in account of the simulated backend.
type Account struct {
	Email          model.Email
	Password       string
	PublishableKey model.PublishableKey
}

// API is an in-memory backend. Tokens are issued by SignIn and
// RefreshToken; Expire invalidates all of them.
type API struct {
	recorder
	gates gates

	mu        sync.Mutex
	ids       IDGenerator
	accounts  map[model.Email]Account
	tokens    map[model.Token]bool
	orders    map[model.OrderID]model.Order
	places    []model.Place
	history   model.History
	addresses map[model.Coordinate]string
	failures  map[string]error
}

// APIOption configures the simulated API.
type APIOption func(*API)

// WithTokens sets the generator of tokens.
func WithTokens(g IDGenerator) APIOption {
	return func(a *API) { a.ids = g }
}

// WithAccounts registers sign-in accounts.
func WithAccounts(accounts ...Account) APIOption {
	return func(a *API) {
		for _, acc := range accounts {
			a.accounts[acc.Email] = acc
		}
	}
}

// WithOrders seeds the order list.
func WithOrders(orders ...model.Order) APIOption {
	return func(a *API) {
		for _, o := range orders {
			a.orders[o.ID] = o
		}
	}
}

// WithPlaces seeds the place list.
func WithPlaces(places ...model.Place) APIOption {
	return func(a *API) { a.places = append(a.places, places...) }
}

// WithHistory sets the history returned for any day.
func WithHistory(h model.History) APIOption {
	return func(a *API) { a.history = h }
}

// WithAddress registers a reverse-geocoding result.
func WithAddress(at model.Coordinate, address string) APIOption {
	return func(a *API) { a.addresses[at] = address }
}

// NewAPI creates a backend.
func NewAPI(opts ...APIOption) *API {
	a := &API{
		ids:       UUIDv7Generator{},
		accounts:  map[model.Email]Account{},
		tokens:    map[model.Token]bool{},
		orders:    map[model.OrderID]model.Order{},
		addresses: map[model.Coordinate]string{},
		failures:  map[string]error{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Environment binds the API into an api.Environment.
func (a *API) Environment() api.Environment {
	return api.Environment{
		SignIn:         a.SignIn,
		RefreshToken:   a.RefreshToken,
		GetOrders:      a.GetOrders,
		GetPlaces:      a.GetPlaces,
		GetHistory:     a.GetHistory,
		CancelOrder:    a.CancelOrder,
		CompleteOrder:  a.CompleteOrder,
		ReverseGeocode: a.ReverseGeocode,
	}
}

// SignIn exchanges an email and password for a credential.
func (a *API) SignIn(ctx context.Context, email model.Email, password string) (model.Credential, error) {
	if err := a.enter(ctx, GateSignIn, string(email)); err != nil {
		return model.Credential{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	acc, ok := a.accounts[email]
	if !ok || acc.Password != password {
		return model.Credential{}, api.CognitoError{Code: "NotAuthorizedException", Message: "Incorrect username or password."}
	}
	return model.Credential{PublishableKey: acc.PublishableKey, Token: a.issueLocked()}, nil
}

// RefreshToken issues a token for a device.
func (a *API) RefreshToken(ctx context.Context, key model.PublishableKey, device model.DeviceID) (model.Token, error) {
	if err := a.enter(ctx, GateRefreshToken, string(device)); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if key == "" || device == "" {
		return "", &api.StatusError{Status: http.StatusBadRequest, Code: "invalid_request", Title: "Invalid request", Detail: "missing publishable key or device id"}
	}
	return a.issueLocked(), nil
}

// GetOrders lists the orders.
func (a *API) GetOrders(ctx context.Context, token model.Token, _ model.DeviceID) ([]model.Order, error) {
	if err := a.authorize(ctx, GateGetOrders, token); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.SortedOrders(a.orders), nil
}

// GetPlaces lists the places. Addresses are left to reverse geocoding.
func (a *API) GetPlaces(ctx context.Context, token model.Token, _ model.DeviceID) ([]model.Place, error) {
	if err := a.authorize(ctx, GateGetPlaces, token); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.places), nil
}

// GetHistory returns the history.
func (a *API) GetHistory(ctx context.Context, token model.Token, _ model.DeviceID, _ time.Time) (model.History, error) {
	if err := a.authorize(ctx, GateGetHistory, token); err != nil {
		return model.History{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.history
	h.Coordinates = slices.Clone(h.Coordinates)
	return h, nil
}

// CancelOrder marks an ongoing order cancelled.
func (a *API) CancelOrder(ctx context.Context, token model.Token, _ model.DeviceID, id model.OrderID) error {
	if err := a.authorize(ctx, GateCancelOrder, token); err != nil {
		return err
	}
	return a.finish(id, model.OrderCancelled)
}

// CompleteOrder marks an ongoing order completed.
func (a *API) CompleteOrder(ctx context.Context, token model.Token, _ model.DeviceID, id model.OrderID) error {
	if err := a.authorize(ctx, GateCompleteOrder, token); err != nil {
		return err
	}
	return a.finish(id, model.OrderCompleted)
}

// ReverseGeocode looks up a registered address.
func (a *API) ReverseGeocode(ctx context.Context, at model.Coordinate) (string, error) {
	if err := a.enter(ctx, GateReverseGeocode, fmt.Sprintf("%g,%g", at.Latitude, at.Longitude)); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if addr, ok := a.addresses[at]; ok {
		return addr, nil
	}
	return "", ErrNoAddress
}

// Expire invalidates every issued token.
func (a *API) Expire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.tokens)
}

// Fail makes the next call to endpoint (a Gate name) return err.
func (a *API) Fail(endpoint string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[endpoint] = err
}

// SetOrders replaces the order list.
func (a *API) SetOrders(orders ...model.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = model.OrderSet(orders)
}

// Order returns the backend copy of an order.
func (a *API) Order(id model.OrderID) (model.Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[id]
	return o, ok
}

// Hold keeps calls to endpoint pending until release is called.
func (a *API) Hold(endpoint string) (release func()) {
	return a.gates.hold(endpoint)
}

// ReleaseAll opens every gate.
func (a *API) ReleaseAll() {
	a.gates.releaseAll()
}

func (a *API) enter(ctx context.Context, endpoint string, args ...string) error {
	a.record(append([]string{endpoint}, args...)...)
	if err := a.gates.wait(ctx, endpoint); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.failures[endpoint]; ok {
		delete(a.failures, endpoint)
		return err
	}
	return nil
}

func (a *API) authorize(ctx context.Context, endpoint string, token model.Token) error {
	if err := a.enter(ctx, endpoint); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.tokens[token] {
		return api.Expired{}
	}
	return nil
}

func (a *API) finish(id model.OrderID, status model.OrderStatus) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	o, ok := a.orders[id]
	if !ok {
		return &api.StatusError{Status: http.StatusNotFound, Code: "order_not_found", Title: "Order not found", Detail: fmt.Sprintf("order %s does not exist", id)}
	}
	if o.Status != model.OrderOngoing {
		return &api.StatusError{Status: http.StatusConflict, Code: "order_closed", Title: "Order closed", Detail: fmt.Sprintf("order %s is %s", id, o.Status)}
	}
	o.Status = status
	a.orders[id] = o
	return nil
}

func (a *API) issueLocked() model.Token {
	t := model.Token(a.ids.Generate())
	a.tokens[t] = true
	return t
}
