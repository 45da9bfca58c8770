package api

import (
	"context"
	"time"

	"github.com/roach88/fieldflow/internal/model"
)

// Environment is the set of backend requests available to reducers.
//
// Every function is called from an effect goroutine. Errors are classified
// with Classify: authenticated requests report token expiry as Expired,
// SignIn reports rejected credentials as CognitoError.
type Environment struct {
	SignIn         func(ctx context.Context, email model.Email, password string) (model.Credential, error)
	RefreshToken   func(ctx context.Context, key model.PublishableKey, device model.DeviceID) (model.Token, error)
	GetOrders      func(ctx context.Context, token model.Token, device model.DeviceID) ([]model.Order, error)
	GetPlaces      func(ctx context.Context, token model.Token, device model.DeviceID) ([]model.Place, error)
	GetHistory     func(ctx context.Context, token model.Token, device model.DeviceID, since time.Time) (model.History, error)
	CancelOrder    func(ctx context.Context, token model.Token, device model.DeviceID, order model.OrderID) error
	CompleteOrder  func(ctx context.Context, token model.Token, device model.DeviceID, order model.OrderID) error
	ReverseGeocode func(ctx context.Context, at model.Coordinate) (string, error)
}
