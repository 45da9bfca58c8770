// Package sdk describes the tracking SDK as a bundle of functions injected
// into reducers. The SDK owns its device handle; callers only see status
// updates.
package sdk

import (
	"context"

	"github.com/roach88/fieldflow/internal/model"
)

// Environment is the tracking SDK.
//
// MakeSDK unlocks the device identity for a publishable key and returns the
// resulting status. SubscribeToStatusUpdates delivers every status change
// through yield until ctx is done; the first delivery is the current status.
type Environment struct {
	MakeSDK                  func(ctx context.Context, key model.PublishableKey) model.SDKStatusUpdate
	SubscribeToStatusUpdates func(ctx context.Context, yield func(model.SDKStatusUpdate))
	SetDriverIdentity        func(ctx context.Context, driver model.DriverID)
	StartTracking            func(ctx context.Context)
	StopTracking             func(ctx context.Context)
	RequestPermissions       func(ctx context.Context)
	OpenSettings             func(ctx context.Context)
	RequestAlwaysLocation    func(ctx context.Context)
	RequestPushAuthorization func(ctx context.Context) bool
}
