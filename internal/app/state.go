// Package app is the top-level flow state machine. It composes the feature
// reducers into one reducer over State, Action and Environment, owns the
// transitions between flows, and derives the visible screen.
package app

import (
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
)

// State is the whole application state.
type State struct {
	Flow           Flow
	Launch         sdklaunch.State
	LocationAlways model.LocationAlways
	PushStatus     model.PushStatus
	Experience     model.Experience
	Visible        bool
	Alert          *Alert

	// PendingDeepLink is a link opened before restoration finished.
	PendingDeepLink *model.DeepLink
	// Saved is the last snapshot handed to the persistence layer and not
	// reported as failed.
	Saved *restoration.StorageState
}

// NewState returns the state at process start.
func NewState() State {
	return State{Flow: Created{}, Launch: sdklaunch.AwaitingRestore{}}
}

// Alert is a dismissable error dialog.
type Alert struct {
	Title   string
	Message string
}

// Flow is the mutually exclusive top-level mode of the app.
type Flow interface{ isFlow() }

// Created precedes restoration.
type Created struct{}

// FirstRun shows the splash of a fresh install.
type FirstRun struct{}

// SignIn is the email/password form.
type SignIn struct{ State signin.State }

// DriverID is the driver-ID entry screen reached from a partial deep link.
type DriverID struct{ State deeplink.State }

// Main is the signed-in app. DeviceID is empty until the SDK reports the
// device unlocked.
type Main struct {
	Orders         map[model.OrderID]model.Order
	Places         map[model.PlaceID]model.Place
	History        *model.History
	SelectedOrder  *model.OrderID
	Tab            model.Tab
	PublishableKey model.PublishableKey
	DriverID       model.DriverID
	DeviceID       model.DeviceID
	Token          model.Token
	Refreshing     refresh.Flags
	OrderRequests  map[model.OrderID]OrderRequest
}

func (Created) isFlow()  {}
func (FirstRun) isFlow() {}
func (SignIn) isFlow()   {}
func (DriverID) isFlow() {}
func (Main) isFlow()     {}

// OrderRequest is a pending change to an order.
type OrderRequest int

const (
	Cancelling OrderRequest = iota + 1
	Completing
)

func (r OrderRequest) String() string {
	switch r {
	case Cancelling:
		return "cancelling"
	case Completing:
		return "completing"
	default:
		return "none"
	}
}

// FlowName is a short label for a flow, used in logs and traces.
func FlowName(f Flow) string {
	switch f := f.(type) {
	case Created:
		return "created"
	case FirstRun:
		return "first_run"
	case SignIn:
		return "sign_in"
	case DriverID:
		return "driver_id"
	case Main:
		if f.DeviceID == "" {
			return "main(locked)"
		}
		return "main"
	default:
		return "unknown"
	}
}
