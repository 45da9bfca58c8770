package app

import (
	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/reducer"
)

// Action is an application action: a user intent, an OS event, an effect
// result, or a feature action wrapped in its feature case.
type Action interface{ isAction() }

// Lifecycle and restoration.
type (
	OSFinishedLaunching struct{}
	// RestoredState is the result of loading the snapshot. State is nil on
	// a fresh install; Err is set for an inconsistent snapshot.
	RestoredState struct {
		State *restoration.StorageState
		Err   error
	}
	// SaveFailed reports a snapshot that did not reach storage.
	SaveFailed struct {
		Snapshot restoration.StorageState
		Err      error
	}
	FirstRunWaitingComplete struct{}
	AppBecameVisible        struct{}
	AppBecameInvisible      struct{}
)

// Deep links and SDK creation.
type (
	// OpenURL is a URL handed to the app by the OS.
	OpenURL              struct{ URL string }
	DeepLinkOpened       struct{ Link model.DeepLink }
	ApplyPartialDeepLink struct{ Key model.PublishableKey }
	ApplyFullDeepLink    struct {
		Key      model.PublishableKey
		DriverID model.DriverID
	}
	// MadeSDK is the status returned by making the SDK.
	MadeSDK struct{ Update model.SDKStatusUpdate }
	// MainUnlocked is sent once the main flow knows its device.
	MainUnlocked struct{}
)

// Main flow.
type (
	ReceivedPushNotification struct{}
	StartTracking            struct{}
	StopTracking             struct{}
	SignOut                  struct{}
	RequestPermissions       struct{}
	OpenSettings             struct{}
	RequestAlwaysLocation    struct{}
	RequestPushAuthorization struct{}
	PushAuthorized           struct{ Granted bool }
	SelectTab                struct{ Tab model.Tab }
	// SelectOrder selects an order; a nil ID clears the selection.
	SelectOrder   struct{ ID *model.OrderID }
	CancelOrder   struct{ ID model.OrderID }
	CompleteOrder struct{ ID model.OrderID }
	OrderFinished struct {
		ID      model.OrderID
		Request OrderRequest
		Err     *api.Error[api.Expired]
	}
	DismissAlert struct{}
)

// Feature cases.
type (
	SignInAction   struct{ Action signin.Action }
	DriverIDAction struct{ Action deeplink.Action }
	RefreshAction  struct{ Action refresh.Action }
	LaunchAction   struct{ Action sdklaunch.Action }
)

func (OSFinishedLaunching) isAction()      {}
func (RestoredState) isAction()            {}
func (SaveFailed) isAction()               {}
func (FirstRunWaitingComplete) isAction()  {}
func (AppBecameVisible) isAction()         {}
func (AppBecameInvisible) isAction()       {}
func (OpenURL) isAction()                  {}
func (DeepLinkOpened) isAction()           {}
func (ApplyPartialDeepLink) isAction()     {}
func (ApplyFullDeepLink) isAction()        {}
func (MadeSDK) isAction()                  {}
func (MainUnlocked) isAction()             {}
func (ReceivedPushNotification) isAction() {}
func (StartTracking) isAction()            {}
func (StopTracking) isAction()             {}
func (SignOut) isAction()                  {}
func (RequestPermissions) isAction()       {}
func (OpenSettings) isAction()             {}
func (RequestAlwaysLocation) isAction()    {}
func (RequestPushAuthorization) isAction() {}
func (PushAuthorized) isAction()           {}
func (SelectTab) isAction()                {}
func (SelectOrder) isAction()              {}
func (CancelOrder) isAction()              {}
func (CompleteOrder) isAction()            {}
func (OrderFinished) isAction()            {}
func (DismissAlert) isAction()             {}
func (SignInAction) isAction()             {}
func (DriverIDAction) isAction()           {}
func (RefreshAction) isAction()            {}
func (LaunchAction) isAction()             {}

func (a SignInAction) ActionName() string   { return "signin." + reducer.ActionName(a.Action) }
func (a DriverIDAction) ActionName() string { return "deeplink." + reducer.ActionName(a.Action) }
func (a RefreshAction) ActionName() string  { return "refresh." + reducer.ActionName(a.Action) }
func (a LaunchAction) ActionName() string   { return "sdklaunch." + reducer.ActionName(a.Action) }
