package sim

import (
	"context"
	"sync"

	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/sdk"
)

// Gate names of the simulated SDK.
const GateMakeSDK = "make_sdk"

// SDK is an in-process tracking SDK.
//
// The device id is generated on the first MakeSDK and kept for the life of
// the value. Every status change is published to all subscribers.
type SDK struct {
	recorder
	gates gates

	mu        sync.Mutex
	ids       IDGenerator
	validKeys map[model.PublishableKey]bool
	device    model.DeviceID
	tracking  bool
	outage    *model.OutageReason
	push      bool
	status    *hub[model.SDKStatusUpdate]
}

// SDKOption configures the simulated SDK.
type SDKOption func(*SDK)

// WithDeviceIDs sets the generator of the device id.
func WithDeviceIDs(g IDGenerator) SDKOption {
	return func(s *SDK) { s.ids = g }
}

// WithValidKeys restricts the accepted publishable keys. Making the SDK
// with any other key reports an invalid-key outage. By default every
// non-empty key is valid.
func WithValidKeys(keys ...model.PublishableKey) SDKOption {
	return func(s *SDK) {
		s.validKeys = map[model.PublishableKey]bool{}
		for _, k := range keys {
			s.validKeys[k] = true
		}
	}
}

// WithOutage starts the SDK with an outage, e.g. permissions that were
// never requested.
func WithOutage(r model.OutageReason) SDKOption {
	return func(s *SDK) { s.outage = &r }
}

// WithPushDenied makes push authorization requests fail.
func WithPushDenied() SDKOption {
	return func(s *SDK) { s.push = false }
}

// NewSDK creates a locked SDK.
func NewSDK(opts ...SDKOption) *SDK {
	s := &SDK{ids: UUIDv7Generator{}, push: true, status: newHub[model.SDKStatusUpdate]()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Environment binds the SDK into an sdk.Environment.
func (s *SDK) Environment() sdk.Environment {
	return sdk.Environment{
		MakeSDK:                  s.MakeSDK,
		SubscribeToStatusUpdates: s.SubscribeToStatusUpdates,
		SetDriverIdentity:        s.SetDriverIdentity,
		StartTracking:            s.StartTracking,
		StopTracking:             s.StopTracking,
		RequestPermissions:       s.RequestPermissions,
		OpenSettings:             s.OpenSettings,
		RequestAlwaysLocation:    s.RequestAlwaysLocation,
		RequestPushAuthorization: s.RequestPushAuthorization,
	}
}

// MakeSDK unlocks the device for key. A cancelled call reports the
// current status without unlocking.
func (s *SDK) MakeSDK(ctx context.Context, key model.PublishableKey) model.SDKStatusUpdate {
	s.record("make_sdk", string(key))
	if err := s.gates.wait(ctx, GateMakeSDK); err != nil {
		return s.Status()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		return s.statusLocked()
	}
	if s.device == "" {
		s.device = model.DeviceID(s.ids.Generate())
	}
	if s.validKeys != nil && !s.validKeys[key] {
		r := model.InvalidPublishableKey
		s.outage = &r
	} else if s.outage != nil && *s.outage == model.InvalidPublishableKey {
		s.outage = nil
	}
	return s.publishLocked()
}

// SubscribeToStatusUpdates delivers the current status and every change
// until ctx is done.
func (s *SDK) SubscribeToStatusUpdates(ctx context.Context, yield func(model.SDKStatusUpdate)) {
	s.mu.Lock()
	mb, release := s.status.subscribe(s.statusLocked())
	s.mu.Unlock()
	defer release()

	mb.serve(ctx, yield)
}

// SetDriverIdentity records the driver identity.
func (s *SDK) SetDriverIdentity(_ context.Context, driver model.DriverID) {
	s.record("set_driver_identity", string(driver))
}

// StartTracking starts tracking. The status becomes running unless an
// outage is active.
func (s *SDK) StartTracking(context.Context) {
	s.record("start_tracking")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = true
	s.publishLocked()
}

// StopTracking stops tracking.
func (s *SDK) StopTracking(context.Context) {
	s.record("stop_tracking")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracking = false
	s.publishLocked()
}

// RequestPermissions grants permissions that were not determined yet.
func (s *SDK) RequestPermissions(context.Context) {
	s.record("request_permissions")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outage == nil {
		return
	}
	switch *s.outage {
	case model.LocationNotDetermined, model.MotionNotDetermined:
		s.outage = nil
		s.publishLocked()
	}
}

// OpenSettings models the user fixing every permission in the system
// settings. Account outages are left alone.
func (s *SDK) OpenSettings(context.Context) {
	s.record("open_settings")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outage == nil {
		return
	}
	switch *s.outage {
	case model.InvalidPublishableKey, model.Blocked, model.TrialEnded:
		return
	}
	s.outage = nil
	s.publishLocked()
}

// RequestAlwaysLocation records the prompt.
func (s *SDK) RequestAlwaysLocation(context.Context) {
	s.record("request_always_location")
}

// RequestPushAuthorization reports whether push notifications were
// authorized.
func (s *SDK) RequestPushAuthorization(context.Context) bool {
	s.record("request_push_authorization")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.push
}

// SetOutage reports an outage to subscribers.
func (s *SDK) SetOutage(r model.OutageReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = &r
	s.publishLocked()
}

// ClearOutage resolves the current outage.
func (s *SDK) ClearOutage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outage = nil
	s.publishLocked()
}

// HoldMakeSDK keeps MakeSDK calls pending until release is called.
func (s *SDK) HoldMakeSDK() (release func()) {
	return s.gates.hold(GateMakeSDK)
}

// ReleaseAll opens every gate.
func (s *SDK) ReleaseAll() {
	s.gates.releaseAll()
}

// Status returns the current status.
func (s *SDK) Status() model.SDKStatusUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

// DeviceID returns the device id, empty while locked.
func (s *SDK) DeviceID() model.DeviceID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Subscribers returns the number of active status subscriptions.
func (s *SDK) Subscribers() int {
	return s.status.len()
}

func (s *SDK) statusLocked() model.SDKStatusUpdate {
	if s.device == "" {
		return model.Locked{}
	}
	var st model.UnlockedStatus = model.Stopped{}
	switch {
	case s.outage != nil:
		st = model.Outage{Reason: *s.outage}
	case s.tracking:
		st = model.Running{}
	}
	return model.Unlocked{DeviceID: s.device, Status: st}
}

func (s *SDK) publishLocked() model.SDKStatusUpdate {
	u := s.statusLocked()
	s.status.publish(u)
	return u
}
