package model

import "fmt"

// SDKStatusUpdate is the state reported by the tracking SDK.
type SDKStatusUpdate interface {
	isSDKStatusUpdate()
	String() string
}

// Locked means the SDK was not made yet: no publishable key is known.
type Locked struct{}

// Unlocked means the SDK was made and the device has an identity.
type Unlocked struct {
	DeviceID DeviceID
	Status   UnlockedStatus
}

func (Locked) isSDKStatusUpdate()   {}
func (Unlocked) isSDKStatusUpdate() {}

func (Locked) String() string { return "locked" }

func (u Unlocked) String() string {
	return fmt.Sprintf("unlocked(%s, %s)", u.DeviceID, u.Status)
}

// UnlockedStatus is the tracking state of an unlocked SDK.
type UnlockedStatus interface {
	isUnlockedStatus()
	String() string
}

// Running means the device is tracking.
type Running struct{}

// Stopped means tracking is off.
type Stopped struct{}

// Outage means tracking cannot run until Reason is resolved.
type Outage struct {
	Reason OutageReason
}

func (Running) isUnlockedStatus() {}
func (Stopped) isUnlockedStatus() {}
func (Outage) isUnlockedStatus()  {}

func (Running) String() string  { return "running" }
func (Stopped) String() string  { return "stopped" }
func (o Outage) String() string { return "outage(" + o.Reason.String() + ")" }

// OutageReason enumerates the permission and account problems that stop
// tracking.
type OutageReason int

const (
	LocationDenied OutageReason = iota + 1
	LocationRestricted
	LocationNotDetermined
	LocationReducedAccuracy
	LocationServicesDisabled
	MotionDenied
	MotionDisabled
	MotionNotDetermined
	InvalidPublishableKey
	Blocked
	TrialEnded
)

var outageNames = map[OutageReason]string{
	LocationDenied:           "location_denied",
	LocationRestricted:       "location_restricted",
	LocationNotDetermined:    "location_not_determined",
	LocationReducedAccuracy:  "location_reduced_accuracy",
	LocationServicesDisabled: "location_services_disabled",
	MotionDenied:             "motion_denied",
	MotionDisabled:           "motion_disabled",
	MotionNotDetermined:      "motion_not_determined",
	InvalidPublishableKey:    "invalid_publishable_key",
	Blocked:                  "blocked",
	TrialEnded:               "trial_ended",
}

func (r OutageReason) String() string {
	if s, ok := outageNames[r]; ok {
		return s
	}
	return fmt.Sprintf("outage_reason(%d)", int(r))
}

// ParseOutageReason is the inverse of OutageReason.String.
func ParseOutageReason(s string) (OutageReason, error) {
	for r, name := range outageNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown outage reason %q", s)
}

// DeviceIDOf returns the device id of an unlocked update.
func DeviceIDOf(u SDKStatusUpdate) (DeviceID, bool) {
	if un, ok := u.(Unlocked); ok {
		return un.DeviceID, true
	}
	return "", false
}
