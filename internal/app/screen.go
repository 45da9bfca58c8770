package app

import (
	"fmt"

	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
)

// ScreenKind enumerates the screens the UI can show.
type ScreenKind int

const (
	ScreenLoading ScreenKind = iota
	ScreenFirstRun
	ScreenSignInForm
	ScreenSigningIn
	ScreenDriverIDEntry
	ScreenMakingSDK
	ScreenMain

	// Blockers.
	ScreenLocationDenied
	ScreenLocationRestricted
	ScreenLocationNotDetermined
	ScreenLocationReducedAccuracy
	ScreenLocationServicesDisabled
	ScreenMotionDenied
	ScreenMotionDisabled
	ScreenMotionNotDetermined
	ScreenInvalidPublishableKey
	ScreenAccountBlocked
	ScreenTrialEnded
	ScreenPushPermission
	ScreenLocationAlways
)

var screenNames = map[ScreenKind]string{
	ScreenLoading:                  "loading",
	ScreenFirstRun:                 "first_run",
	ScreenSignInForm:               "sign_in_form",
	ScreenSigningIn:                "signing_in",
	ScreenDriverIDEntry:            "driver_id_entry",
	ScreenMakingSDK:                "making_sdk",
	ScreenMain:                     "main",
	ScreenLocationDenied:           "location_denied",
	ScreenLocationRestricted:       "location_restricted",
	ScreenLocationNotDetermined:    "location_not_determined",
	ScreenLocationReducedAccuracy:  "location_reduced_accuracy",
	ScreenLocationServicesDisabled: "location_services_disabled",
	ScreenMotionDenied:             "motion_denied",
	ScreenMotionDisabled:           "motion_disabled",
	ScreenMotionNotDetermined:      "motion_not_determined",
	ScreenInvalidPublishableKey:    "invalid_publishable_key",
	ScreenAccountBlocked:           "account_blocked",
	ScreenTrialEnded:               "trial_ended",
	ScreenPushPermission:           "push_permission",
	ScreenLocationAlways:           "location_always",
}

func (k ScreenKind) String() string {
	if s, ok := screenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("screen(%d)", int(k))
}

var blockers = map[model.OutageReason]ScreenKind{
	model.LocationDenied:           ScreenLocationDenied,
	model.LocationRestricted:       ScreenLocationRestricted,
	model.LocationNotDetermined:    ScreenLocationNotDetermined,
	model.LocationReducedAccuracy:  ScreenLocationReducedAccuracy,
	model.LocationServicesDisabled: ScreenLocationServicesDisabled,
	model.MotionDenied:             ScreenMotionDenied,
	model.MotionDisabled:           ScreenMotionDisabled,
	model.MotionNotDetermined:      ScreenMotionNotDetermined,
	model.InvalidPublishableKey:    ScreenInvalidPublishableKey,
	model.Blocked:                  ScreenAccountBlocked,
	model.TrialEnded:               ScreenTrialEnded,
}

// Screen is the visible screen. Tab is only meaningful for ScreenMain.
type Screen struct {
	Kind ScreenKind
	Tab  model.Tab
}

func (s Screen) String() string {
	if s.Kind == ScreenMain {
		return "main(" + s.Tab.String() + ")"
	}
	return s.Kind.String()
}

// Blocker reports whether the screen replaces the main screen until a
// permission or account precondition is met.
func (s Screen) Blocker() bool {
	return s.Kind >= ScreenLocationDenied
}

// ScreenFor derives the visible screen.
//
// In the main flow blockers take priority in this order: an SDK outage,
// the push-permission prompt, the always-location prompt. The main flow
// shows the loading screen until the device is unlocked.
func ScreenFor(s State) Screen {
	switch f := s.Flow.(type) {
	case FirstRun:
		return Screen{Kind: ScreenFirstRun}

	case SignIn:
		if _, ok := f.State.(signin.Entered); ok {
			return Screen{Kind: ScreenSigningIn}
		}
		return Screen{Kind: ScreenSignInForm}

	case DriverID:
		if f.State.Status == deeplink.MakingSDK {
			return Screen{Kind: ScreenMakingSDK}
		}
		return Screen{Kind: ScreenDriverIDEntry}

	case Main:
		status, ok := sdklaunch.Status(s.Launch)
		if !ok || f.DeviceID == "" {
			return Screen{Kind: ScreenLoading}
		}
		unlocked, ok := status.(model.Unlocked)
		if !ok {
			return Screen{Kind: ScreenLoading}
		}
		if outage, ok := unlocked.Status.(model.Outage); ok {
			if kind, known := blockers[outage.Reason]; known {
				return Screen{Kind: kind}
			}
		}
		if s.PushStatus != model.PushShown {
			return Screen{Kind: ScreenPushPermission}
		}
		if s.LocationAlways == model.LocationAlwaysNotRequested {
			return Screen{Kind: ScreenLocationAlways}
		}
		return Screen{Kind: ScreenMain, Tab: f.Tab}
	}
	return Screen{Kind: ScreenLoading}
}
