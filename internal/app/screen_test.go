package app_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
)

func TestScreenFor(t *testing.T) {
	unlocked := func(status model.UnlockedStatus) sdklaunch.State {
		return sdklaunch.Launched{Status: model.Unlocked{DeviceID: "dev", Status: status}}
	}
	main := app.Main{DeviceID: "dev", Tab: model.TabPlaces}

	tests := []struct {
		name  string
		state app.State
		want  string
	}{
		{"created", app.State{Flow: app.Created{}}, "loading"},
		{"first run", app.State{Flow: app.FirstRun{}}, "first_run"},
		{"sign in form", app.State{Flow: app.SignIn{State: signin.Entering{}}}, "sign_in_form"},
		{"signing in", app.State{Flow: app.SignIn{State: signin.Entered{Request: signin.InFlight{}}}}, "signing_in"},
		{"driver id", app.State{Flow: app.DriverID{State: deeplink.State{Key: "pk"}}}, "driver_id_entry"},
		{"making sdk", app.State{Flow: app.DriverID{State: deeplink.State{Key: "pk", Status: deeplink.MakingSDK}}}, "making_sdk"},
		{"main before launch", app.State{Flow: main, Launch: sdklaunch.Launching{Key: "pk"}}, "loading"},
		{"main locked", app.State{Flow: app.Main{}, Launch: sdklaunch.Launched{Status: model.Locked{}}}, "loading"},
		{
			"main",
			app.State{Flow: main, Launch: unlocked(model.Running{}), PushStatus: model.PushShown, LocationAlways: model.LocationAlwaysRequested},
			"main(places)",
		},
		{
			"outage beats push prompt",
			app.State{Flow: main, Launch: unlocked(model.Outage{Reason: model.MotionDenied})},
			"motion_denied",
		},
		{
			"invalid key",
			app.State{Flow: main, Launch: unlocked(model.Outage{Reason: model.InvalidPublishableKey}), PushStatus: model.PushShown},
			"invalid_publishable_key",
		},
		{
			"push prompt beats location always",
			app.State{Flow: main, Launch: unlocked(model.Stopped{}), PushStatus: model.PushWaitingForUser},
			"push_permission",
		},
		{
			"location always",
			app.State{Flow: main, Launch: unlocked(model.Stopped{}), PushStatus: model.PushShown},
			"location_always",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, app.ScreenFor(tt.state).String())
		})
	}
}

func TestScreen_Blocker(t *testing.T) {
	assert.False(t, app.Screen{Kind: app.ScreenMain}.Blocker())
	assert.False(t, app.Screen{Kind: app.ScreenMakingSDK}.Blocker())
	assert.True(t, app.Screen{Kind: app.ScreenTrialEnded}.Blocker())
	assert.True(t, app.Screen{Kind: app.ScreenLocationAlways}.Blocker())
}
