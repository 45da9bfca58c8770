package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/feature/deeplink"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/sdklaunch"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
)

func TestSignInState(t *testing.T) {
	s := State{Flow: SignIn{State: signin.Entering{Email: "a@b.co"}}}

	got, ok := signInState.Extract(s)
	require.True(t, ok)
	assert.Equal(t, signin.Entering{Email: "a@b.co"}, got)

	s, ok = signInState.Inject(s, signin.Entered{Email: "a@b.co", Request: signin.InFlight{}})
	require.True(t, ok)
	assert.Equal(t, SignIn{State: signin.Entered{Email: "a@b.co", Request: signin.InFlight{}}}, s.Flow)

	_, ok = signInState.Extract(State{Flow: FirstRun{}})
	assert.False(t, ok)
	_, ok = signInState.Inject(State{Flow: FirstRun{}}, signin.Entering{})
	assert.False(t, ok, "a different flow cannot hold sign-in state")
}

func TestDriverIDState(t *testing.T) {
	s := State{Flow: DriverID{State: deeplink.State{Key: "pk"}}}
	s, ok := driverIDState.Modify(s, func(d deeplink.State) deeplink.State {
		d.DriverID = "d1"
		return d
	})
	require.True(t, ok)
	assert.Equal(t, DriverID{State: deeplink.State{Key: "pk", DriverID: "d1"}}, s.Flow)
}

func TestRefreshState_RequiresDevice(t *testing.T) {
	locked := State{Flow: Main{PublishableKey: "pk"}}
	_, ok := refreshState.Extract(locked)
	assert.False(t, ok)

	unlocked := State{Flow: Main{PublishableKey: "pk", DeviceID: "dev", Token: "t", Tab: model.TabOrders}}
	r, ok := refreshState.Extract(unlocked)
	require.True(t, ok)
	assert.Equal(t, refresh.State{Key: "pk", DeviceID: "dev", Token: "t"}, r)

	r.Flags.Orders = refresh.Refreshing
	r.Token = ""
	out, ok := refreshState.Inject(unlocked, r)
	require.True(t, ok)
	m := out.Flow.(Main)
	assert.Equal(t, refresh.Refreshing, m.Refreshing.Orders)
	assert.Empty(t, m.Token)
	assert.Equal(t, model.TabOrders, m.Tab, "fields outside the refresh slice are kept")
}

func TestActionPrisms(t *testing.T) {
	// App-level actions map onto the features that react to them.
	restored := &restoration.StorageState{Flow: restoration.MainFlow{PublishableKey: "pk", DriverID: "d"}}
	a, ok := launchAction.Extract(RestoredState{State: restored})
	require.True(t, ok)
	assert.Equal(t, sdklaunch.Restore{Key: "pk"}, a)

	a, ok = launchAction.Extract(RestoredState{})
	require.True(t, ok)
	assert.Equal(t, sdklaunch.Restore{}, a)

	update := model.Unlocked{DeviceID: "dev", Status: model.Stopped{}}
	a, ok = launchAction.Extract(MadeSDK{Update: update})
	require.True(t, ok)
	assert.Equal(t, sdklaunch.Made{Update: update}, a)

	d, ok := driverIDAction.Extract(MadeSDK{Update: update})
	require.True(t, ok)
	assert.Equal(t, deeplink.SDKMade{Update: update}, d)
	assert.Equal(t, MadeSDK{Update: update}, driverIDAction.Embed(deeplink.SDKMade{Update: update}))
	assert.Equal(t, DriverIDAction{Action: deeplink.SetDriverID{}}, driverIDAction.Embed(deeplink.SetDriverID{}))

	for _, act := range []Action{AppBecameVisible{}, ReceivedPushNotification{}, MainUnlocked{}, StartTracking{}} {
		r, ok := refreshAction.Extract(act)
		require.True(t, ok)
		assert.Equal(t, refresh.UpdateAll{}, r)
	}
	for _, act := range []Action{AppBecameInvisible{}, StopTracking{}, SignOut{}} {
		r, ok := refreshAction.Extract(act)
		require.True(t, ok)
		assert.Equal(t, refresh.CancelAll{}, r)
	}

	_, ok = signInAction.Extract(SignOut{})
	assert.False(t, ok)
}
