package restoration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/model"
)

func str(s string) *string { return &s }

func TestDecode_Table(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		want    *StorageState
		wantErr string
	}{
		{
			name:   "fresh install",
			fields: Fields{},
			want:   nil,
		},
		{
			name:   "legacy main",
			fields: Fields{PublishableKey: str("pk"), Name: str("d1")},
			want:   &StorageState{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1"}},
		},
		{
			name:   "legacy sign in",
			fields: Fields{Email: str("a@b.co"), PushStatus: str("shown")},
			want:   &StorageState{Flow: SignInFlow{Email: "a@b.co"}, PushStatus: model.PushShown},
		},
		{
			name:   "legacy first run",
			fields: Fields{Experience: str("regular")},
			want:   &StorageState{Flow: FirstRunFlow{}, Experience: model.ExperienceRegular},
		},
		{
			name:   "first run",
			fields: Fields{Screen: str(ScreenFirstRun), LocationAlways: str("requested")},
			want:   &StorageState{Flow: FirstRunFlow{}, LocationAlways: model.LocationAlwaysRequested},
		},
		{
			name:   "sign in without email",
			fields: Fields{Screen: str(ScreenSignIn)},
			want:   &StorageState{Flow: SignInFlow{}},
		},
		{
			name:   "main with empty places normalizes to nil",
			fields: Fields{Screen: str(ScreenMain), PublishableKey: str("pk"), Name: str("d1"), Tab: str("orders"), Places: str("[]")},
			want:   &StorageState{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1", Tab: model.TabOrders}},
		},
		{
			name:    "main without name",
			fields:  Fields{Screen: str(ScreenMain), PublishableKey: str("pk")},
			wantErr: "main requires publishable key and name",
		},
		{
			name:    "key without name or screen",
			fields:  Fields{PublishableKey: str("pk")},
			wantErr: "partial main without screen",
		},
		{
			name:    "first run with key",
			fields:  Fields{Screen: str(ScreenFirstRun), PublishableKey: str("pk")},
			wantErr: "first run with flow fields",
		},
		{
			name:    "sign in with places",
			fields:  Fields{Screen: str(ScreenSignIn), Places: str("[]")},
			wantErr: "sign in with main fields",
		},
		{
			name:    "unknown screen",
			fields:  Fields{Screen: str("settings")},
			wantErr: `unknown screen "settings"`,
		},
		{
			name:    "bad tab",
			fields:  Fields{Screen: str(ScreenMain), PublishableKey: str("pk"), Name: str("d1"), Tab: str("nope")},
			wantErr: `unknown tab "nope"`,
		},
		{
			name:    "bad places blob",
			fields:  Fields{Screen: str(ScreenMain), PublishableKey: str("pk"), Name: str("d1"), Places: str("{")},
			wantErr: "places:",
		},
		{
			name:    "bad push status",
			fields:  Fields{Screen: str(ScreenSignIn), PushStatus: str("maybe")},
			wantErr: "unknown push status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.fields)
			if tt.wantErr != "" {
				var rerr *Error
				require.True(t, errors.As(err, &rerr), "want *Error, got %v", err)
				assert.Contains(t, rerr.Reason, tt.wantErr)
				assert.Equal(t, tt.fields, rerr.Fields, "error carries every raw field")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_ListsFields(t *testing.T) {
	err := &Error{Reason: "bad", Fields: Fields{Screen: str("x"), Name: str("d1")}}
	assert.Equal(t, `restoration: bad (ff.s="x" ff.n="d1")`, err.Error())
	assert.Equal(t, "empty", Fields{}.String())
}

func constructible() []StorageState {
	places := []model.Place{
		{ID: "p1", Name: "Depot", Address: "1 Main St", Location: model.Coordinate{Latitude: 37.1, Longitude: -122.2}},
		{ID: "p2", Location: model.Coordinate{Latitude: 1, Longitude: 2}},
	}
	return []StorageState{
		{},
		{Flow: FirstRunFlow{}},
		{Flow: FirstRunFlow{}, LocationAlways: model.LocationAlwaysRequested, PushStatus: model.PushShown, Experience: model.ExperienceRegular},
		{Flow: SignInFlow{}},
		{Flow: SignInFlow{Email: "driver@example.com"}, PushStatus: model.PushWaitingForUser},
		{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1"}},
		{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1", Tab: model.TabProfile, Places: places}, Experience: model.ExperienceRegular},
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := KVEnvironment(NewMemoryKV())

	for _, s := range constructible() {
		require.NoError(t, env.Save(ctx, s))

		got, err := env.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, s.Equal(*got), "round trip of %+v gave %+v", s, *got)
	}
}

func TestSave_LastWriteWinsAndClearsStaleKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	env := KVEnvironment(kv)

	require.NoError(t, env.Save(ctx, StorageState{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1"}}))
	require.NoError(t, env.Save(ctx, StorageState{Flow: SignInFlow{Email: "a@b.co"}}))

	raw, err := kv.Get(ctx, Keys)
	require.NoError(t, err)
	assert.NotContains(t, raw, KeyPublishableKey)
	assert.NotContains(t, raw, KeyName)
	assert.Equal(t, ScreenSignIn, raw[KeyScreen])

	got, err := env.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, SignInFlow{Email: "a@b.co"}, got.Flow)
}

func TestLoad_Legacy(t *testing.T) {
	kv := NewMemoryKV()
	kv.Set(KeyPublishableKey, "pk")
	kv.Set(KeyName, "d1")

	got, err := KVEnvironment(kv).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MainFlow{PublishableKey: "pk", DriverID: "d1"}, got.Flow)
}

func TestEncode_RejectsIncompleteMain(t *testing.T) {
	_, err := Encode(StorageState{Flow: MainFlow{PublishableKey: "pk"}})
	assert.Error(t, err)
}

func TestStorageState_Equal(t *testing.T) {
	a := StorageState{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1", Places: []model.Place{{ID: "p1"}}}}
	b := StorageState{Flow: MainFlow{PublishableKey: "pk", DriverID: "d1", Places: []model.Place{{ID: "p1"}}}}
	assert.True(t, a.Equal(b))

	b.PushStatus = model.PushShown
	assert.False(t, a.Equal(b))
	assert.False(t, StorageState{Flow: SignInFlow{}}.Equal(StorageState{Flow: FirstRunFlow{}}))

	// The zero snapshot is stored and loaded as the first run.
	assert.True(t, StorageState{}.Equal(StorageState{Flow: FirstRunFlow{}}))
	assert.True(t, StorageState{Flow: FirstRunFlow{}}.Equal(StorageState{}))
	assert.False(t, StorageState{}.Equal(StorageState{Flow: SignInFlow{}}))
}
