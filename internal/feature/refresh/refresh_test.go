package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/testutil"
)

// fakeAPI serves fetches that block until the test releases them.
type fakeAPI struct {
	orderCalls  atomic.Int32
	tokenCalls  atomic.Int32
	ordersGate  chan struct{}
	orders      []model.Order
	ordersErr   error
	tokenResult model.Token
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{ordersGate: make(chan struct{}), tokenResult: "fresh"}
}

func (f *fakeAPI) env() Environment {
	return Environment{
		API: api.Environment{
			GetOrders: func(ctx context.Context, _ model.Token, _ model.DeviceID) ([]model.Order, error) {
				f.orderCalls.Add(1)
				select {
				case <-f.ordersGate:
					return f.orders, f.ordersErr
				case <-ctx.Done():
					// A late result still arrives; the runtime must drop it.
					return f.orders, nil
				}
			},
			GetPlaces: func(context.Context, model.Token, model.DeviceID) ([]model.Place, error) {
				return nil, nil
			},
			GetHistory: func(context.Context, model.Token, model.DeviceID, time.Time) (model.History, error) {
				return model.History{}, nil
			},
			RefreshToken: func(context.Context, model.PublishableKey, model.DeviceID) (model.Token, error) {
				f.tokenCalls.Add(1)
				return f.tokenResult, nil
			},
		},
	}
}

func mainState() State {
	return State{Key: "pk", DeviceID: "dev-1", Token: "tok"}
}

func TestUpdateOrders_Dedup(t *testing.T) {
	fake := newFakeAPI()
	fake.orders = []model.Order{{ID: "o1"}, {ID: "o2"}}
	ts := testutil.NewTestStore(t, mainState(), Reduce, fake.env())

	state := ts.Send(UpdateOrders{})
	assert.Equal(t, Refreshing, state.Flags.Orders)

	state = ts.Send(UpdateOrders{})
	assert.Equal(t, Refreshing, state.Flags.Orders)

	close(fake.ordersGate)
	got := testutil.ReceiveAs[OrdersUpdated](ts)
	assert.Nil(t, got.Err)

	assert.Equal(t, int32(1), fake.orderCalls.Load(), "second update while refreshing is a no-op")
	assert.Equal(t, NotRefreshing, ts.State().Flags.Orders)
	assert.Equal(t, model.OrderSet(fake.orders), ts.State().Orders)
}

func TestOrdersUpdated_FailureResetsFlag(t *testing.T) {
	state := mainState()
	state.Flags.Orders = Refreshing
	state.Orders = model.OrderSet([]model.Order{{ID: "kept"}})

	eff := Reduce(&state, OrdersUpdated{Err: &api.Error[api.Expired]{Kind: api.KindNetwork, Reason: "offline"}}, Environment{})

	assert.True(t, eff.IsNone())
	assert.Equal(t, NotRefreshing, state.Flags.Orders)
	assert.Contains(t, state.Orders, model.OrderID("kept"), "failure keeps the previous set")
}

func TestCancelAll_DropsLateResult(t *testing.T) {
	fake := newFakeAPI()
	fake.orders = []model.Order{{ID: "late"}}
	ts := testutil.NewTestStore(t, mainState(), Reduce, fake.env())

	ts.Send(UpdateOrders{})
	require.Eventually(t, func() bool { return fake.orderCalls.Load() == 1 }, time.Second, time.Millisecond)

	state := ts.Send(CancelAll{})
	assert.True(t, state.Flags.Idle())
	assert.False(t, ts.Store().InFlight(OrdersID))

	ts.ExpectNoAction(30 * time.Millisecond)
	assert.Empty(t, ts.State().Orders)
}

func TestExpired_RefreshesTokenThenEverything(t *testing.T) {
	fake := newFakeAPI()
	fake.ordersErr = api.Expired{}
	ts := testutil.NewTestStore(t, mainState(), Reduce, fake.env())

	ts.Send(UpdateOrders{})
	close(fake.ordersGate)

	got := testutil.ReceiveAs[OrdersUpdated](ts)
	require.NotNil(t, got.Err)
	assert.True(t, got.Err.IsSpecific())
	assert.Equal(t, model.Token(""), ts.State().Token)
	assert.Equal(t, Refreshing, ts.State().Flags.Token)

	assert.Equal(t, TokenUpdated{Token: "fresh"}, ts.Receive())
	state := ts.State()
	assert.Equal(t, model.Token("fresh"), state.Token)
	assert.Equal(t, Flags{Orders: Refreshing, Places: Refreshing, History: Refreshing}, state.Flags)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestUpdateAll_WithoutTokenFetchesTokenOnce(t *testing.T) {
	fake := newFakeAPI()
	state := mainState()
	state.Token = ""
	ts := testutil.NewTestStore(t, state, Reduce, fake.env())

	ts.Send(UpdateAll{})
	ts.Send(UpdateOrders{})
	assert.Equal(t, Flags{Orders: Refreshing, Places: Refreshing, History: Refreshing, Token: Refreshing}, ts.State().Flags)

	ts.Receive()
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
	assert.Equal(t, Flags{Orders: Refreshing, Places: Refreshing, History: Refreshing}, ts.State().Flags)
}

func TestUpdateOrders_WithoutTokenShowsRefreshing(t *testing.T) {
	fake := newFakeAPI()
	state := mainState()
	state.Token = ""
	ts := testutil.NewTestStore(t, state, Reduce, fake.env())

	got := ts.Send(UpdateOrders{})
	assert.Equal(t, Flags{Orders: Refreshing, Token: Refreshing}, got.Flags)

	assert.Equal(t, TokenUpdated{Token: "fresh"}, ts.Receive())
	assert.Equal(t, Refreshing, ts.State().Flags.Orders)
	require.Eventually(t, func() bool { return fake.orderCalls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestTokenUpdated_FailureClearsWaitingFlags(t *testing.T) {
	state := mainState()
	state.Token = ""
	state.Flags = Flags{Orders: Refreshing, Token: Refreshing}

	eff := Reduce(&state, TokenUpdated{Err: &api.Error[api.Expired]{Kind: api.KindNetwork, Reason: "offline"}}, Environment{})

	assert.True(t, eff.IsNone())
	assert.True(t, state.Flags.Idle())
}

func TestHistoryUpdated(t *testing.T) {
	state := mainState()
	state.Flags.History = Refreshing

	Reduce(&state, HistoryUpdated{History: model.History{Distance: 42}}, Environment{})
	require.NotNil(t, state.History)
	assert.Equal(t, 42, state.History.Distance)
	assert.Equal(t, NotRefreshing, state.Flags.History)
}

func TestGeocode(t *testing.T) {
	places := []model.Place{
		{ID: "a", Location: model.Coordinate{Latitude: 1}},
		{ID: "b", Location: model.Coordinate{Latitude: 2}},
		{ID: "c", Address: "kept", Location: model.Coordinate{Latitude: 3}},
	}

	var mu sync.Mutex
	var looked []float64
	reverse := func(_ context.Context, at model.Coordinate) (string, error) {
		mu.Lock()
		looked = append(looked, at.Latitude)
		mu.Unlock()
		if at.Latitude == 2 {
			return "", errors.New("no result")
		}
		return "1 Main St", nil
	}

	got := Geocode(context.Background(), places, reverse, 2)

	assert.Equal(t, "1 Main St", got[0].Address)
	assert.Empty(t, got[1].Address, "failed lookup leaves the address empty")
	assert.Equal(t, "kept", got[2].Address)
	assert.ElementsMatch(t, []float64{1, 2}, looked)
	assert.Empty(t, places[0].Address, "input is not modified")
}
