package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/effect"
	"github.com/roach88/fieldflow/internal/store"
	"github.com/roach88/fieldflow/internal/testutil"
)

type counterState struct {
	Count  int
	Loaded []string
}

type counterAction interface{ isCounterAction() }

type (
	increment struct{}
	load      struct{ Release <-chan struct{} }
	loaded    struct{ Value string }
	cancel    struct{}
)

func (increment) isCounterAction() {}
func (load) isCounterAction()      {}
func (loaded) isCounterAction()    {}
func (cancel) isCounterAction()    {}

const loadID effect.ID = "load"

func counterReducer(state *counterState, action counterAction, _ struct{}) effect.Effect[counterAction] {
	switch a := action.(type) {
	case increment:
		state.Count++
	case load:
		return effect.Run(func(ctx context.Context, send func(counterAction)) {
			select {
			case <-ctx.Done():
			case <-a.Release:
				send(loaded{Value: "first"})
				send(loaded{Value: "second"})
			}
		}).Cancellable(loadID, true)
	case loaded:
		state.Loaded = append(state.Loaded, a.Value)
	case cancel:
		return effect.Cancel[counterAction](loadID)
	}
	return effect.None[counterAction]()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_ProcessesSentActionsInOrder(t *testing.T) {
	s := store.New(counterState{}, counterReducer, struct{}{}, store.WithLogger(quietLogger()))
	defer s.Close()

	var seen []counterAction
	s.Subscribe(func(_ counterState, a counterAction) { seen = append(seen, a) })

	for range 3 {
		require.True(t, s.Send(increment{}))
	}
	assert.Equal(t, 3, s.Pending())

	ctx := context.Background()
	for range 3 {
		_, err := s.Next(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 3, s.State().Count)
	assert.Len(t, seen, 3)
}

func TestStore_EffectOutputsAreFedBack(t *testing.T) {
	ts := testutil.NewTestStore(t, counterState{}, counterReducer, struct{}{})

	release := make(chan struct{})
	close(release)
	ts.Send(load{Release: release})

	assert.Equal(t, loaded{Value: "first"}, ts.Receive())
	assert.Equal(t, loaded{Value: "second"}, ts.Receive())
	assert.Equal(t, []string{"first", "second"}, ts.State().Loaded)
}

func TestStore_CancelPurgesQueuedOutputs(t *testing.T) {
	ts := testutil.NewTestStore(t, counterState{}, counterReducer, struct{}{})

	release := make(chan struct{})
	close(release)
	ts.Send(load{Release: release})

	// Wait until both outputs are queued before cancelling.
	require.Eventually(t, func() bool { return ts.Store().Pending() == 2 }, time.Second, time.Millisecond)

	ts.Send(cancel{})
	assert.Equal(t, 0, ts.Store().Pending())

	ts.ExpectNoAction(20 * time.Millisecond)
	assert.Empty(t, ts.State().Loaded)
}

func TestStore_CancelStopsRunningEffect(t *testing.T) {
	ts := testutil.NewTestStore(t, counterState{}, counterReducer, struct{}{})

	release := make(chan struct{})
	ts.Send(load{Release: release})
	assert.True(t, ts.Store().InFlight(loadID))

	ts.Send(cancel{})
	assert.False(t, ts.Store().InFlight(loadID))

	close(release)
	ts.ExpectNoAction(20 * time.Millisecond)
	assert.Empty(t, ts.State().Loaded)
}

func TestStore_SettleWaitsForQueueAndNamedEffects(t *testing.T) {
	s := store.New(counterState{}, counterReducer, struct{}{}, store.WithLogger(quietLogger()))

	var mu sync.Mutex
	var loadedSeen []string
	s.Subscribe(func(st counterState, _ counterAction) {
		mu.Lock()
		defer mu.Unlock()
		loadedSeen = st.Loaded
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(ctx) }()

	release := make(chan struct{})
	require.True(t, s.Send(increment{}))
	require.True(t, s.Send(load{Release: release}))

	short, cancelShort := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, s.Settle(short, loadID), context.DeadlineExceeded, "load is still in flight")

	close(release)
	settle, cancelSettle := context.WithTimeout(ctx, 2*time.Second)
	defer cancelSettle()
	require.NoError(t, s.Settle(settle, loadID))

	mu.Lock()
	assert.Equal(t, []string{"first", "second"}, loadedSeen, "outputs are reduced before Settle returns")
	mu.Unlock()

	stop()
	<-runDone
	assert.ErrorIs(t, s.Settle(context.Background()), store.ErrClosed)
}

func TestStore_RunStopsOnContextCancel(t *testing.T) {
	s := store.New(counterState{}, counterReducer, struct{}{}, store.WithLogger(quietLogger()))

	var mu sync.Mutex
	count := 0
	s.Subscribe(func(st counterState, _ counterAction) {
		mu.Lock()
		count = st.Count
		mu.Unlock()
	})

	ctx, cancelRun := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	s.Send(increment{})
	s.Send(increment{})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	}, time.Second, time.Millisecond)

	cancelRun()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.False(t, s.Send(increment{}), "store is closed after Run returns")
}

func TestStore_NextAfterClose(t *testing.T) {
	s := store.New(counterState{}, counterReducer, struct{}{}, store.WithLogger(quietLogger()))
	s.Send(increment{})
	s.Close()

	_, err := s.Next(context.Background())
	require.NoError(t, err, "actions queued before close are still processed")

	_, err = s.Next(context.Background())
	assert.True(t, errors.Is(err, store.ErrClosed))
}

type recordingInstrumentation struct {
	mu        sync.Mutex
	processed []string
	dropped   map[string]int
	cancelled []effect.ID
}

func (r *recordingInstrumentation) ActionProcessed(action string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, action)
}

func (r *recordingInstrumentation) ActionDropped(reason string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped == nil {
		r.dropped = map[string]int{}
	}
	r.dropped[reason] += n
}

func (r *recordingInstrumentation) EffectCancelled(id effect.ID, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
}

func TestStore_Instrumentation(t *testing.T) {
	inst := &recordingInstrumentation{}
	ts := testutil.NewTestStore(t, counterState{}, counterReducer, struct{}{}, store.WithInstrumentation(inst))

	release := make(chan struct{})
	close(release)
	ts.Send(increment{})
	ts.Send(load{Release: release})
	require.Eventually(t, func() bool { return ts.Store().Pending() == 2 }, time.Second, time.Millisecond)
	ts.Send(cancel{})

	inst.mu.Lock()
	defer inst.mu.Unlock()
	assert.Equal(t, []string{"increment", "load", "cancel"}, inst.processed)
	assert.Equal(t, []effect.ID{loadID}, inst.cancelled)
	assert.Equal(t, 2, inst.dropped[store.DropCancelled])
}
