package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/feature/refresh"
	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/reducer"
	"github.com/roach88/fieldflow/internal/sim"
	"github.com/roach88/fieldflow/internal/store"
	"github.com/roach88/fieldflow/internal/testutil"
)

// Epoch is the wall clock seen by the app during a scenario.
var Epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// Defaults for Options.
const (
	DefaultQuiet   = 50 * time.Millisecond
	DefaultTimeout = 2 * time.Second

	// maxSettle bounds a settle step so a feedback loop fails the scenario
	// instead of hanging it.
	maxSettle = 1000
)

// holdable lists the calls a hold step accepts.
var holdable = map[string]bool{
	sim.GateMakeSDK:        true,
	sim.GateSignIn:         true,
	sim.GateRefreshToken:   true,
	sim.GateGetOrders:      true,
	sim.GateGetPlaces:      true,
	sim.GateGetHistory:     true,
	sim.GateCancelOrder:    true,
	sim.GateCompleteOrder:  true,
	sim.GateReverseGeocode: true,
}

// Options configures Run.
type Options struct {
	// Logger receives store and simulator logs. Default: discarded.
	Logger *slog.Logger
	// Quiet is how long settle waits for another action.
	Quiet time.Duration
	// Timeout bounds receive steps and stored assertions.
	Timeout time.Duration
	// Instrumentation, when set, observes the store.
	Instrumentation store.Instrumentation
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Quiet <= 0 {
		o.Quiet = DefaultQuiet
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Harness drives one scenario.
type Harness struct {
	opts     Options
	world    *sim.World
	store    *store.Store[app.State, app.Action, app.Environment]
	clock    *testutil.ManualClock
	releases map[string]func()
	result   *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh simulator and in-memory storage. The
// app starts in its initial state; scenarios usually begin by sending
// OSFinishedLaunching. A failing step stops the scenario; assertions are
// still evaluated. The returned error is reserved for scenarios that cannot
// be run at all.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	opts = opts.withDefaults()

	world := newWorld(scenario.World, opts.Logger)
	defer world.Release()

	clock := testutil.NewManualClock(time.Time{})
	env := world.Environment()
	env.SplashDelay = app.DefaultSplashDelay
	env.PasswordMinLength = signin.DefaultPasswordMinLength
	env.GeocodeConcurrency = refresh.DefaultGeocodeConcurrency
	env.Now = func() time.Time { return Epoch }

	storeOpts := []store.Option{store.WithClock(clock), store.WithLogger(opts.Logger)}
	if opts.Instrumentation != nil {
		storeOpts = append(storeOpts, store.WithInstrumentation(opts.Instrumentation))
	}
	st := store.New(app.NewState(), app.Reduce, env, storeOpts...)
	defer st.Close()

	h := &Harness{
		opts:     opts,
		world:    world,
		store:    st,
		clock:    clock,
		releases: map[string]func(){},
		result:   NewResult(),
	}
	h.result.Screens = []ScreenChange{{Screen: h.screen()}}

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			h.result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			break
		}
	}

	state := st.State()
	h.result.Screen = app.ScreenFor(state).String()
	h.result.Flow = app.FlowName(state.Flow)

	actx := &AssertionContext{Ctx: ctx, World: world, State: state, Timeout: opts.Timeout}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	opts.Logger.Info("scenario finished",
		"scenario", scenario.Name,
		"actions", len(h.result.Trace),
		"pass", h.result.Pass,
	)
	return h.result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch {
	case step.Send != "":
		a, err := ParseAction(step.Send, step.Args)
		if err != nil {
			return err
		}
		h.store.Dispatch(a)
		h.record(KindSend, a)

	case step.Receive != "":
		return h.receive(ctx, step.Receive)

	case step.Settle:
		return h.settle(ctx)

	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)

	case step.Hold != "":
		return h.hold(step.Hold)

	case step.Release != "":
		release, ok := h.releases[step.Release]
		if !ok {
			return fmt.Errorf("release %s: not held", step.Release)
		}
		delete(h.releases, step.Release)
		release()

	case step.OpenLink != "":
		// Invalid links are dropped by the OS source, as on a device.
		if err := h.world.Links.Open(step.OpenLink); err != nil {
			h.opts.Logger.Debug("link not delivered", "url", step.OpenLink, "error", err)
		}

	case step.Fail != nil:
		injected, ok := failure(step.Fail.Error)
		if !ok {
			return fmt.Errorf("fail: unknown failure %q", step.Fail.Error)
		}
		h.world.API.Fail(step.Fail.Endpoint, injected)

	case step.Outage != "":
		r, err := model.ParseOutageReason(step.Outage)
		if err != nil {
			return err
		}
		h.world.SDK.SetOutage(r)

	case step.ClearOutage:
		h.world.SDK.ClearOutage()

	case step.ExpireTokens:
		h.world.API.Expire()

	case step.Expect != nil:
		h.expect(*step.Expect)
	}
	return nil
}

// receive reduces effect outputs until name is reduced.
func (h *Harness) receive(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()
	for {
		a, err := h.store.Next(ctx)
		if err != nil {
			return fmt.Errorf("receive %s: %w", name, err)
		}
		h.record(KindReceive, a)
		if reducer.ActionName(a) == name {
			return nil
		}
	}
}

// settle reduces effect outputs until none arrives for the quiet period.
// Delayed effects whose clock has not been advanced do not count.
func (h *Harness) settle(ctx context.Context) error {
	for range maxSettle {
		quiet, cancel := context.WithTimeout(ctx, h.opts.Quiet)
		a, err := h.store.Next(quiet)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil
			}
			return fmt.Errorf("settle: %w", err)
		}
		h.record(KindReceive, a)
	}
	return fmt.Errorf("settle: still busy after %d actions", maxSettle)
}

func (h *Harness) hold(name string) error {
	if !holdable[name] {
		return fmt.Errorf("hold %s: unknown call", name)
	}
	if _, held := h.releases[name]; held {
		return nil
	}
	if name == sim.GateMakeSDK {
		h.releases[name] = h.world.SDK.HoldMakeSDK()
	} else {
		h.releases[name] = h.world.API.Hold(name)
	}
	return nil
}

func (h *Harness) expect(e Expectation) {
	state := h.store.State()
	if e.Screen != "" {
		if got := app.ScreenFor(state).String(); got != e.Screen {
			h.result.AddError(fmt.Sprintf("expect screen: want %s, got %s", e.Screen, got))
		}
	}
	if e.Flow != "" {
		if got := app.FlowName(state.Flow); got != e.Flow {
			h.result.AddError(fmt.Sprintf("expect flow: want %s, got %s", e.Flow, got))
		}
	}
	if e.Alert != "" {
		got := ""
		if state.Alert != nil {
			got = state.Alert.Title
		}
		if got != e.Alert {
			h.result.AddError(fmt.Sprintf("expect alert: want %q, got %q", e.Alert, got))
		}
	}
}

func (h *Harness) screen() string {
	return app.ScreenFor(h.store.State()).String()
}

func (h *Harness) record(kind string, a app.Action) {
	h.result.record(kind, reducer.ActionName(a), h.screen())
}

func newWorld(spec WorldSpec, logger *slog.Logger) *sim.World {
	kv := restoration.NewMemoryKV()
	for k, v := range spec.Storage {
		kv.Set(k, v)
	}

	var sdkOpts []sim.SDKOption
	if len(spec.ValidKeys) > 0 {
		keys := make([]model.PublishableKey, len(spec.ValidKeys))
		for i, k := range spec.ValidKeys {
			keys[i] = model.PublishableKey(k)
		}
		sdkOpts = append(sdkOpts, sim.WithValidKeys(keys...))
	}
	if spec.Outage != "" {
		// Validated with the scenario.
		r, _ := model.ParseOutageReason(spec.Outage)
		sdkOpts = append(sdkOpts, sim.WithOutage(r))
	}
	if spec.PushDenied {
		sdkOpts = append(sdkOpts, sim.WithPushDenied())
	}

	var apiOpts []sim.APIOption
	for _, a := range spec.Accounts {
		apiOpts = append(apiOpts, sim.WithAccounts(sim.Account{
			Email:          model.Email(a.Email),
			Password:       a.Password,
			PublishableKey: model.PublishableKey(a.PublishableKey),
		}))
	}
	for _, o := range spec.Orders {
		status, _ := parseOrderStatus(o.Status)
		apiOpts = append(apiOpts, sim.WithOrders(model.Order{
			ID:        model.OrderID(o.ID),
			Status:    status,
			Address:   o.Address,
			Note:      o.Note,
			Location:  model.Coordinate{Latitude: o.Latitude, Longitude: o.Longitude},
			CreatedAt: Epoch,
		}))
	}
	for _, p := range spec.Places {
		apiOpts = append(apiOpts, sim.WithPlaces(model.Place{
			ID:       model.PlaceID(p.ID),
			Name:     p.Name,
			Location: model.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude},
		}))
	}
	for _, a := range spec.Addresses {
		apiOpts = append(apiOpts, sim.WithAddress(model.Coordinate{Latitude: a.Latitude, Longitude: a.Longitude}, a.Address))
	}
	if h := spec.History; h != nil {
		d, _ := time.ParseDuration(h.Duration)
		apiOpts = append(apiOpts, sim.WithHistory(model.History{Distance: h.Distance, Duration: d}))
	}

	return sim.NewWorld(sim.Config{
		Logger:        logger,
		KV:            kv,
		Deterministic: true,
		SDK:           sdkOpts,
		API:           apiOpts,
	})
}
