package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/fieldflow/internal/api"
	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/config"
	"github.com/roach88/fieldflow/internal/harness"
	"github.com/roach88/fieldflow/internal/metrics"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/reducer"
	"github.com/roach88/fieldflow/internal/sim"
	"github.com/roach88/fieldflow/internal/storage"
	"github.com/roach88/fieldflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Script   string

	// In overrides the script source (for testing). Default: stdin.
	In io.Reader
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the app against the simulator",
		Long: `Launch the app with the restoration snapshot in a SQLite database and
drive it with commands, one per line, from --script or stdin.

Commands:
  <Action> [key=value ...]   send an action, e.g. SelectTab tab=orders
  open <url>                 open a deep link
  outage <reason>            report an SDK outage
  clear_outage               clear the outage
  expire_tokens              expire every issued API token
  wait <duration>            let effects run
  quit                       stop

The session ends at quit or the end of input. Screen changes and alerts
are printed as they happen; the final screen is printed on exit.

Example:
  fieldflow run --db ./fieldflow.db
  echo 'open fieldflow://open?publishable_key=pk&driver_id=d1
wait 2s' | fieldflow run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "file of commands (default: stdin)")

	return cmd
}

// settleTimeout bounds the wait for pending work when input ends.
const settleTimeout = 5 * time.Second

// runSummary is printed when the session ends.
type runSummary struct {
	Screen  string `json:"screen"`
	Flow    string `json:"flow"`
	Actions int    `json:"actions"`
}

func (s runSummary) String() string {
	return fmt.Sprintf("screen %s\nflow %s\nactions %d", s.Screen, s.Flow, s.Actions)
}

func runApp(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	p := opts.printer(cmd)
	logger := opts.logger(cfg, cmd.ErrOrStderr())

	// Live output would corrupt the JSON result.
	live := &lockedWriter{w: cmd.OutOrStdout()}
	if opts.Format == "json" {
		live = &lockedWriter{w: cmd.ErrOrStderr()}
	}

	in, closeIn, err := opts.input(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open script", err)
	}
	defer closeIn()

	logger.Debug("opening database", "path", cfg.Database)
	kv, err := storage.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	world := sim.NewWorld(sim.Config{Logger: logger, KV: kv})
	defer world.Release()

	env, err := environment(cfg, world, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure api", err)
	}

	m := metrics.New()
	st := store.New(app.NewState(), reducer.Logging("app", logger, app.Reduce), env,
		store.WithLogger(logger),
		store.WithInstrumentation(m),
	)

	actions := 0
	lastScreen := app.ScreenFor(st.State()).String()
	var lastAlert *app.Alert
	fmt.Fprintf(live, "screen %s\n", lastScreen)
	st.Subscribe(func(state app.State, action app.Action) {
		actions++
		if screen := app.ScreenFor(state).String(); screen != lastScreen {
			fmt.Fprintf(live, "screen %s (%s)\n", screen, reducer.ActionName(action))
			lastScreen = screen
		}
		if state.Alert != nil && state.Alert != lastAlert {
			fmt.Fprintf(live, "alert %q: %s\n", state.Alert.Title, state.Alert.Message)
		}
		lastAlert = state.Alert
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	st.Send(app.OSFinishedLaunching{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := st.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return m.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}
	g.Go(func() error {
		defer cancel()
		// A signal only stops the input: the store keeps running until the
		// last reductions and their save are done.
		input, stop := signal.NotifyContext(gctx, os.Interrupt, syscall.SIGTERM)
		d := &driver{world: world, send: st.Send, out: live, logger: logger}
		err := d.run(input, in)
		stop()

		settle, done := context.WithTimeout(gctx, settleTimeout)
		defer done()
		if serr := st.Settle(settle, app.SaveID); serr != nil && gctx.Err() == nil {
			logger.Warn("stopping before the last state change was saved", "error", serr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "session failed", err)
	}

	state := st.State()
	return p.Result(runSummary{
		Screen:  app.ScreenFor(state).String(),
		Flow:    app.FlowName(state.Flow),
		Actions: actions,
	})
}

// environment binds the app to the simulator, or to the HTTP backend when
// one is configured. Reverse geocoding always stays simulated.
func environment(cfg config.Config, world *sim.World, logger *slog.Logger) (app.Environment, error) {
	env := world.Environment()
	env.SplashDelay = cfg.SplashDelay
	env.PasswordMinLength = cfg.PasswordMinLength
	env.GeocodeConcurrency = cfg.GeocodeConcurrency
	env.Now = time.Now

	if cfg.API.Simulated() {
		return env, nil
	}
	client, err := api.NewClient(cfg.API.ClientConfig(logger))
	if err != nil {
		return app.Environment{}, err
	}
	remote := client.Environment()
	remote.ReverseGeocode = env.API.ReverseGeocode
	env.API = remote
	logger.Info("using backend", "url", cfg.API.BaseURL)
	return env, nil
}

func (o *RunOptions) input(cmd *cobra.Command) (io.Reader, func(), error) {
	if o.In != nil {
		return o.In, func() {}, nil
	}
	if o.Script == "" {
		return cmd.InOrStdin(), func() {}, nil
	}
	file, err := os.Open(o.Script)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

// driver executes session commands.
type driver struct {
	world  *sim.World
	send   func(app.Action) bool
	out    io.Writer
	logger *slog.Logger
}

// errQuit ends the session.
var errQuit = errors.New("quit")

// run executes lines from r until quit, the end of input or ctx is done.
// Bad commands are reported and skipped.
func (d *driver) run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	// The scanner may block on stdin past ctx; it is left behind on exit.
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			err := d.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(d.out, "line %d: %v\n", n, err)
			}
		}
	}
}

func (d *driver) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	name, rest := fields[0], fields[1:]

	switch name {
	case "quit":
		return errQuit

	case "wait":
		if len(rest) != 1 {
			return fmt.Errorf("usage: wait <duration>")
		}
		dur, err := time.ParseDuration(rest[0])
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
		case <-time.After(dur):
		}
		return nil

	case "open":
		if len(rest) != 1 {
			return fmt.Errorf("usage: open <url>")
		}
		return d.world.Links.Open(rest[0])

	case "outage":
		if len(rest) != 1 {
			return fmt.Errorf("usage: outage <reason>")
		}
		reason, err := model.ParseOutageReason(rest[0])
		if err != nil {
			return err
		}
		d.world.SDK.SetOutage(reason)
		return nil

	case "clear_outage":
		d.world.SDK.ClearOutage()
		return nil

	case "expire_tokens":
		d.world.API.Expire()
		return nil
	}

	args, err := parseArgs(rest)
	if err != nil {
		return err
	}
	a, err := harness.ParseAction(name, args)
	if err != nil {
		return err
	}
	if !d.send(a) {
		return fmt.Errorf("%s: app stopped", name)
	}
	d.logger.Debug("sent", "action", name)
	return nil
}

// parseArgs reads key=value pairs.
func parseArgs(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	args := make(map[string]any, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q: want key=value", f)
		}
		args[k] = v
	}
	return args, nil
}
