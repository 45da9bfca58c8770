package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fieldflow/internal/app"
	"github.com/roach88/fieldflow/internal/feature/signin"
	"github.com/roach88/fieldflow/internal/model"
	"github.com/roach88/fieldflow/internal/sim"
	"github.com/roach88/fieldflow/internal/storage"
)

// session runs the app with script as input against a fresh database.
func session(t *testing.T, format, script string, configure func(*RunOptions)) (string, error) {
	t.Helper()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Database:    filepath.Join(t.TempDir(), "fieldflow.db"),
		In:          strings.NewReader(script),
	}
	if configure != nil {
		configure(opts)
	}

	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	err := runApp(opts, cmd)
	return buf.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldflow.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_FreshInstall(t *testing.T) {
	out, err := session(t, "text", "wait 200ms\nquit\n", nil)
	require.NoError(t, err)

	assert.Contains(t, out, "screen loading\n")
	assert.Contains(t, out, "screen first_run (RestoredState)\n")
	assert.Contains(t, out, "flow first_run\n")
}

func TestRun_SplashFromConfig(t *testing.T) {
	config := writeConfig(t, `{"splash_delay": "10ms"}`)

	out, err := session(t, "text", "wait 300ms\n", func(o *RunOptions) {
		o.ConfigPath = config
	})
	require.NoError(t, err)

	assert.Contains(t, out, "screen sign_in_form (FirstRunWaitingComplete)\n")
	assert.Contains(t, out, "flow sign_in\n")
}

func TestRun_DeepLinkPersists(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fieldflow.db")
	script := strings.Join([]string{
		"# full deep link during the splash",
		"wait 100ms",
		"open fieldflow://open?publishable_key=pk-test&driver_id=driver-1",
		"wait 300ms",
		"quit",
	}, "\n")

	out, err := session(t, "text", script, func(o *RunOptions) { o.Database = db })
	require.NoError(t, err)
	assert.Contains(t, out, "screen making_sdk (ApplyFullDeepLink)\n")
	assert.Contains(t, out, "flow main\n")

	st, err := storage.Open(db)
	require.NoError(t, err)
	defer st.Close()
	values, err := st.Get(context.Background(), []string{"ff.s", "ff.pk", "ff.n"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ff.s": "main", "ff.pk": "pk-test", "ff.n": "driver-1"}, values)
}

func TestRun_LastChangeIsSavedWhenInputEnds(t *testing.T) {
	db := seed(t, map[string]string{"ff.s": "main", "ff.pk": "pk", "ff.n": "driver", "ff.t": "map"})

	// The tab change is the final line: input ends right after it is sent.
	out, err := session(t, "text", "wait 200ms\nSelectTab tab=places", func(o *RunOptions) { o.Database = db })
	require.NoError(t, err)
	assert.Contains(t, out, "flow main\n")

	st, err := storage.Open(db)
	require.NoError(t, err)
	defer st.Close()
	values, err := st.Get(context.Background(), []string{"ff.t"})
	require.NoError(t, err)
	assert.Equal(t, "places", values["ff.t"])
}

func TestRun_BadCommandsAreReported(t *testing.T) {
	script := strings.Join([]string{
		"Bogus",
		"SelectTab tab",
		"outage sunspots",
		"wait soon",
		"wait 50ms",
	}, "\n")

	out, err := session(t, "text", script, nil)
	require.NoError(t, err)

	assert.Contains(t, out, `line 1: unknown action "Bogus"`)
	assert.Contains(t, out, `line 2: argument "tab": want key=value`)
	assert.Contains(t, out, "line 3: ")
	assert.Contains(t, out, "line 4: ")
	assert.NotContains(t, out, "line 5: ")
}

func TestRun_JSONSummary(t *testing.T) {
	out, err := session(t, "json", "wait 100ms\n", nil)
	require.NoError(t, err)

	// Live output goes to stderr in JSON mode.
	var resp struct {
		Status string     `json:"status"`
		Data   runSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "first_run", resp.Data.Screen)
	assert.Positive(t, resp.Data.Actions)
}

func TestRun_BadDatabase(t *testing.T) {
	_, err := session(t, "text", "", func(o *RunOptions) {
		o.Database = filepath.Join(t.TempDir(), "missing", "dir", "fieldflow.db")
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRun_MissingScript(t *testing.T) {
	_, err := session(t, "text", "", func(o *RunOptions) {
		o.In = nil
		o.Script = filepath.Join(t.TempDir(), "missing.txt")
	})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open script")
}

func TestDriver_Exec(t *testing.T) {
	world := sim.NewWorld(sim.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	defer world.Release()

	var sent []app.Action
	d := &driver{
		world:  world,
		send:   func(a app.Action) bool { sent = append(sent, a); return true },
		out:    io.Discard,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ctx := context.Background()

	require.NoError(t, d.exec(ctx, ""))
	require.NoError(t, d.exec(ctx, "  # comment"))
	require.NoError(t, d.exec(ctx, "SelectTab tab=orders"))
	require.NoError(t, d.exec(ctx, "signin.EmailChanged email=ana@example.com"))
	require.Equal(t, []app.Action{
		app.SelectTab{Tab: model.TabOrders},
		app.SignInAction{Action: signin.EmailChanged{Email: "ana@example.com"}},
	}, sent)

	require.NoError(t, d.exec(ctx, "expire_tokens"))
	require.NoError(t, d.exec(ctx, "clear_outage"))
	assert.ErrorIs(t, d.exec(ctx, "quit"), errQuit)
	assert.Error(t, d.exec(ctx, "open"))
	assert.Error(t, d.exec(ctx, "open not-a-link"))
	assert.Equal(t, 1, world.Links.Count("open"))

	d.send = func(app.Action) bool { return false }
	assert.ErrorContains(t, d.exec(ctx, "SignOut"), "app stopped")
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"publishable_key=pk=1", "driver_id="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"publishable_key": "pk=1", "driver_id": ""}, args)

	args, err = parseArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, args)

	_, err = parseArgs([]string{"=x"})
	assert.Error(t, err)
}
