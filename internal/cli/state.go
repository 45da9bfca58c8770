package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldflow/internal/feature/restoration"
	"github.com/roach88/fieldflow/internal/storage"
)

// StateOptions holds flags for the state commands.
type StateOptions struct {
	*RootOptions
	Database string
}

// NewStateCommand creates the state command and its subcommands.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect the restoration snapshot",
		Long: `Inspect or clear the snapshot the app restores on launch.

Examples:
  fieldflow state show --db ./fieldflow.db
  fieldflow state decode --format json
  fieldflow state reset`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "List the stored keys and the last save",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(opts, cmd, showState)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "decode",
		Short:         "Decode the snapshot as the app would on launch",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(opts, cmd, decodeState)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "reset",
		Short:         "Delete the snapshot",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(opts, cmd, resetState)
		},
	})

	return cmd
}

func withStorage(opts *StateOptions, cmd *cobra.Command, fn func(*cobra.Command, *Printer, *storage.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	p := opts.printer(cmd)
	p.Debugf("database %s", cfg.Database)

	st, err := storage.Open(cfg.Database)
	if err != nil {
		_ = p.Fail(CodeStorage, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()
	return fn(cmd, p, st)
}

// stateListing is the output of state show.
type stateListing struct {
	Entries  []storage.Entry `json:"entries"`
	LastSave *storage.Save   `json:"last_save,omitempty"`
}

func (l stateListing) String() string {
	if len(l.Entries) == 0 {
		return "no stored state"
	}
	var b strings.Builder
	for _, e := range l.Entries {
		fmt.Fprintf(&b, "%s = %q\n", e.Key, e.Value)
	}
	if s := l.LastSave; s != nil {
		fmt.Fprintf(&b, "last save #%d: %d set, %d deleted, digest %s", s.Seq, s.KeysSet, s.KeysDeleted, s.Digest)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func showState(cmd *cobra.Command, p *Printer, st *storage.Store) error {
	ctx := cmd.Context()
	entries, err := st.Entries(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state", err)
	}
	listing := stateListing{Entries: entries}
	save, ok, err := st.LastSave(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read last save", err)
	}
	if ok {
		listing.LastSave = &save
	}
	return p.Result(listing)
}

// decodedState is the output of state decode.
type decodedState struct {
	Flow           string `json:"flow"`
	Email          string `json:"email,omitempty"`
	PublishableKey string `json:"publishable_key,omitempty"`
	DriverID       string `json:"driver_id,omitempty"`
	Tab            string `json:"tab,omitempty"`
	Places         int    `json:"places,omitempty"`
	LocationAlways string `json:"location_always,omitempty"`
	PushStatus     string `json:"push_status,omitempty"`
	Experience     string `json:"experience,omitempty"`
}

func (d decodedState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "flow %s", d.Flow)
	for _, kv := range [][2]string{
		{"email", d.Email},
		{"publishable_key", d.PublishableKey},
		{"driver_id", d.DriverID},
		{"tab", d.Tab},
		{"location_always", d.LocationAlways},
		{"push_status", d.PushStatus},
		{"experience", d.Experience},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "\n%s %s", kv[0], kv[1])
		}
	}
	if d.Places > 0 {
		fmt.Fprintf(&b, "\nplaces %d", d.Places)
	}
	return b.String()
}

func newDecodedState(s *restoration.StorageState) decodedState {
	if s == nil {
		return decodedState{Flow: "none"}
	}
	d := decodedState{
		LocationAlways: s.LocationAlways.String(),
		PushStatus:     s.PushStatus.String(),
		Experience:     s.Experience.String(),
	}
	switch flow := s.Flow.(type) {
	case restoration.FirstRunFlow:
		d.Flow = "first_run"
	case restoration.SignInFlow:
		d.Flow = "sign_in"
		d.Email = string(flow.Email)
	case restoration.MainFlow:
		d.Flow = "main"
		d.PublishableKey = string(flow.PublishableKey)
		d.DriverID = string(flow.DriverID)
		d.Tab = flow.Tab.String()
		d.Places = len(flow.Places)
	}
	return d
}

func decodeState(cmd *cobra.Command, p *Printer, st *storage.Store) error {
	state, err := restoration.KVEnvironment(st).Load(cmd.Context())
	var inconsistent *restoration.Error
	if errors.As(err, &inconsistent) {
		_ = p.Fail(CodeDecode, inconsistent.Error(), nil)
		return WrapExitError(ExitFailure, "stored state is inconsistent", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read state", err)
	}
	return p.Result(newDecodedState(state))
}

func resetState(cmd *cobra.Command, p *Printer, st *storage.Store) error {
	if err := st.Reset(cmd.Context()); err != nil {
		return WrapExitError(ExitCommandError, "failed to reset state", err)
	}
	return p.Result("state reset")
}
