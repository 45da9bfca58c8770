package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldflow/internal/harness"
)

// actionList prints one name per line in text mode.
type actionList []string

func (l actionList) String() string { return strings.Join(l, "\n") }

// NewActionsCommand creates the actions command.
func NewActionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the actions accepted by run and scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.printer(cmd).Result(actionList(harness.ActionNames()))
		},
	}
}
