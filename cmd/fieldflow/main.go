// Command fieldflow runs the field-worker app state machine against
// simulated collaborators.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/fieldflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
