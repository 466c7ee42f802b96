// Package commands defines the CLI command structure.
//
// Commands handle argument parsing and delegate execution to handler
// functions in the handlers package. The root command itself runs the full
// bootstrap pipeline: the tool is designed to be invoked with no arguments
// on a fresh host.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/corelane/bootstrap/cmd/corelane-bootstrap/handlers"
)

// Root returns the root command for the corelane-bootstrap CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corelane-bootstrap",
		Short: "Prepare a Linux host for the Corelane platform installer",
		Long: `corelane-bootstrap prepares a fresh Debian-family host to run the private
Corelane platform installer.

It provisions the shared platform directory and group, installs Docker
Engine (with the Compose plugin) and Git, generates a deploy key for the
private platform repository, clones it, and runs the second-stage bootstrap
script found inside the clone.

The tool must run as root. All tunables are CORELANE_* environment
variables; unset variables fall back to documented defaults. Every step is
idempotent: re-running after a failure is always safe.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Run(cmd.Context())
		},
	}

	cmd.AddCommand(Doctor())
	cmd.AddCommand(Version())

	return cmd
}
