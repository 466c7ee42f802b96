package commands

import (
	"github.com/spf13/cobra"

	"github.com/corelane/bootstrap/cmd/corelane-bootstrap/handlers"
)

// Doctor returns the command for inspecting host readiness.
//
// Doctor is read-only: it reports what a bootstrap run would change without
// mutating anything, so it is safe to run at any time (root not required,
// though some checks are only conclusive as root).
//
// Optional flags:
//
//	--json: Output in JSON format
func Doctor() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Inspect host state without changing anything",
		Long: `Inspect the host and report what a bootstrap run would change.

Checks the base directory and group, Docker and Git installation, the git
identity, the deploy key and its SSH host alias, the repository clone, and
the private bootstrap entry point.

Examples:
  # Human-readable report
  corelane-bootstrap doctor

  # Machine-readable report
  corelane-bootstrap doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
