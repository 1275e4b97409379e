package commands

import (
	"github.com/spf13/cobra"
	"go.strandlab.net/floe/internal/adapters/telemetry"
)

func (c *CLI) newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run targets that are stale, along with their stale dependencies",
		Long: `Run builds the workflow graph, determines which targets are stale and
submits them to the backend in dependency order. Without arguments every
endpoint target is scheduled; with arguments only the named targets and
their dependencies are considered.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
				c.app.SetTelemetry(telemetry.NewNoop())
			}
			return c.app.Run(cmd.Context(), workflowFile(cmd), args)
		},
	}
}
