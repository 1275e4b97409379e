package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <target>",
		Short: "Mark a target whose submission outcome is unknown as completed",
		Long: `Resolve acknowledges that a target with an unknown submission outcome
actually produced its outputs. The outputs are fingerprinted and the run
record is marked completed. Use retry instead if the target should run
again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Resolve(cmd.Context(), workflowFile(cmd), args[0])
		},
	}
}
