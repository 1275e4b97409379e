package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <target>",
		Short: "Clear a failed, unknown or cancelled run record so the target runs again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Retry(cmd.Context(), workflowFile(cmd), args[0])
		},
	}
}
