package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every in-flight submission recorded for this workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Cancel(cmd.Context(), workflowFile(cmd))
		},
	}
}
