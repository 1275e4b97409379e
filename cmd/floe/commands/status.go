package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [targets...]",
		Short: "Show the staleness state and last run record of each target",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Status(cmd.Context(), workflowFile(cmd), args)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tSTATE\tLAST RUN\tDETAIL")
			for _, row := range rows {
				detail := row.LastError
				if detail == "" && row.SubmissionID != "" {
					detail = string(row.SubmissionID)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.Target, row.State, row.RunStatus, detail)
			}
			return w.Flush()
		},
	}
}
