package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan [targets...]",
		Short: "Show what a run would submit, without submitting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := c.app.Plan(cmd.Context(), workflowFile(cmd), args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(plan.Waves) == 0 && len(plan.InFlight) == 0 && len(plan.Held) == 0 {
				fmt.Fprintln(out, "Nothing to do, all targets are fresh.")
				return nil
			}

			for i, wave := range plan.Waves {
				fmt.Fprintf(out, "Wave %d:\n", i+1)
				for _, name := range wave {
					fmt.Fprintf(out, "  %s (%s)\n", name, plan.Classification.Reason(name))
				}
			}
			for _, name := range plan.InFlight {
				fmt.Fprintf(out, "In flight: %s\n", name)
			}
			for _, name := range plan.Held {
				fmt.Fprintf(out, "Held: %s (%s)\n", name, plan.Classification.Reason(name))
			}
			return nil
		},
	}
}
