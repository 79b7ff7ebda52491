package main

import (
	"time"

	"github.com/spf13/cobra"

	"circletel_billing/internal/domain/entities"
)

func newSweepOverdueCmd(setup setupFunc) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark sent and partially paid invoices past their due date as overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var now time.Time
			if asOf != "" {
				t, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return entities.Validationf("--as-of must be YYYY-MM-DD, got %q", asOf)
				}
				now = t
			}

			c, log, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Invoices.SweepOverdue(cmd.Context(), now)
			if err != nil {
				return err
			}
			log.Infow("[cli][sweep] overdue sweep finished", "checked", res.Checked, "marked", res.Marked, "errors", len(res.Errors))
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Evaluate due dates as of this day (YYYY-MM-DD, default: now)")
	return cmd
}
