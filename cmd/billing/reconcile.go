package main

import (
	"github.com/spf13/cobra"
)

func newReconcileCmd(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Poll gateways for initiated and pending transactions that never got a webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, log, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := c.PaymentSync.SyncStale(cmd.Context())
			if err != nil {
				return err
			}
			log.Infow("[cli][reconcile] stale transactions synced", "checked", report.Checked, "changed", report.Changed, "failed", report.Failed)
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}
