package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"circletel_billing/internal/domain/entities"
)

func newRunCmd(setup setupFunc) *cobra.Command {
	var req entities.BillingRunRequest
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bill every active service on a billing day",
		Long: `run generates, sends and links payment for the invoices of every active service
whose billing day matches. One failing service never stops the others; re-running
the same period only retries the failures.`,
		Example: `  # Bill everything due on the 1st for the current month
  billing run --billing-day 1

  # Preview one customer's March invoice without writing anything
  billing run --billing-day 25 --customer cust-42 --period 2026-03 --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, log, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if req.Actor == "" {
				req.Actor = entities.ActorSystem
			}
			run, err := c.BillingRuns.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			log.Infow("[cli][run] billing run finished", "run_id", run.RunID, "period", run.Period,
				"successful", run.Summary.Successful, "failed", run.Summary.Failed, "skipped", run.Summary.Skipped)
			if err := printJSON(cmd.OutOrStdout(), run); err != nil {
				return err
			}
			if run.Summary.Failed > 0 {
				return errors.Newf("%d of %d services failed", run.Summary.Failed, run.Summary.TotalServices)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&req.BillingDay, "billing-day", 0, "Day of month to bill (1-28)")
	f.StringVar(&req.Period, "period", "", "Billing period YYYY-MM (default: current month)")
	f.StringVar(&req.CustomerID, "customer", "", "Only bill this customer")
	f.StringVar(&req.ServiceID, "service", "", "Only bill this service")
	f.BoolVar(&req.DryRun, "dry-run", false, "Preview invoices without persisting or sending")
	f.BoolVar(&req.SkipSend, "skip-send", false, "Leave new invoices in draft")
	f.BoolVar(&req.SkipPaymentLink, "skip-payment-link", false, "Send without creating a payment link")
	f.BoolVar(&req.SkipCRMSync, "skip-crm-sync", false, "Do not push invoices to the CRM")
	f.StringVar(&req.Actor, "actor", "", "Actor recorded in the audit trail (default: system)")
	_ = cmd.MarkFlagRequired("billing-day")
	return cmd
}
