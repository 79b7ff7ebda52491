package response

import (
	"time"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
)

type BillingRunResponse struct {
	RunID       string                          `json:"run_id"`
	BillingDay  int                             `json:"billing_day"`
	Period      string                          `json:"period"`
	DryRun      bool                            `json:"dry_run"`
	TriggeredBy string                          `json:"triggered_by"`
	StartedAt   time.Time                       `json:"started_at"`
	FinishedAt  time.Time                       `json:"finished_at"`
	DurationMS  int64                           `json:"duration_ms"`
	Summary     entities.BillingRunSummary      `json:"summary"`
	Results     []entities.ServiceBillingResult `json:"results,omitempty"`
}

func FromBillingRun(run entities.BillingRun) BillingRunResponse {
	return BillingRunResponse{
		RunID:       run.RunID,
		BillingDay:  run.BillingDay,
		Period:      run.Period,
		DryRun:      run.DryRun,
		TriggeredBy: run.TriggeredBy,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		DurationMS:  run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		Summary:     run.Summary,
		Results:     run.Results,
	}
}

// FromBillingRuns lists runs without their per-service results.
func FromBillingRuns(runs []entities.BillingRun) []BillingRunResponse {
	out := make([]BillingRunResponse, 0, len(runs))
	for _, r := range runs {
		resp := FromBillingRun(r)
		resp.Results = nil
		out = append(out, resp)
	}
	return out
}

type SweepResponse struct {
	Checked    int      `json:"checked"`
	Marked     int      `json:"marked"`
	InvoiceIDs []string `json:"invoice_ids"`
	Errors     []string `json:"errors,omitempty"`
}

func FromSweepResult(res usecase.SweepResult) SweepResponse {
	ids := res.InvoiceIDs
	if ids == nil {
		ids = []string{}
	}
	return SweepResponse{Checked: res.Checked, Marked: res.Marked, InvoiceIDs: ids, Errors: res.Errors}
}
