package entities

import (
	"time"

	"circletel_billing/internal/domain/money"
)

// BillingRunRequest are the parameters of one billing run.
type BillingRunRequest struct {
	BillingDay      int    `json:"billing_day"`
	Period          string `json:"period,omitempty"`
	CustomerID      string `json:"customer_id,omitempty"`
	ServiceID       string `json:"service_id,omitempty"`
	DryRun          bool   `json:"dry_run"`
	SkipSend        bool   `json:"skip_send"`
	SkipPaymentLink bool   `json:"skip_payment_link"`
	SkipCRMSync     bool   `json:"skip_crm_sync"`
	Actor           string `json:"actor,omitempty"`
}

// ServiceBillingResult is the outcome for one service in a run.
type ServiceBillingResult struct {
	ServiceID     string      `json:"service_id"`
	CustomerID    string      `json:"customer_id"`
	Success       bool        `json:"success"`
	Skipped       bool        `json:"skipped,omitempty"`
	SkipReason    string      `json:"skip_reason,omitempty"`
	InvoiceID     string      `json:"invoice_id,omitempty"`
	InvoiceNumber string      `json:"invoice_number,omitempty"`
	TotalCents    money.Cents `json:"total_cents,omitempty"`
	Preview       *Invoice    `json:"preview,omitempty"`

	Sent                  bool   `json:"sent"`
	NotificationDelivered bool   `json:"notification_delivered"`
	CRMSynced             bool   `json:"crm_synced"`
	PaymentURL            string `json:"payment_url,omitempty"`

	ErrorCode string   `json:"error_code,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

type BillingRunSummary struct {
	TotalServices int `json:"total_services"`
	Processed     int `json:"processed"`
	Successful    int `json:"successful"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
}

// BillingRun is the record an operator reviews after a run.
type BillingRun struct {
	RunID       string                 `json:"run_id"`
	BillingDay  int                    `json:"billing_day"`
	Period      string                 `json:"period"`
	DryRun      bool                   `json:"dry_run"`
	TriggeredBy string                 `json:"triggered_by"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	Summary     BillingRunSummary      `json:"summary"`
	Results     []ServiceBillingResult `json:"results"`
}

// Summarise recounts the summary from the per-service results.
func (r *BillingRun) Summarise() {
	s := BillingRunSummary{TotalServices: len(r.Results)}
	for _, res := range r.Results {
		s.Processed++
		switch {
		case res.Skipped:
			s.Skipped++
		case res.Success:
			s.Successful++
		default:
			s.Failed++
		}
	}
	r.Summary = s
}
