package request

import (
	"strings"

	"circletel_billing/internal/domain/entities"
)

// BillingRunRequest triggers a billing run for every active service on BillingDay.
type BillingRunRequest struct {
	BillingDay      int    `json:"billing_day" binding:"required,min=1,max=31"`
	Period          string `json:"period"`
	CustomerID      string `json:"customer_id"`
	ServiceID       string `json:"service_id"`
	DryRun          bool   `json:"dry_run"`
	SkipSend        bool   `json:"skip_send"`
	SkipPaymentLink bool   `json:"skip_payment_link"`
	SkipCRMSync     bool   `json:"skip_crm_sync"`
}

func (r BillingRunRequest) ToEntity(actor string) entities.BillingRunRequest {
	return entities.BillingRunRequest{
		BillingDay:      r.BillingDay,
		Period:          strings.TrimSpace(r.Period),
		CustomerID:      strings.TrimSpace(r.CustomerID),
		ServiceID:       strings.TrimSpace(r.ServiceID),
		DryRun:          r.DryRun,
		SkipSend:        r.SkipSend,
		SkipPaymentLink: r.SkipPaymentLink,
		SkipCRMSync:     r.SkipCRMSync,
		Actor:           actor,
	}
}
