package request

import (
	"strings"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase"
)

// GenerateInvoiceRequest asks for one service's invoice for a billing period.
type GenerateInvoiceRequest struct {
	ServiceID string `json:"service_id" binding:"required"`
	Period    string `json:"period"`
	DryRun    bool   `json:"dry_run"`
}

func (r GenerateInvoiceRequest) ToUseCase() usecase.GenerateInvoiceRequest {
	return usecase.GenerateInvoiceRequest{
		ServiceID: strings.TrimSpace(r.ServiceID),
		Period:    strings.TrimSpace(r.Period),
		DryRun:    r.DryRun,
	}
}

// SendInvoiceRequest is optional; an empty body just sends the invoice.
type SendInvoiceRequest struct {
	InitiatePayment bool   `json:"initiate_payment"`
	Provider        string `json:"provider"`
}

func (r SendInvoiceRequest) ToUseCase() usecase.SendOptions {
	return usecase.SendOptions{
		InitiatePayment: r.InitiatePayment,
		Provider:        normalizeProvider(r.Provider),
	}
}

// ReasonRequest is the body of void and cancel.
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ResolveReason returns the trimmed reason, empty when only whitespace was sent.
func (r ReasonRequest) ResolveReason() string {
	return strings.TrimSpace(r.Reason)
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
	// Manual records a refund paid outside the gateway.
	Manual bool `json:"manual"`
}

func (r RefundRequest) ToUseCase() usecase.RefundRequest {
	return usecase.RefundRequest{Reason: strings.TrimSpace(r.Reason), Manual: r.Manual}
}

// ListInvoicesQuery is bound from the query string of GET /invoices.
type ListInvoicesQuery struct {
	CustomerID string `form:"customer_id"`
	ServiceID  string `form:"service_id"`
	Status     string `form:"status"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (q ListInvoicesQuery) ToFilter() (entities.InvoiceFilter, error) {
	f := entities.InvoiceFilter{
		CustomerID: strings.TrimSpace(q.CustomerID),
		ServiceID:  strings.TrimSpace(q.ServiceID),
		Limit:      q.Limit,
	}
	if s := strings.ToLower(strings.TrimSpace(q.Status)); s != "" {
		f.Status = entities.InvoiceStatus(s)
		if !f.Status.Valid() {
			return entities.InvoiceFilter{}, entities.Validationf("unknown invoice status %q", q.Status)
		}
	}
	return f, nil
}

func normalizeProvider(p string) entities.ProviderType {
	return entities.ProviderType(strings.ToLower(strings.TrimSpace(p)))
}
