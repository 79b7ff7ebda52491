package response

import (
	"time"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase"
)

type LineItemResponse struct {
	Description string `json:"description"`
	Type        string `json:"type"`
	Quantity    int64  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// InvoiceResponse shows amounts both in cents and formatted; Status is the effective status,
// StoredStatus what is persisted.
type InvoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number,omitempty"`
	CustomerID    string             `json:"customer_id"`
	ServiceID     string             `json:"service_id,omitempty"`
	BillingPeriod string             `json:"billing_period,omitempty"`
	InvoiceType   string             `json:"invoice_type"`
	Status        string             `json:"status"`
	StoredStatus  string             `json:"stored_status"`
	LineItems     []LineItemResponse `json:"line_items"`

	Currency      string      `json:"currency"`
	TaxRate       string      `json:"tax_rate"`
	SubtotalCents money.Cents `json:"subtotal_cents"`
	TaxCents      money.Cents `json:"tax_cents"`
	TotalCents    money.Cents `json:"total_cents"`
	PaidCents     money.Cents `json:"amount_paid_cents"`
	DueCents      money.Cents `json:"amount_due_cents"`
	Total         string      `json:"total"`
	AmountDue     string      `json:"amount_due"`

	IssueDate   time.Time  `json:"issue_date"`
	DueDate     time.Time  `json:"due_date"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	VoidedAt    *time.Time `json:"voided_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	PDFURL      string     `json:"pdf_url,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromInvoice(inv entities.Invoice, now time.Time) InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.LineItems))
	for _, li := range inv.LineItems {
		items = append(items, LineItemResponse{
			Description: li.Description,
			Type:        string(li.Type),
			Quantity:    li.Quantity,
			UnitPrice:   money.Format(li.UnitPriceCents, inv.Currency),
			LineTotal:   money.Format(li.LineTotalCents, inv.Currency),
		})
	}
	reason := inv.VoidReason
	if reason == "" {
		reason = inv.CancelReason
	}
	return InvoiceResponse{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		ServiceID:     inv.ServiceID,
		BillingPeriod: inv.BillingPeriod,
		InvoiceType:   string(inv.InvoiceType),
		Status:        string(inv.EffectiveStatus(now)),
		StoredStatus:  string(inv.Status),
		LineItems:     items,
		Currency:      inv.Currency,
		TaxRate:       inv.TaxRate.String(),
		SubtotalCents: inv.SubtotalCents,
		TaxCents:      inv.TaxCents,
		TotalCents:    inv.TotalCents,
		PaidCents:     inv.PaidCents,
		DueCents:      inv.AmountDue(),
		Total:         money.Format(inv.TotalCents, inv.Currency),
		AmountDue:     money.Format(inv.AmountDue(), inv.Currency),
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		PeriodStart:   inv.PeriodStart,
		PeriodEnd:     inv.PeriodEnd,
		SentAt:        inv.SentAt,
		PaidAt:        inv.PaidAt,
		VoidedAt:      inv.VoidedAt,
		CancelledAt:   inv.CancelledAt,
		RefundedAt:    inv.RefundedAt,
		Reason:        reason,
		PDFURL:        inv.PDFURL,
		Version:       inv.Version,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func FromInvoices(invs []entities.Invoice, now time.Time) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, FromInvoice(inv, now))
	}
	return out
}

type GenerateInvoiceResponse struct {
	Invoice    *InvoiceResponse `json:"invoice,omitempty"`
	Skipped    bool             `json:"skipped"`
	SkipReason string           `json:"skip_reason,omitempty"`
	DryRun     bool             `json:"dry_run"`
}

func FromGenerateResult(res usecase.GenerateInvoiceResult, now time.Time) GenerateInvoiceResponse {
	out := GenerateInvoiceResponse{Skipped: res.Skipped, SkipReason: res.SkipReason, DryRun: res.DryRun}
	if !res.Skipped {
		inv := FromInvoice(res.Invoice, now)
		out.Invoice = &inv
	}
	return out
}

type SendInvoiceResponse struct {
	Invoice               InvoiceResponse `json:"invoice"`
	PDFGenerated          bool            `json:"pdf_generated"`
	NotificationDelivered bool            `json:"notification_delivered"`
	PaymentURL            string          `json:"payment_url,omitempty"`
	Warnings              []string        `json:"warnings,omitempty"`
}

func FromSendResult(res usecase.SendInvoiceResult, now time.Time) SendInvoiceResponse {
	return SendInvoiceResponse{
		Invoice:               FromInvoice(res.Invoice, now),
		PDFGenerated:          res.PDFGenerated,
		NotificationDelivered: res.NotificationDelivered,
		PaymentURL:            res.PaymentURL,
		Warnings:              res.Errors,
	}
}

type RefundInvoiceResponse struct {
	Invoice InvoiceResponse       `json:"invoice"`
	Refunds []TransactionResponse `json:"refunds"`
}

func FromRefundResult(res usecase.RefundInvoiceResult, now time.Time) RefundInvoiceResponse {
	return RefundInvoiceResponse{Invoice: FromInvoice(res.Invoice, now), Refunds: FromTransactions(res.Refunds)}
}

type AuditEntryResponse struct {
	ID           string      `json:"id"`
	Actor        string      `json:"actor"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id"`
	Before       interface{} `json:"before,omitempty"`
	After        interface{} `json:"after,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func FromAuditTrail(entries []entities.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		r := AuditEntryResponse{
			ID:           e.ID,
			Actor:        e.Actor,
			Action:       e.Action,
			ResourceType: string(e.ResourceType),
			ResourceID:   e.ResourceID,
			Reason:       e.Reason,
			CreatedAt:    e.CreatedAt,
		}
		if len(e.Before) > 0 {
			r.Before = e.Before
		}
		if len(e.After) > 0 {
			r.After = e.After
		}
		out = append(out, r)
	}
	return out
}
