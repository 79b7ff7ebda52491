package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/money"
)

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusVoid      InvoiceStatus = "void"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

// InvoiceType says how the invoice came to exist.
type InvoiceType string

const (
	InvoiceTypeRecurring InvoiceType = "recurring"
	InvoiceTypeProRata   InvoiceType = "pro_rata"
	InvoiceTypeAdHoc     InvoiceType = "ad_hoc"
)

// LineItemType tags what a line charges for.
type LineItemType string

const (
	LineItemRecurring    LineItemType = "recurring"
	LineItemProRata      LineItemType = "pro_rata"
	LineItemInstallation LineItemType = "installation"
	LineItemHardware     LineItemType = "hardware"
	LineItemAdjustment   LineItemType = "adjustment"
)

type LineItem struct {
	Description    string       `json:"description"`
	Type           LineItemType `json:"type"`
	Quantity       int64        `json:"quantity"`
	UnitPriceCents money.Cents  `json:"unit_price_cents"`
	LineTotalCents money.Cents  `json:"line_total_cents"`
}

// Invoice is the financial document billed to a customer.
//
// Amounts are derived: Recompute is the only writer of Subtotal, Tax and Total.
// InvoiceNumber stays empty until the invoice is sent.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoice_number,omitempty"`
	CustomerID    string        `json:"customer_id"`
	ServiceID     string        `json:"service_id,omitempty"`
	BillingPeriod string        `json:"billing_period,omitempty"`
	InvoiceType   InvoiceType   `json:"invoice_type"`
	Status        InvoiceStatus `json:"status"`
	LineItems     []LineItem    `json:"line_items"`

	TaxRate       money.Rate  `json:"tax_rate_bp"`
	SubtotalCents money.Cents `json:"subtotal_cents"`
	TaxCents      money.Cents `json:"tax_cents"`
	TotalCents    money.Cents `json:"total_cents"`
	PaidCents     money.Cents `json:"amount_paid_cents"`
	Currency      string      `json:"currency"`

	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	SentAt       *time.Time `json:"sent_at,omitempty"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	VoidedAt     *time.Time `json:"voided_at,omitempty"`
	VoidReason   string     `json:"void_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`

	PDFURL    string    `json:"pdf_url,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusVoid, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue},
	InvoiceStatusPartial: {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusRefunded},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusRefunded},
	InvoiceStatusPaid:    {InvoiceStatusRefunded},
}

// CanTransition reports whether from -> to is an edge of the invoice lifecycle.
func CanTransition(from, to InvoiceStatus) bool {
	for _, s := range invoiceTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s InvoiceStatus) IsTerminal() bool {
	switch s {
	case InvoiceStatusVoid, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// IsPayable reports whether payments may be applied in this status.
func (s InvoiceStatus) IsPayable() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusPartial, InvoiceStatusOverdue:
		return true
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartial, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusVoid, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	}
	return false
}

// IsLocked reports whether line items and totals are frozen.
func (i *Invoice) IsLocked() bool {
	return i.Status != InvoiceStatusDraft
}

// AmountDue is total minus paid, never negative.
func (i *Invoice) AmountDue() money.Cents {
	due := i.TotalCents - i.PaidCents
	if due < 0 {
		return 0
	}
	return due
}

// Recompute derives line totals, subtotal, tax and total from the line items.
func (i *Invoice) Recompute() {
	var subtotal money.Cents
	for idx := range i.LineItems {
		li := &i.LineItems[idx]
		li.LineTotalCents = li.UnitPriceCents.Mul(li.Quantity)
		subtotal += li.LineTotalCents
	}
	i.SubtotalCents = subtotal
	i.TaxCents = money.ApplyRate(subtotal, i.TaxRate)
	i.TotalCents = money.Sum(i.SubtotalCents, i.TaxCents)
}

// AddLineItem appends a line to a draft invoice and recomputes totals.
func (i *Invoice) AddLineItem(li LineItem) error {
	if i.IsLocked() {
		return ErrInvoiceLocked
	}
	if strings.TrimSpace(li.Description) == "" {
		return Validationf("line item description is required")
	}
	if li.Quantity <= 0 {
		return Validationf("line item quantity must be positive")
	}
	i.LineItems = append(i.LineItems, li)
	i.Recompute()
	return nil
}

// EffectiveStatus derives overdue at read time for unpaid invoices past their due date.
func (i *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.isPastDue(now) && (i.Status == InvoiceStatusSent || i.Status == InvoiceStatusPartial) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

func (i *Invoice) isPastDue(now time.Time) bool {
	if i.DueDate.IsZero() || i.AmountDue() == 0 {
		return false
	}
	due := time.Date(i.DueDate.Year(), i.DueDate.Month(), i.DueDate.Day(), 0, 0, 0, 0, time.UTC)
	return now.UTC().After(due.AddDate(0, 0, 1))
}

// MarkSent moves a draft to sent. The invoice number is claimed by the store in the same commit.
func (i *Invoice) MarkSent(now time.Time) error {
	if i.Status != InvoiceStatusDraft {
		return &InvalidStateTransitionError{From: i.Status, To: InvoiceStatusSent, Conflict: true,
			Guard: "Only draft invoices can be sent"}
	}
	if len(i.LineItems) == 0 {
		return Validationf("invoice has no line items")
	}
	if i.TotalCents <= 0 {
		return Validationf("invoice total must be greater than zero")
	}
	i.Status = InvoiceStatusSent
	i.SentAt = &now
	i.UpdatedAt = now
	return nil
}

// Void discards a draft. Sent invoices need a credit note instead.
func (i *Invoice) Void(now time.Time, reason string) error {
	if i.Status != InvoiceStatusDraft {
		return &InvalidStateTransitionError{From: i.Status, To: InvoiceStatusVoid,
			Guard: "Only draft invoices can be voided"}
	}
	if strings.TrimSpace(reason) == "" {
		return Validationf("void reason is required")
	}
	i.Status = InvoiceStatusVoid
	i.VoidedAt = &now
	i.VoidReason = strings.TrimSpace(reason)
	i.UpdatedAt = now
	return nil
}

// Cancel withdraws a draft that should never have been billed.
func (i *Invoice) Cancel(now time.Time, reason string) error {
	if i.Status != InvoiceStatusDraft {
		return &InvalidStateTransitionError{From: i.Status, To: InvoiceStatusCancelled,
			Guard: "Only draft invoices can be cancelled"}
	}
	if strings.TrimSpace(reason) == "" {
		return Validationf("cancel reason is required")
	}
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = strings.TrimSpace(reason)
	i.UpdatedAt = now
	return nil
}

// ApplyPayment records a settled payment. Partial payments on an overdue invoice keep it overdue.
func (i *Invoice) ApplyPayment(amount money.Cents, now time.Time) error {
	if !i.Status.IsPayable() {
		return errors.Wrapf(ErrInvoiceNotPayable, "status %s", i.Status)
	}
	if amount <= 0 {
		return Validationf("payment amount must be positive")
	}
	if amount > i.AmountDue() {
		return errors.Wrapf(ErrOverpayment, "amount %d exceeds due %d", amount, i.AmountDue())
	}

	i.PaidCents += amount
	switch {
	case i.PaidCents >= i.TotalCents:
		i.Status = InvoiceStatusPaid
		i.PaidAt = &now
	case i.Status == InvoiceStatusSent:
		i.Status = InvoiceStatusPartial
	}
	i.UpdatedAt = now
	return nil
}

// MarkOverdue is used by the periodic sweep.
func (i *Invoice) MarkOverdue(now time.Time) error {
	if !CanTransition(i.Status, InvoiceStatusOverdue) {
		return NewInvalidTransition(i.Status, InvoiceStatusOverdue)
	}
	if !i.isPastDue(now) {
		return Validationf("invoice %s is not past due", i.ID)
	}
	i.Status = InvoiceStatusOverdue
	i.UpdatedAt = now
	return nil
}

// MarkRefunded closes an invoice whose payments were returned through a compensating transaction.
func (i *Invoice) MarkRefunded(now time.Time) error {
	if !CanTransition(i.Status, InvoiceStatusRefunded) {
		return &InvalidStateTransitionError{From: i.Status, To: InvoiceStatusRefunded,
			Guard: "Only paid invoices can be refunded"}
	}
	if i.PaidCents <= 0 {
		return Validationf("invoice %s has no settled payments to refund", i.ID)
	}
	i.Status = InvoiceStatusRefunded
	i.RefundedAt = &now
	i.UpdatedAt = now
	return nil
}

// FormatInvoiceNumber renders INV-{year}-{seq:03d}.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("INV-%d-%03d", year, seq)
}

// BillingPeriodOf returns the "YYYY-MM" key for t.
func BillingPeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// ParseBillingPeriod returns the first and last day of a "YYYY-MM" period.
func ParseBillingPeriod(period string) (start, end time.Time, err error) {
	start, err = time.Parse("2006-01", strings.TrimSpace(period))
	if err != nil {
		return time.Time{}, time.Time{}, Validationf("billing period %q must be YYYY-MM", period)
	}
	end = start.AddDate(0, 1, -1)
	return start, end, nil
}

// InvoiceFilter narrows invoice listings. Zero values match everything.
type InvoiceFilter struct {
	CustomerID string
	ServiceID  string
	Status     InvoiceStatus
	// DueBefore selects invoices whose due date is strictly before it.
	DueBefore *time.Time
	Limit     int
}
