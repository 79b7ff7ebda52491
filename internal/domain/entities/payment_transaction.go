package entities

import (
	"encoding/json"
	"time"

	"circletel_billing/internal/domain/money"
)

// ProviderType identifies a payment gateway.
type ProviderType string

const (
	ProviderNetCash     ProviderType = "netcash"
	ProviderMercadoPago ProviderType = "mercadopago"
	ProviderZohoBilling ProviderType = "zoho_billing"
)

func (p ProviderType) Valid() bool {
	switch p {
	case ProviderNetCash, ProviderMercadoPago, ProviderZohoBilling:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionInitiated TransactionStatus = "initiated"
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// rank orders statuses along the only direction a transaction may move.
func (s TransactionStatus) rank() int {
	switch s {
	case TransactionInitiated:
		return 0
	case TransactionPending:
		return 1
	case TransactionCompleted, TransactionFailed:
		return 2
	case TransactionRefunded:
		return 3
	}
	return -1
}

// IsFinal reports whether a gateway result can no longer change the transaction.
func (s TransactionStatus) IsFinal() bool {
	return s.rank() >= 2
}

// CanMoveTo enforces the forward-only transaction lifecycle.
func (s TransactionStatus) CanMoveTo(next TransactionStatus) bool {
	switch s {
	case TransactionInitiated:
		return next == TransactionPending || next == TransactionCompleted || next == TransactionFailed
	case TransactionPending:
		return next == TransactionCompleted || next == TransactionFailed
	case TransactionCompleted:
		return next == TransactionRefunded
	}
	return false
}

type TransactionKind string

const (
	TransactionKindPayment TransactionKind = "payment"
	TransactionKindRefund  TransactionKind = "refund"
)

// ReconciliationFlag marks a transaction that needs a human to look at it.
type ReconciliationFlag string

const (
	FlagAmountMismatch        ReconciliationFlag = "amount_mismatch"
	FlagOverpayment           ReconciliationFlag = "overpayment"
	FlagInvoiceNotPayable     ReconciliationFlag = "invoice_not_payable"
	FlagCompletedAfterFailure ReconciliationFlag = "completed_after_failure"
)

// PaymentTransaction is one attempt to move money for an invoice.
// Refunds are separate transactions with a negative amount.
type PaymentTransaction struct {
	ID                string            `json:"id"`
	InvoiceID         string            `json:"invoice_id"`
	Provider          ProviderType      `json:"provider"`
	ProviderReference string            `json:"provider_reference"`
	Kind              TransactionKind   `json:"kind"`
	AmountCents       money.Cents       `json:"amount_cents"`
	Currency          string            `json:"currency"`
	Status            TransactionStatus `json:"status"`
	PaymentURL        string            `json:"payment_url,omitempty"`

	InitiatedAt   time.Time  `json:"initiated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`

	Flag         ReconciliationFlag `json:"reconciliation_flag,omitempty"`
	FlaggedCents money.Cents        `json:"flagged_amount_cents,omitempty"`
	FlaggedAt    *time.Time         `json:"flagged_at,omitempty"`

	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// MoveTo advances the transaction status and stamps the matching timestamp.
func (t *PaymentTransaction) MoveTo(next TransactionStatus, now time.Time) error {
	if !t.Status.CanMoveTo(next) {
		return Validationf("transaction %s cannot move from %s to %s", t.ID, t.Status, next)
	}
	t.Status = next
	switch next {
	case TransactionCompleted:
		t.CompletedAt = &now
	case TransactionFailed:
		t.FailedAt = &now
	}
	t.UpdatedAt = now
	return nil
}

// FlagForReview records an integrity problem without touching the status.
func (t *PaymentTransaction) FlagForReview(flag ReconciliationFlag, amount money.Cents, now time.Time) {
	t.Flag = flag
	t.FlaggedCents = amount
	t.FlaggedAt = &now
	t.UpdatedAt = now
}

// ResolveFlag clears a review flag once a matching result settles the transaction. The audit
// entry of the settling commit keeps the flag in its before snapshot.
func (t *PaymentTransaction) ResolveFlag() ReconciliationFlag {
	prev := t.Flag
	t.Flag = ""
	t.FlaggedCents = 0
	t.FlaggedAt = nil
	return prev
}

// CanonicalPaymentResult is a gateway callback or status poll normalised across providers.
type CanonicalPaymentResult struct {
	Provider          ProviderType      `json:"provider"`
	ProviderReference string            `json:"provider_reference"`
	AmountCents       money.Cents       `json:"amount_cents"`
	Status            TransactionStatus `json:"status"`
	OccurredAt        time.Time         `json:"occurred_at"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	Raw               json.RawMessage   `json:"raw,omitempty"`
}

// ProviderCapabilities advertises what a gateway integration supports.
type ProviderCapabilities struct {
	Refunds       bool `json:"refunds"`
	PartialRefund bool `json:"partial_refunds"`
	StatusQueries bool `json:"status_queries"`
	Webhooks      bool `json:"webhooks"`
	Recurring     bool `json:"recurring"`
}
