package response

import (
	"time"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase"
)

type TransactionResponse struct {
	ID                string      `json:"id"`
	InvoiceID         string      `json:"invoice_id"`
	Provider          string      `json:"provider"`
	ProviderReference string      `json:"provider_reference"`
	Kind              string      `json:"kind"`
	Status            string      `json:"status"`
	AmountCents       money.Cents `json:"amount_cents"`
	Amount            string      `json:"amount"`
	Currency          string      `json:"currency"`
	PaymentURL        string      `json:"payment_url,omitempty"`
	InitiatedAt       time.Time   `json:"initiated_at"`
	CompletedAt       *time.Time  `json:"completed_at,omitempty"`
	FailedAt          *time.Time  `json:"failed_at,omitempty"`
	FailureReason     string      `json:"failure_reason,omitempty"`
	Flag              string      `json:"reconciliation_flag,omitempty"`
	FlaggedCents      money.Cents `json:"flagged_amount_cents,omitempty"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func FromTransaction(t entities.PaymentTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                t.ID,
		InvoiceID:         t.InvoiceID,
		Provider:          string(t.Provider),
		ProviderReference: t.ProviderReference,
		Kind:              string(t.Kind),
		Status:            string(t.Status),
		AmountCents:       t.AmountCents,
		Amount:            money.Format(t.AmountCents, t.Currency),
		Currency:          t.Currency,
		PaymentURL:        t.PaymentURL,
		InitiatedAt:       t.InitiatedAt,
		CompletedAt:       t.CompletedAt,
		FailedAt:          t.FailedAt,
		FailureReason:     t.FailureReason,
		Flag:              string(t.Flag),
		FlaggedCents:      t.FlaggedCents,
		UpdatedAt:         t.UpdatedAt,
	}
}

func FromTransactions(txs []entities.PaymentTransaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, FromTransaction(t))
	}
	return out
}

type InitiatePaymentResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	PaymentURL  string              `json:"payment_url"`
	FormFields  map[string]string   `json:"form_fields,omitempty"`
}

func FromInitiateResult(res usecase.InitiatePaymentResult) InitiatePaymentResponse {
	return InitiatePaymentResponse{
		Transaction: FromTransaction(res.Transaction),
		PaymentURL:  res.PaymentURL,
		FormFields:  res.FormFields,
	}
}

// ReconcileResponse is returned by webhooks and manual syncs.
type ReconcileResponse struct {
	Received          bool   `json:"received"`
	Outcome           string `json:"outcome"`
	TransactionID     string `json:"transaction_id,omitempty"`
	TransactionStatus string `json:"transaction_status,omitempty"`
	InvoiceID         string `json:"invoice_id,omitempty"`
	InvoiceStatus     string `json:"invoice_status,omitempty"`
	Flag              string `json:"reconciliation_flag,omitempty"`
}

func FromReconcileResult(res usecase.ReconcileResult) ReconcileResponse {
	return ReconcileResponse{
		Received:          true,
		Outcome:           string(res.Outcome),
		TransactionID:     res.TransactionID,
		TransactionStatus: string(res.TransactionStatus),
		InvoiceID:         res.InvoiceID,
		InvoiceStatus:     string(res.InvoiceStatus),
		Flag:              string(res.Flag),
	}
}
