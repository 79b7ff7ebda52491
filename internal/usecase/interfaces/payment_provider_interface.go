package interfaces

import (
	"context"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
)

//go:generate mockgen -source=payment_provider_interface.go -destination=mocks/payment_provider_interface_mock.go -package=mock_interfaces

// PaymentInitiation is what a provider needs to build a hosted payment request.
type PaymentInitiation struct {
	InvoiceID     string
	InvoiceNumber string
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	Description   string
	AmountCents   money.Cents
	Currency      string
}

type PaymentInitiationResult struct {
	PaymentURL        string
	ProviderReference string
	// FormFields carries the POST fields for providers whose hosted page is a form target.
	FormFields map[string]string
}

type RefundResult struct {
	ProviderReference string
	AmountCents       money.Cents
	Status            entities.TransactionStatus
}

// IPaymentProvider is the capability surface every gateway integration implements.
//
// VerifyWebhookSignature must fail closed: a missing secret or header is an invalid signature.
type IPaymentProvider interface {
	Name() entities.ProviderType
	Capabilities() entities.ProviderCapabilities
	InitiatePayment(ctx context.Context, req PaymentInitiation) (PaymentInitiationResult, error)
	VerifyWebhookSignature(payload []byte, headers map[string]string) bool
	ParseWebhook(ctx context.Context, payload []byte) (entities.CanonicalPaymentResult, error)
	QueryStatus(ctx context.Context, providerReference string) (entities.CanonicalPaymentResult, error)
	Refund(ctx context.Context, providerReference string, amount money.Cents) (RefundResult, error)
}

// IPaymentProviderRegistry resolves providers by type.
type IPaymentProviderRegistry interface {
	Get(name entities.ProviderType) (IPaymentProvider, error)
	Default() entities.ProviderType
}
