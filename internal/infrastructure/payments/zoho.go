package payments

import (
	"context"

	"github.com/cockroachdb/errors"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase/interfaces"
)

// ZohoBillingProvider reserves the zoho_billing name. Zoho collects through its own hosted
// pages, so nothing is routed through it yet.
type ZohoBillingProvider struct{}

var _ interfaces.IPaymentProvider = ZohoBillingProvider{}

func (ZohoBillingProvider) Name() entities.ProviderType { return entities.ProviderZohoBilling }

func (ZohoBillingProvider) Capabilities() entities.ProviderCapabilities {
	return entities.ProviderCapabilities{}
}

func (ZohoBillingProvider) InitiatePayment(context.Context, interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
	return interfaces.PaymentInitiationResult{}, errNotSupported("initiate payment")
}

func (ZohoBillingProvider) VerifyWebhookSignature([]byte, map[string]string) bool { return false }

func (ZohoBillingProvider) ParseWebhook(context.Context, []byte) (entities.CanonicalPaymentResult, error) {
	return entities.CanonicalPaymentResult{}, errNotSupported("webhooks")
}

func (ZohoBillingProvider) QueryStatus(context.Context, string) (entities.CanonicalPaymentResult, error) {
	return entities.CanonicalPaymentResult{}, errNotSupported("status queries")
}

func (ZohoBillingProvider) Refund(context.Context, string, money.Cents) (interfaces.RefundResult, error) {
	return interfaces.RefundResult{}, errNotSupported("refunds")
}

func errNotSupported(op string) error {
	return errors.Wrapf(entities.ErrNotSupported, "zoho_billing %s", op)
}
