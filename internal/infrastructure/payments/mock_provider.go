package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// MockProvider stands in for a real gateway when payments.mock is on. Every payment is approved
// on the first status poll and webhooks are signed with the configured secret.
type MockProvider struct {
	name   entities.ProviderType
	secret string
	log    *logger.Logger

	mu      sync.Mutex
	amounts map[string]money.Cents
}

var _ interfaces.IPaymentProvider = (*MockProvider)(nil)

func NewMockProvider(name entities.ProviderType, secret string, log *logger.Logger) *MockProvider {
	log = logger.OrNop(log).Named("payment-mock")
	log.Infow("[payment][gateway] mock mode enabled", "provider", name)
	return &MockProvider{name: name, secret: secret, log: log, amounts: map[string]money.Cents{}}
}

func (m *MockProvider) Name() entities.ProviderType { return m.name }

func (m *MockProvider) Capabilities() entities.ProviderCapabilities {
	return entities.ProviderCapabilities{Refunds: true, PartialRefund: true, StatusQueries: true, Webhooks: true}
}

func (m *MockProvider) InitiatePayment(_ context.Context, req interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
	reference := fmt.Sprintf("MOCK-%s", strconv.FormatInt(time.Now().UTC().UnixNano(), 10))
	m.mu.Lock()
	m.amounts[reference] = req.AmountCents
	m.mu.Unlock()
	m.log.Infow("[payment][gateway] mock create success", "reference", reference, "amount_cents", req.AmountCents)
	return interfaces.PaymentInitiationResult{
		PaymentURL:        "https://mock.payments.local/pay/" + reference,
		ProviderReference: reference,
	}, nil
}

func (m *MockProvider) VerifyWebhookSignature(payload []byte, headers map[string]string) bool {
	return validHex(m.secret, payload, header(headers, "x-signature"))
}

func (m *MockProvider) ParseWebhook(_ context.Context, payload []byte) (entities.CanonicalPaymentResult, error) {
	var res entities.CanonicalPaymentResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return res, entities.Validationf("mock webhook payload is not a canonical payment result")
	}
	res.Provider = m.name
	return res, nil
}

func (m *MockProvider) QueryStatus(_ context.Context, reference string) (entities.CanonicalPaymentResult, error) {
	m.mu.Lock()
	amount, ok := m.amounts[reference]
	m.mu.Unlock()
	if !ok {
		return entities.CanonicalPaymentResult{}, entities.Validationf("mock provider has no payment %s", reference)
	}
	return entities.CanonicalPaymentResult{
		Provider:          m.name,
		ProviderReference: reference,
		AmountCents:       amount,
		Status:            entities.TransactionCompleted,
		OccurredAt:        time.Now().UTC(),
	}, nil
}

func (m *MockProvider) Refund(_ context.Context, reference string, amount money.Cents) (interfaces.RefundResult, error) {
	m.log.Infow("[payment][gateway] mock refund", "reference", reference, "amount_cents", amount)
	return interfaces.RefundResult{ProviderReference: reference + "-R", AmountCents: amount, Status: entities.TransactionCompleted}, nil
}
