package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"circletel_billing/internal/adapter/persistence/memory"
	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase/interfaces"
	mock_interfaces "circletel_billing/internal/usecase/interfaces/mocks"
)

var fixedNow = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func fibreService(id string) entities.Service {
	return entities.Service{
		ID:                id,
		CustomerID:        "cust-" + id,
		CustomerName:      "Thandi Nkosi",
		CustomerEmail:     "thandi@example.co.za",
		PackageName:       "HomeFibre 50Mbps",
		Status:            entities.ServiceStatusActive,
		BillingDay:        1,
		MonthlyPriceCents: 50000,
		Currency:          "ZAR",
		ActivationDate:    time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func newTestGenerator(store *memory.Store) *InvoiceGenerator {
	g := NewInvoiceGenerator(store, store, store, GeneratorSettings{TaxRate: money.DefaultVAT, Currency: "ZAR"}, nil)
	g.now = clockAt(fixedNow)
	return g
}

// harness wires the use cases over the in-memory store with a mocked NetCash provider.
type harness struct {
	store      *memory.Store
	registry   *mock_interfaces.MockIPaymentProviderRegistry
	provider   *mock_interfaces.MockIPaymentProvider
	generator  *InvoiceGenerator
	reconciler *WebhookReconciliationUseCase
	payments   *PaymentUseCase
	invoices   *InvoiceUseCase
}

func newHarness(t *testing.T, ctrl *gomock.Controller, collab InvoiceCollaborators) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		registry: mock_interfaces.NewMockIPaymentProviderRegistry(ctrl),
		provider: mock_interfaces.NewMockIPaymentProvider(ctrl),
	}
	h.registry.EXPECT().Get(entities.ProviderNetCash).Return(h.provider, nil).AnyTimes()
	h.registry.EXPECT().Default().Return(entities.ProviderNetCash).AnyTimes()
	h.provider.EXPECT().Name().Return(entities.ProviderNetCash).AnyTimes()

	txs := h.store.Transactions()
	h.generator = newTestGenerator(h.store)
	h.reconciler = NewWebhookReconciliationUseCase(h.store, txs, h.store, h.registry, nil, nil)
	h.reconciler.now = clockAt(fixedNow.Add(time.Hour))
	h.payments = NewPaymentUseCase(h.store, txs, h.store, h.store, h.registry, h.reconciler, nil)
	h.payments.now = clockAt(fixedNow.Add(30 * time.Minute))
	if collab.Payments == nil {
		collab.Payments = h.payments
	}
	h.invoices = NewInvoiceUseCase(h.store, txs, h.store, h.store, h.store, h.registry, h.generator, collab, nil)
	h.invoices.now = clockAt(fixedNow.Add(10 * time.Minute))
	return h
}

func (h *harness) draft(t *testing.T, serviceID string) entities.Invoice {
	t.Helper()
	h.store.PutService(fibreService(serviceID))
	res, err := h.generator.Generate(context.Background(), GenerateInvoiceRequest{ServiceID: serviceID, Period: "2026-02"})
	require.NoError(t, err)
	return res.Invoice
}

func (h *harness) sent(t *testing.T, serviceID string) entities.Invoice {
	t.Helper()
	inv := h.draft(t, serviceID)
	res, err := h.invoices.Send(context.Background(), inv.ID, SendOptions{})
	require.NoError(t, err)
	return res.Invoice
}

func (h *harness) initiate(t *testing.T, inv entities.Invoice, ref string, amount money.Cents) entities.PaymentTransaction {
	t.Helper()
	h.provider.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).
		Return(interfaces.PaymentInitiationResult{PaymentURL: "https://paynow.netcash.co.za/site/paynow.aspx?m4=" + ref, ProviderReference: ref}, nil)
	res, err := h.payments.Initiate(context.Background(), InitiatePaymentRequest{InvoiceID: inv.ID, AmountCents: amount})
	require.NoError(t, err)
	return res.Transaction
}

func completed(ref string, amount money.Cents) entities.CanonicalPaymentResult {
	return entities.CanonicalPaymentResult{
		Provider:          entities.ProviderNetCash,
		ProviderReference: ref,
		AmountCents:       amount,
		Status:            entities.TransactionCompleted,
		OccurredAt:        fixedNow.Add(time.Hour),
	}
}

func (h *harness) paid(t *testing.T, serviceID, ref string) entities.Invoice {
	t.Helper()
	inv := h.sent(t, serviceID)
	h.initiate(t, inv, ref, 0)
	_, err := h.reconciler.Apply(context.Background(), completed(ref, inv.TotalCents))
	require.NoError(t, err)
	out, err := h.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	return out
}
