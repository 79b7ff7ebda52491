package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase/interfaces"
)

func TestPaymentUseCase_Initiate(t *testing.T) {
	ctx := context.Background()

	t.Run("records an initiated transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.sent(t, "svc-1")

		h.provider.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
			assert.Equal(t, "Thandi Nkosi", req.CustomerName)
			assert.Equal(t, "ZAR", req.Currency)
			return interfaces.PaymentInitiationResult{
				PaymentURL:        "https://paynow.netcash.co.za/site/paynow.aspx",
				ProviderReference: "CT-INV-2026-001-1767225600000",
				FormFields:        map[string]string{"m4": "INV-2026-001"},
			}, nil
		})

		res, err := h.payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: inv.ID})
		require.NoError(t, err)
		assert.Equal(t, entities.TransactionInitiated, res.Transaction.Status)
		assert.Equal(t, money.Cents(57500), res.Transaction.AmountCents)
		assert.Equal(t, entities.ProviderNetCash, res.Transaction.Provider)
		assert.Equal(t, "INV-2026-001", res.FormFields["m4"])

		stored, err := h.invoices.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.InvoiceStatusSent, stored.Status)
		assert.Equal(t, money.Cents(0), stored.PaidCents)
	})

	t.Run("draft invoices are not payable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.draft(t, "svc-1")

		_, err := h.payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: inv.ID})
		assert.ErrorIs(t, err, entities.ErrInvoiceNotPayable)
	})

	t.Run("amount above due is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.sent(t, "svc-1")

		_, err := h.payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: inv.ID, AmountCents: 57501})
		assert.ErrorIs(t, err, entities.ErrValidation)
		assert.Contains(t, err.Error(), "R575.01")
	})

	t.Run("gateway failure is external", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.sent(t, "svc-1")

		h.provider.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).Return(interfaces.PaymentInitiationResult{}, errors.New("503 from gateway"))

		_, err := h.payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: inv.ID})
		assert.ErrorIs(t, err, entities.ErrExternal)
		assert.Equal(t, entities.ClassExternal, entities.Classify(err))
	})

	t.Run("missing invoice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})

		_, err := h.payments.Initiate(ctx, InitiatePaymentRequest{InvoiceID: "nope"})
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestPaymentUseCase_Sync(t *testing.T) {
	ctx := context.Background()

	t.Run("applies polled status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.sent(t, "svc-1")
		tx := h.initiate(t, inv, "MP-123", 0)

		h.provider.EXPECT().Capabilities().Return(entities.ProviderCapabilities{StatusQueries: true})
		h.provider.EXPECT().QueryStatus(gomock.Any(), "MP-123").Return(entities.CanonicalPaymentResult{
			AmountCents: 57500, Status: entities.TransactionCompleted,
		}, nil)

		res, err := h.payments.Sync(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Equal(t, entities.InvoiceStatusPaid, res.InvoiceStatus)
	})

	t.Run("provider without status queries", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})
		inv := h.sent(t, "svc-1")
		tx := h.initiate(t, inv, "CT-1", 0)

		h.provider.EXPECT().Capabilities().Return(entities.ProviderCapabilities{Webhooks: true})

		_, err := h.payments.Sync(ctx, tx.ID)
		assert.ErrorIs(t, err, entities.ErrNotSupported)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		h := newHarness(t, ctrl, InvoiceCollaborators{})

		_, err := h.payments.Sync(ctx, "tx-404")
		assert.ErrorIs(t, err, entities.ErrNotFound)
	})
}

func TestPaymentUseCase_ListForInvoice(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})
	ctx := context.Background()

	_, err := h.payments.ListForInvoice(ctx, "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	inv := h.sent(t, "svc-1")
	h.initiate(t, inv, "CT-1", 10000)
	h.initiate(t, inv, "CT-2", 10000)
	txs, err := h.payments.ListForInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
