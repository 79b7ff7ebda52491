package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase/interfaces"
	mock_interfaces "circletel_billing/internal/usecase/interfaces/mocks"
)

func TestInvoiceUseCase_SendAssignsNumberAndRunsSideEffects(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pdf := mock_interfaces.NewMockIPDFGenerator(ctrl)
	notifier := mock_interfaces.NewMockINotifier(ctrl)
	events := mock_interfaces.NewMockIEventPublisher(ctrl)
	h := newHarness(t, ctrl, InvoiceCollaborators{PDF: pdf, Notifier: notifier, Events: events})

	inv := h.draft(t, "svc-1")
	pdf.EXPECT().GenerateInvoicePDF(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, in entities.Invoice) (string, error) {
		assert.Equal(t, "INV-2026-001", in.InvoiceNumber)
		return "https://docs.circletel.co.za/invoices/INV-2026-001.pdf", nil
	})
	notifier.EXPECT().SendInvoice(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, n interfaces.InvoiceNotification) (bool, error) {
		assert.Equal(t, "thandi@example.co.za", n.CustomerEmail)
		assert.Equal(t, entities.InvoiceStatusSent, n.Invoice.Status)
		return true, nil
	})
	events.EXPECT().Publish(gomock.Any(), inv.ID, gomock.Any()).Return(nil)

	ctx := WithActor(context.Background(), "admin@circletel.co.za")
	res, err := h.invoices.Send(ctx, inv.ID, SendOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.True(t, res.PDFGenerated)
	assert.True(t, res.NotificationDelivered)
	assert.Equal(t, entities.InvoiceStatusSent, res.Invoice.Status)
	assert.Equal(t, "INV-2026-001", res.Invoice.InvoiceNumber)
	assert.Equal(t, "https://docs.circletel.co.za/invoices/INV-2026-001.pdf", res.Invoice.PDFURL)

	trail, err := h.invoices.AuditTrail(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, entities.AuditInvoiceCreated, trail[0].Action)
	assert.Equal(t, entities.AuditInvoiceSent, trail[1].Action)
	assert.Equal(t, "admin@circletel.co.za", trail[1].Actor)
	assert.Equal(t, entities.AuditInvoicePDFAttached, trail[2].Action)

	var after entities.Invoice
	require.NoError(t, json.Unmarshal(trail[1].After, &after))
	assert.Equal(t, "INV-2026-001", after.InvoiceNumber)
}

func TestInvoiceUseCase_SendTwiceIsConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	inv := h.sent(t, "svc-1")
	_, err := h.invoices.Send(context.Background(), inv.ID, SendOptions{})
	assert.ErrorIs(t, err, entities.ErrInvalidStateTransition)
	assert.ErrorIs(t, err, entities.ErrConflict)
	assert.Equal(t, entities.ClassConflict, entities.Classify(err))

	second := h.sent(t, "svc-2")
	assert.Equal(t, "INV-2026-002", second.InvoiceNumber)
}

func TestInvoiceUseCase_PDFFailureDoesNotBlockSend(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	pdf := mock_interfaces.NewMockIPDFGenerator(ctrl)
	notifier := mock_interfaces.NewMockINotifier(ctrl)
	h := newHarness(t, ctrl, InvoiceCollaborators{PDF: pdf, Notifier: notifier})

	inv := h.draft(t, "svc-1")
	pdf.EXPECT().GenerateInvoicePDF(gomock.Any(), gomock.Any()).Return("", errors.New("renderer unavailable"))
	notifier.EXPECT().SendInvoice(gomock.Any(), gomock.Any()).Return(false, errors.New("smtp timeout"))

	res, err := h.invoices.Send(context.Background(), inv.ID, SendOptions{})
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusSent, res.Invoice.Status)
	assert.False(t, res.PDFGenerated)
	assert.False(t, res.NotificationDelivered)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "renderer unavailable")

	stored, err := h.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusSent, stored.Status)
	assert.Empty(t, stored.PDFURL)
}

func TestInvoiceUseCase_SendWithPaymentLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	inv := h.draft(t, "svc-1")
	h.provider.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req interfaces.PaymentInitiation) (interfaces.PaymentInitiationResult, error) {
		assert.Equal(t, money.Cents(57500), req.AmountCents)
		assert.Equal(t, "INV-2026-001", req.InvoiceNumber)
		return interfaces.PaymentInitiationResult{PaymentURL: "https://paynow.netcash.co.za/x", ProviderReference: "CT-INV-2026-001-1"}, nil
	})

	res, err := h.invoices.Send(context.Background(), inv.ID, SendOptions{InitiatePayment: true})
	require.NoError(t, err)
	assert.Equal(t, "https://paynow.netcash.co.za/x", res.PaymentURL)

	txs, err := h.payments.ListForInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entities.TransactionInitiated, txs[0].Status)
}

func TestInvoiceUseCase_VoidSentInvoiceFailsLoudly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	inv := h.sent(t, "svc-1")
	_, err := h.invoices.Void(context.Background(), inv.ID, "customer disputes")
	require.Error(t, err)

	var transition *entities.InvalidStateTransitionError
	require.True(t, errors.As(err, &transition))
	assert.Equal(t, entities.InvoiceStatusSent, transition.From)
	assert.Equal(t, entities.InvoiceStatusVoid, transition.To)
	assert.Equal(t, "Only draft invoices can be voided", transition.Guard)

	stored, err := h.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusSent, stored.Status)
}

func TestInvoiceUseCase_VoidAndCancelDrafts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})
	ctx := context.Background()

	inv := h.draft(t, "svc-1")
	_, err := h.invoices.Void(ctx, inv.ID, " ")
	assert.ErrorIs(t, err, entities.ErrValidation)

	voided, err := h.invoices.Void(ctx, inv.ID, "duplicate order")
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusVoid, voided.Status)
	assert.Equal(t, "duplicate order", voided.VoidReason)
	assert.Empty(t, voided.InvoiceNumber)

	_, err = h.invoices.Send(ctx, inv.ID, SendOptions{})
	assert.ErrorIs(t, err, entities.ErrInvalidStateTransition)

	other := h.draft(t, "svc-2")
	cancelled, err := h.invoices.Cancel(ctx, other.ID, "service never installed")
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusCancelled, cancelled.Status)

	_, err = h.invoices.Void(ctx, "missing", "x")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestInvoiceUseCase_ManualRefund(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})
	ctx := context.Background()

	inv := h.paid(t, "svc-1", "CT-1")
	require.Equal(t, entities.InvoiceStatusPaid, inv.Status)

	_, err := h.invoices.Refund(ctx, inv.ID, RefundRequest{Manual: true})
	assert.ErrorIs(t, err, entities.ErrValidation)

	res, err := h.invoices.Refund(ctx, inv.ID, RefundRequest{Reason: "service cancelled within cooling-off", Manual: true})
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusRefunded, res.Invoice.Status)
	require.Len(t, res.Refunds, 1)
	assert.Equal(t, money.Cents(-57500), res.Refunds[0].AmountCents)
	assert.Equal(t, "CT-1-R", res.Refunds[0].ProviderReference)
	assert.Equal(t, entities.TransactionKindRefund, res.Refunds[0].Kind)

	orig, err := h.store.Transactions().GetByProviderReference(ctx, entities.ProviderNetCash, "CT-1")
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionRefunded, orig.Status)

	_, err = h.invoices.Refund(ctx, inv.ID, RefundRequest{Reason: "again", Manual: true})
	assert.ErrorIs(t, err, entities.ErrInvalidStateTransition)
}

func TestInvoiceUseCase_GatewayRefund(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})
	ctx := context.Background()

	inv := h.paid(t, "svc-1", "CT-9")

	h.provider.EXPECT().Capabilities().Return(entities.ProviderCapabilities{Refunds: true})
	h.provider.EXPECT().Refund(gomock.Any(), "CT-9", money.Cents(57500)).
		Return(interfaces.RefundResult{ProviderReference: "RF-77", AmountCents: 57500, Status: entities.TransactionCompleted}, nil)

	res, err := h.invoices.Refund(ctx, inv.ID, RefundRequest{Reason: "billing error"})
	require.NoError(t, err)
	require.Len(t, res.Refunds, 1)
	assert.Equal(t, "RF-77", res.Refunds[0].ProviderReference)
	assert.Equal(t, money.Cents(-57500), res.Refunds[0].AmountCents)
}

func TestInvoiceUseCase_RefundUnsupportedByGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	inv := h.paid(t, "svc-1", "CT-2")
	h.provider.EXPECT().Capabilities().Return(entities.ProviderCapabilities{Webhooks: true})

	_, err := h.invoices.Refund(context.Background(), inv.ID, RefundRequest{Reason: "billing error"})
	assert.ErrorIs(t, err, entities.ErrNotSupported)

	stored, err := h.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusPaid, stored.Status)
}

func TestInvoiceUseCase_RefundRequiresPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	inv := h.sent(t, "svc-1")
	_, err := h.invoices.Refund(context.Background(), inv.ID, RefundRequest{Reason: "x", Manual: true})
	assert.ErrorIs(t, err, entities.ErrInvalidStateTransition)
}

func TestInvoiceUseCase_SweepOverdue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})
	ctx := context.Background()

	unpaid := h.sent(t, "svc-1")
	settled := h.paid(t, "svc-2", "CT-2")

	res, err := h.invoices.SweepOverdue(ctx, time.Date(2026, 2, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Marked)

	res, err = h.invoices.SweepOverdue(ctx, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Marked)
	assert.Equal(t, []string{unpaid.ID}, res.InvoiceIDs)

	stored, err := h.invoices.GetByID(ctx, unpaid.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusOverdue, stored.Status)

	paid, err := h.invoices.GetByID(ctx, settled.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.InvoiceStatusPaid, paid.Status)

	res, err = h.invoices.SweepOverdue(ctx, time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Marked)
}

func TestInvoiceUseCase_ListValidatesStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	h := newHarness(t, ctrl, InvoiceCollaborators{})

	_, err := h.invoices.List(context.Background(), entities.InvoiceFilter{Status: "archived"})
	assert.ErrorIs(t, err, entities.ErrValidation)

	h.draft(t, "svc-1")
	h.sent(t, "svc-2")
	list, err := h.invoices.List(context.Background(), entities.InvoiceFilter{Status: entities.InvoiceStatusSent})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "svc-2", list[0].ServiceID)
}
