package request

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
)

func TestListInvoicesQuery_ToFilter(t *testing.T) {
	f, err := ListInvoicesQuery{CustomerID: " cust-1 ", Status: "Sent", Limit: 10}.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, "cust-1", f.CustomerID)
	assert.Equal(t, entities.InvoiceStatusSent, f.Status)
	assert.Equal(t, 10, f.Limit)

	_, err = ListInvoicesQuery{Status: "settled"}.ToFilter()
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestInitiatePaymentRequest_ToUseCase(t *testing.T) {
	amount := decimal.RequireFromString("575.01")
	req, err := InitiatePaymentRequest{Provider: " NetCash ", Amount: &amount}.ToUseCase("inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", req.InvoiceID)
	assert.Equal(t, entities.ProviderNetCash, req.Provider)
	assert.Equal(t, money.Cents(57501), req.AmountCents)

	req, err = InitiatePaymentRequest{}.ToUseCase("inv-1")
	require.NoError(t, err)
	assert.Zero(t, req.AmountCents)
	assert.Empty(t, req.Provider)

	for _, raw := range []string{"0", "-5", "10.001"} {
		bad := decimal.RequireFromString(raw)
		_, err := InitiatePaymentRequest{Amount: &bad}.ToUseCase("inv-1")
		assert.ErrorIs(t, err, entities.ErrValidation, raw)
	}
}

func TestBillingRunRequest_ToEntity(t *testing.T) {
	got := BillingRunRequest{BillingDay: 25, Period: " 2026-03 ", SkipCRMSync: true}.ToEntity("ops@circletel")
	assert.Equal(t, entities.BillingRunRequest{BillingDay: 25, Period: "2026-03", SkipCRMSync: true, Actor: "ops@circletel"}, got)
}

func TestReasonAndRefundRequests(t *testing.T) {
	assert.Equal(t, "", ReasonRequest{Reason: "   "}.ResolveReason())
	assert.Equal(t, "duplicate", ReasonRequest{Reason: " duplicate "}.ResolveReason())

	r := RefundRequest{Reason: " service never activated ", Manual: true}.ToUseCase()
	assert.Equal(t, "service never activated", r.Reason)
	assert.True(t, r.Manual)

	opts := SendInvoiceRequest{InitiatePayment: true, Provider: "MercadoPago"}.ToUseCase()
	assert.True(t, opts.InitiatePayment)
	assert.Equal(t, entities.ProviderMercadoPago, opts.Provider)
}
