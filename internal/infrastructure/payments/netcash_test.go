package payments

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
	"circletel_billing/internal/usecase/interfaces"
)

func newTestNetCash(secret string) *NetCashProvider {
	p := NewNetCashProvider(NetCashSettings{
		ServiceKey:    "svc-key",
		PCIVaultKey:   "vault-key",
		WebhookSecret: secret,
		ReturnURL:     "https://www.circletel.co.za/payment/success",
	}, nil)
	p.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestNetCash_InitiatePayment(t *testing.T) {
	p := newTestNetCash("s3cret")

	res, err := p.InitiatePayment(context.Background(), interfaces.PaymentInitiation{
		InvoiceID:     "inv-1",
		InvoiceNumber: "INV-2026-001",
		CustomerEmail: "thandi@example.co.za",
		Description:   "HomeFibre 50Mbps - January 2026",
		AmountCents:   57500,
		Currency:      "ZAR",
	})
	require.NoError(t, err)
	assert.Equal(t, "CT-INV-2026-001-1767225600000", res.ProviderReference)
	assert.Equal(t, "57500", res.FormFields["p4"])
	assert.Equal(t, res.ProviderReference, res.FormFields["p2"])
	assert.Equal(t, res.ProviderReference, res.FormFields["m4"])
	assert.Equal(t, "svc-key", res.FormFields["m1"])
	assert.Equal(t, "N", res.FormFields["Budget"])

	u, err := url.Parse(res.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "paynow.netcash.co.za", u.Host)
	assert.Equal(t, "57500", u.Query().Get("p4"))

	_, err = p.InitiatePayment(context.Background(), interfaces.PaymentInitiation{InvoiceID: "inv-1", AmountCents: 100})
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestNetCash_VerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"Reference":"CT-1","Amount":"57500","Complete":"true","Result":"Success"}`)
	sig := signHex("s3cret", body)

	tests := []struct {
		name    string
		secret  string
		headers map[string]string
		want    bool
	}{
		{"primary header", "s3cret", map[string]string{"x-netcash-signature": sig}, true},
		{"fallback header", "s3cret", map[string]string{"x-signature": sig}, true},
		{"wrong signature", "s3cret", map[string]string{"x-netcash-signature": signHex("other", body)}, false},
		{"missing header", "s3cret", map[string]string{}, false},
		{"missing secret fails closed", "", map[string]string{"x-netcash-signature": sig}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newTestNetCash(tt.secret).VerifyWebhookSignature(body, tt.headers))
		})
	}
}

func TestNetCash_ParseWebhook(t *testing.T) {
	p := newTestNetCash("s3cret")
	ctx := context.Background()

	tests := []struct {
		name       string
		payload    string
		wantStatus entities.TransactionStatus
		wantAmount money.Cents
		wantReason string
	}{
		{"accepted json", `{"Reference":"CT-1","Amount":"57500","Complete":"true","TransactionAccepted":"true"}`, entities.TransactionCompleted, 57500, ""},
		{"failed form", "Reference=CT-1&Amount=57500&Complete=true&Result=Failed&Reason=Insufficient+funds", entities.TransactionFailed, 57500, "Insufficient funds"},
		{"cancelled", `{"Reference":"CT-1","Amount":"57500","Complete":"true","Result":"Cancelled"}`, entities.TransactionFailed, 57500, "Payment cancelled by user"},
		{"not complete", `{"Reference":"CT-1","Amount":"57500","Complete":"false","Result":"Success"}`, entities.TransactionPending, 57500, ""},
		{"m4 fallback", `{"m4":"CT-1","Amount":"100","Complete":"true","Result":"Success"}`, entities.TransactionCompleted, 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.ParseWebhook(ctx, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, entities.ProviderNetCash, res.Provider)
			assert.Equal(t, "CT-1", res.ProviderReference)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantAmount, res.AmountCents)
			assert.Equal(t, tt.wantReason, res.FailureReason)
		})
	}

	_, err := p.ParseWebhook(ctx, []byte(`{"Amount":"100"}`))
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = p.ParseWebhook(ctx, []byte(`{"Reference":"CT-1","Amount":"575.00"}`))
	assert.ErrorIs(t, err, entities.ErrValidation)
}

func TestNetCash_UnsupportedOperations(t *testing.T) {
	p := newTestNetCash("s3cret")
	assert.False(t, p.Capabilities().StatusQueries)
	assert.False(t, p.Capabilities().Refunds)

	_, err := p.QueryStatus(context.Background(), "CT-1")
	assert.ErrorIs(t, err, entities.ErrNotSupported)
	_, err = p.Refund(context.Background(), "CT-1", 100)
	assert.ErrorIs(t, err, entities.ErrNotSupported)
}
