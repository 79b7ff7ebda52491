package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/domain/money"
)

func TestMercadoPago_VerifyWebhookSignature(t *testing.T) {
	g := &MercadoPagoGateway{settings: MercadoPagoSettings{WebhookSecret: "mp-secret"}}
	body := []byte(`{"type":"payment","action":"payment.updated","data":{"id":"123456"}}`)
	v1 := signHex("mp-secret", []byte("id:123456;request-id:req-1;ts:1704908010;"))

	assert.True(t, g.VerifyWebhookSignature(body, map[string]string{
		"x-signature":  "ts=1704908010,v1=" + v1,
		"x-request-id": "req-1",
	}))
	assert.False(t, g.VerifyWebhookSignature(body, map[string]string{
		"x-signature":  "ts=1704908011,v1=" + v1,
		"x-request-id": "req-1",
	}))
	assert.False(t, g.VerifyWebhookSignature(body, map[string]string{"x-request-id": "req-1"}))

	numeric := []byte(`{"type":"payment","data":{"id":123456}}`)
	assert.True(t, g.VerifyWebhookSignature(numeric, map[string]string{
		"x-signature":  "ts=1704908010,v1=" + v1,
		"x-request-id": "req-1",
	}))

	unsigned := &MercadoPagoGateway{}
	assert.False(t, unsigned.VerifyWebhookSignature(body, map[string]string{
		"x-signature":  "ts=1704908010,v1=" + v1,
		"x-request-id": "req-1",
	}))
}

func TestMercadoPago_StatusMapping(t *testing.T) {
	tests := map[string]entities.TransactionStatus{
		"approved":     entities.TransactionCompleted,
		"rejected":     entities.TransactionFailed,
		"cancelled":    entities.TransactionFailed,
		"refunded":     entities.TransactionRefunded,
		"charged_back": entities.TransactionRefunded,
		"in_process":   entities.TransactionPending,
		"pending":      entities.TransactionPending,
	}
	for in, want := range tests {
		assert.Equal(t, want, mercadoPagoStatus(in), in)
	}
}

func TestMercadoPago_AmountConversion(t *testing.T) {
	assert.Equal(t, 575.0, toMercadoPago(57500))
	assert.Equal(t, money.Cents(57501), fromMercadoPago(575.01))
	assert.Equal(t, money.Cents(1608), fromMercadoPago(16.08))
}
