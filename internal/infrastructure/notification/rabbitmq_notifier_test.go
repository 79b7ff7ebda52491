package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circletel_billing/internal/domain/entities"
	"circletel_billing/internal/usecase/interfaces"
)

type fakeChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestRabbitMQNotifier_SendInvoice(t *testing.T) {
	chn := &fakeChannel{}
	n := NewRabbitMQNotifierWithChannel(chn, "invoice-notifications", nil)

	delivered, err := n.SendInvoice(context.Background(), interfaces.InvoiceNotification{
		Invoice:       entities.Invoice{ID: "inv-1", InvoiceNumber: "INV-2026-001"},
		CustomerEmail: "thandi@example.co.za",
		PaymentURL:    "https://paynow.netcash.co.za/site/paynow.aspx",
	})
	require.NoError(t, err)
	assert.True(t, delivered)
	assert.Equal(t, "invoice-notifications", chn.key)
	require.Len(t, chn.msgs, 1)
	assert.Equal(t, amqp.Persistent, chn.msgs[0].DeliveryMode)

	var body interfaces.InvoiceNotification
	require.NoError(t, json.Unmarshal(chn.msgs[0].Body, &body))
	assert.Equal(t, "INV-2026-001", body.Invoice.InvoiceNumber)
}

func TestRabbitMQNotifier_Failures(t *testing.T) {
	n := NewRabbitMQNotifierWithChannel(&fakeChannel{err: errors.New("channel closed")}, "q", nil)

	delivered, err := n.SendInvoice(context.Background(), interfaces.InvoiceNotification{
		Invoice: entities.Invoice{ID: "inv-1"}, CustomerEmail: "a@b.co.za",
	})
	assert.False(t, delivered)
	assert.ErrorContains(t, err, "channel closed")

	delivered, err = n.SendInvoice(context.Background(), interfaces.InvoiceNotification{Invoice: entities.Invoice{ID: "inv-2"}})
	assert.False(t, delivered)
	assert.Error(t, err)
}
