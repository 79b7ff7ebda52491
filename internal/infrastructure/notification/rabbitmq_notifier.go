package notification

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// Channel is the subset of *amqp.Channel the notifier uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQNotifier queues invoice notifications for the messaging service that renders and sends
// the email/SMS. Delivered means the broker accepted the message.
type RabbitMQNotifier struct {
	conn  *amqp.Connection
	queue string
	log   *logger.Logger

	mu  sync.Mutex
	chn Channel
}

var _ interfaces.INotifier = (*RabbitMQNotifier)(nil)

func NewRabbitMQNotifier(url, queue string, log *logger.Logger) (*RabbitMQNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	chn, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open rabbitmq channel")
	}
	if _, err := chn.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = chn.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	n := NewRabbitMQNotifierWithChannel(chn, queue, log)
	n.conn = conn
	return n, nil
}

// NewRabbitMQNotifierWithChannel allows injecting a test channel.
func NewRabbitMQNotifierWithChannel(chn Channel, queue string, log *logger.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{chn: chn, queue: queue, log: logger.OrNop(log).Named("notifier")}
}

func (n *RabbitMQNotifier) SendInvoice(ctx context.Context, msg interfaces.InvoiceNotification) (bool, error) {
	if msg.CustomerEmail == "" && msg.CustomerPhone == "" {
		return false, errors.Newf("invoice %s has no customer contact", msg.Invoice.ID)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return false, errors.Wrap(err, "marshal notification")
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.chn.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.Invoice.ID,
		Type:         "invoice.sent",
		Body:         body,
	})
	if err != nil {
		return false, errors.Wrap(err, "publish notification")
	}
	n.log.Infow("[notification][rabbitmq] queued", "invoice_id", msg.Invoice.ID, "queue", n.queue)
	return true, nil
}

func (n *RabbitMQNotifier) Close() error {
	if err := n.chn.Close(); err != nil {
		return err
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// LogNotifier records notifications without delivering them.
type LogNotifier struct {
	log *logger.Logger
}

var _ interfaces.INotifier = (*LogNotifier)(nil)

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log).Named("notifier")}
}

func (n *LogNotifier) SendInvoice(_ context.Context, msg interfaces.InvoiceNotification) (bool, error) {
	n.log.Infow("[notification][log] not delivered, no broker configured", "invoice_id", msg.Invoice.ID, "email", msg.CustomerEmail)
	return false, nil
}
