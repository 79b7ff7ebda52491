package events

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"

	"circletel_billing/internal/logger"
	"circletel_billing/internal/usecase/interfaces"
)

// Writer is the subset of kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher emits invoice lifecycle events as JSON keyed by invoice ID.
type KafkaPublisher struct {
	writer Writer
	log    *logger.Logger
}

var _ interfaces.IEventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(w, log)
}

// NewKafkaPublisherWithWriter allows injecting a test writer.
func NewKafkaPublisherWithWriter(w Writer, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, log: logger.OrNop(log).Named("events")}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		p.log.Warnw("[events][kafka] write failed", "key", key, "err", err)
		return errors.Wrap(err, "write event")
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

var _ interfaces.IEventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: logger.OrNop(log).Named("events")}
}

func (p *LogPublisher) Publish(_ context.Context, key string, value interface{}) error {
	p.log.Debugw("[events][log] event", "key", key, "value", value)
	return nil
}
