package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w, nil)

	err := p.Publish(context.Background(), "inv-1", map[string]string{"event": "invoice.sent"})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "inv-1", string(w.msgs[0].Key))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &body))
	assert.Equal(t, "invoice.sent", body["event"])
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisherWithWriter(w, nil)

	err := p.Publish(context.Background(), "inv-1", map[string]string{})
	assert.ErrorContains(t, err, "broker down")

	err = p.Publish(context.Background(), "inv-1", make(chan int))
	assert.Error(t, err)
}
