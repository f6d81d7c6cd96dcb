package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/pkg/logger"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func headerMap(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestProducer_PublishAddsTraceHeaders(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "orders")

	ctx := logger.NewContextWithIDs(context.Background(), "trace-1", "corr-1")
	err := p.Publish(ctx, "order.payment.resolved", []byte("ORD-1"), []byte(`{}`), map[string]string{"state": "COMPLETED"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	h := headerMap(w.messages[0])
	assert.Equal(t, "trace-1", h[HeaderTraceID])
	assert.Equal(t, "corr-1", h[HeaderCorrelationID])
	assert.Equal(t, "order.payment.resolved", h[HeaderEventType])
	assert.Equal(t, "COMPLETED", h["state"])
	assert.NotEmpty(t, h[HeaderTimestamp])
	assert.Equal(t, "ORD-1", string(w.messages[0].Key))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newProducer(w, "orders")

	err := p.Publish(context.Background(), "x", nil, nil, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка отправки в Kafka")
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(Config{Topic: "t"})
	assert.Error(t, err)

	_, err = NewProducer(Config{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	p, err := NewProducer(Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
