package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

type published struct {
	eventType string
	key       string
	value     []byte
	extra     map[string]string
}

// MockPublisher — мок для Publisher.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error
	sent        []published
}

func (m *MockPublisher) Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error {
	m.sent = append(m.sent, published{eventType: eventType, key: string(key), value: value, extra: extra})
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, eventType, key, value, extra)
	}
	return nil
}

func TestOrderEvents_OrderCreated(t *testing.T) {
	pub := &MockPublisher{}
	ev := NewOrderEvents(pub)

	ev.OrderCreated(context.Background(), OrderCreated{
		OrderID:       "ord-1",
		UserID:        "u-1",
		PaymentMethod: domain.PaymentMethodUPI,
		Amount:        decimal.NewFromInt(67),
	})

	require.Len(t, pub.sent, 1)
	assert.Equal(t, EventOrderCreated, pub.sent[0].eventType)
	assert.Equal(t, "ord-1", pub.sent[0].key)
	assert.Equal(t, "upi", pub.sent[0].extra["payment_method"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.sent[0].value, &body))
	assert.Equal(t, "67", body["amount"])
	assert.NotEmpty(t, body["createdAt"])
}

func TestOrderEvents_StatusResolved_ContextCancelled(t *testing.T) {
	var deadlineSet bool
	pub := &MockPublisher{
		PublishFunc: func(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error {
			_, deadlineSet = ctx.Deadline()
			return ctx.Err()
		},
	}
	ev := NewOrderEvents(pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev.StatusResolved(ctx, StatusResolved{OrderID: "ord-1", State: domain.UIStateCompleted, Attempts: 4})

	require.Len(t, pub.sent, 1)
	assert.True(t, deadlineSet)
	assert.Equal(t, "COMPLETED", pub.sent[0].extra["state"])
}

func TestOrderEvents_Disabled(t *testing.T) {
	var ev *OrderEvents
	assert.NotPanics(t, func() {
		ev.OrderCreated(context.Background(), OrderCreated{OrderID: "x"})
	})

	pub := &MockPublisher{PublishFunc: func(context.Context, string, []byte, []byte, map[string]string) error {
		return errors.New("broker down")
	}}
	assert.NotPanics(t, func() {
		NewOrderEvents(pub).StatusResolved(context.Background(), StatusResolved{OrderID: "x"})
	})
}
