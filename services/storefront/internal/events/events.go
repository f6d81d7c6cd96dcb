// Package events публикует события жизненного цикла заказа в Kafka.
// Публикация не влияет на покупку: ошибки только логируются.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Типы событий.
const (
	EventOrderCreated   = "storefront.order.created"
	EventStatusResolved = "storefront.order.status_resolved"
)

const publishTimeout = 2 * time.Second

// Publisher — отправка сообщения в брокер (реализуется pkg/kafka.Producer).
type Publisher interface {
	Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error
}

// OrderCreated — заказ принят backend.
type OrderCreated struct {
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	GameID        string               `json:"gameId"`
	PackageID     string               `json:"packageId"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Amount        decimal.Decimal      `json:"amount"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// StatusResolved — опрос статуса завершился терминальным состоянием.
type StatusResolved struct {
	OrderID    string         `json:"orderId"`
	State      domain.UIState `json:"state"`
	Attempts   int            `json:"attempts"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

// OrderEvents публикует события заказов. Нулевой указатель — публикация выключена.
type OrderEvents struct {
	publisher Publisher
}

// NewOrderEvents создаёт OrderEvents.
func NewOrderEvents(p Publisher) *OrderEvents {
	return &OrderEvents{publisher: p}
}

// OrderCreated публикует событие создания заказа.
func (e *OrderEvents) OrderCreated(ctx context.Context, evt OrderCreated) {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	e.publish(ctx, EventOrderCreated, evt.OrderID, evt, map[string]string{
		"payment_method": string(evt.PaymentMethod),
	})
}

// StatusResolved публикует итог опроса статуса.
func (e *OrderEvents) StatusResolved(ctx context.Context, evt StatusResolved) {
	if evt.ResolvedAt.IsZero() {
		evt.ResolvedAt = time.Now().UTC()
	}
	e.publish(ctx, EventStatusResolved, evt.OrderID, evt, map[string]string{
		"state": string(evt.State),
	})
}

func (e *OrderEvents) publish(ctx context.Context, eventType, key string, payload any, extra map[string]string) {
	if e == nil || e.publisher == nil {
		return
	}

	log := logger.FromContext(ctx)

	value, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Ошибка сериализации события")
		return
	}

	// Запрос покупателя мог уже завершиться, событие всё равно отправляем.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(pctx, eventType, []byte(key), value, extra); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Событие заказа не опубликовано")
	}
}
