// Package outbox реализует гарантированную доставку событий в Kafka.
// Событие сначала сохраняется в таблицу outbox, отдельный Worker
// отправляет его в Kafka и повторяет отправку при недоступности брокера.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/topup-storefront/pkg/logger"
)

// Outbox — запись в таблице outbox.
type Outbox struct {
	ID            string            // UUID записи
	EventType     string            // Тип события (order.created / order.status.resolved)
	MessageKey    string            // Ключ сообщения (order_id)
	Payload       []byte            // JSON payload
	Headers       map[string]string // Дополнительные заголовки Kafka
	TraceID       string            // trace_id запроса, породившего событие
	CorrelationID string
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil — не отправлена
	RetryCount    int
	LastError     *string
}

// HeadersJSON возвращает headers в формате JSON для БД.
func (o *Outbox) HeadersJSON() ([]byte, error) {
	if len(o.Headers) == 0 {
		return nil, nil
	}
	return json.Marshal(o.Headers)
}

// SetHeadersFromJSON устанавливает headers из JSON.
func (o *Outbox) SetHeadersFromJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &o.Headers)
}

// Publisher сохраняет события в outbox вместо прямой отправки в Kafka.
// Сигнатура Publish совпадает с kafka.Producer.
type Publisher struct {
	repo  Repository
	newID func() string
}

// NewPublisher создаёт Publisher поверх репозитория.
func NewPublisher(repo Repository) *Publisher {
	return &Publisher{repo: repo, newID: uuid.NewString}
}

// Publish записывает событие в outbox. trace_id и correlation_id запроса
// сохраняются вместе с событием и попадут в заголовки при отправке.
func (p *Publisher) Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error {
	record := &Outbox{
		ID:            p.newID(),
		EventType:     eventType,
		MessageKey:    string(key),
		Payload:       value,
		Headers:       extra,
		TraceID:       logger.TraceIDFromContext(ctx),
		CorrelationID: logger.CorrelationIDFromContext(ctx),
	}

	if err := p.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("ошибка записи события в outbox: %w", err)
	}
	return nil
}
