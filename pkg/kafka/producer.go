package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/topup-storefront/pkg/logger"
)

// messageWriter — минимальная часть *kafka.Writer, нужная Producer.
// Позволяет подменить writer в тестах.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer отправляет сообщения в Kafka с заголовками трассировки.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer создаёт Producer поверх kafka.Writer.
func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("не указаны брокеры Kafka")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("не указан топик Kafka")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{}, // события одного заказа — в одну партицию
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Создан Kafka Producer")

	return newProducer(writer, cfg.Topic), nil
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// Publish отправляет сообщение в топик по умолчанию.
// eventType попадает в заголовок event_type; extra — дополнительные заголовки.
func (p *Producer) Publish(ctx context.Context, eventType string, key, value []byte, extra map[string]string) error {
	msg := kafka.Message{
		Key:     key,
		Value:   value,
		Headers: p.buildHeaders(ctx, eventType, extra),
		Time:    time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("topic", p.topic).
			Str("event_type", eventType).
			Str("key", string(key)).
			Msg("Ошибка отправки сообщения в Kafka")
		return fmt.Errorf("ошибка отправки в Kafka: %w", err)
	}

	logger.FromContext(ctx).Debug().
		Str("topic", p.topic).
		Str("event_type", eventType).
		Str("key", string(key)).
		Msg("Сообщение отправлено в Kafka")

	return nil
}

// buildHeaders собирает заголовки из контекста и extra.
func (p *Producer) buildHeaders(ctx context.Context, eventType string, extra map[string]string) []kafka.Header {
	headers := make([]kafka.Header, 0, 4+len(extra))

	if traceID := TraceIDFromContext(ctx); traceID != "" {
		headers = append(headers, kafka.Header{Key: HeaderTraceID, Value: []byte(traceID)})
	}
	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		headers = append(headers, kafka.Header{Key: HeaderCorrelationID, Value: []byte(correlationID)})
	}
	if eventType != "" {
		headers = append(headers, kafka.Header{Key: HeaderEventType, Value: []byte(eventType)})
	}

	headers = append(headers, kafka.Header{
		Key:   HeaderTimestamp,
		Value: []byte(time.Now().UTC().Format(time.RFC3339Nano)),
	})

	for k, v := range extra {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return headers
}

// Close закрывает writer. Вызывается при завершении приложения.
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		logger.Error().Err(err).Msg("Ошибка при закрытии Kafka Producer")
		return fmt.Errorf("ошибка закрытия producer: %w", err)
	}

	logger.Info().Msg("Kafka Producer закрыт")
	return nil
}
