// Package kafka предоставляет обёртку над kafka-go для публикации событий.
// Producer автоматически проставляет trace_id, correlation_id и timestamp.
package kafka

import (
	"context"

	"example.com/topup-storefront/pkg/logger"
)

// Ключи заголовков сообщений.
const (
	// HeaderTraceID — идентификатор трассировки запроса.
	HeaderTraceID = "trace_id"

	// HeaderCorrelationID — идентификатор корреляции.
	HeaderCorrelationID = "correlation_id"

	// HeaderTimestamp — время формирования сообщения (RFC3339Nano, UTC).
	HeaderTimestamp = "timestamp"

	// HeaderEventType — тип события (например "order.payment.resolved").
	HeaderEventType = "event_type"
)

// Config содержит настройки подключения к Kafka.
type Config struct {
	// Brokers — адреса брокеров.
	Brokers []string

	// Topic — топик по умолчанию для Publish.
	Topic string
}

// TraceIDFromContext извлекает trace_id через pkg/logger.
func TraceIDFromContext(ctx context.Context) string {
	return logger.TraceIDFromContext(ctx)
}

// CorrelationIDFromContext извлекает correlation_id через pkg/logger.
func CorrelationIDFromContext(ctx context.Context) string {
	return logger.CorrelationIDFromContext(ctx)
}
