package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// ctxKey — приватный тип ключей контекста, исключает коллизии с другими пакетами.
type ctxKey string

const (
	traceIDKey       ctxKey = "trace_id"
	correlationIDKey ctxKey = "correlation_id"
	userIDKey        ctxKey = "user_id"
	orderIDKey       ctxKey = "order_id"
	loggerKey        ctxKey = "logger"
)

// contextFields — поля, которые FromContext переносит из контекста в лог.
var contextFields = []ctxKey{traceIDKey, correlationIDKey, userIDKey, orderIDKey}

// WithTraceID добавляет trace_id в контекст.
// Trace ID генерируется на входе в gateway и уходит в backend заголовком.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext извлекает trace_id ("" если не задан).
func TraceIDFromContext(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// WithCorrelationID добавляет correlation_id в контекст.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext извлекает correlation_id ("" если не задан).
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithUserID добавляет user_id аутентифицированного покупателя.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext извлекает user_id ("" если не задан).
func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

// WithOrderID добавляет order_id — удобно для логов поллера статуса.
func WithOrderID(ctx context.Context, orderID string) context.Context {
	return context.WithValue(ctx, orderIDKey, orderID)
}

// OrderIDFromContext извлекает order_id ("" если не задан).
func OrderIDFromContext(ctx context.Context) string {
	return stringValue(ctx, orderIDKey)
}

// WithLogger кладёт настроенный логгер в контекст.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext возвращает логгер из контекста (или глобальный) и дописывает
// trace_id, correlation_id, user_id, order_id, если они есть в контексте.
//
// Возвращается указатель: методы уровня у zerolog.Logger с pointer receiver,
// поэтому вызов можно продолжать цепочкой.
//
//	logger.FromContext(ctx).Info().Msg("Статус заказа получен")
func FromContext(ctx context.Context) *zerolog.Logger {
	l := log
	if ctxLogger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		l = ctxLogger
	}

	var lctx zerolog.Context
	touched := false
	for _, key := range contextFields {
		v := stringValue(ctx, key)
		if v == "" {
			continue
		}
		if !touched {
			lctx = l.With()
			touched = true
		}
		lctx = lctx.Str(string(key), v)
	}

	if touched {
		l = lctx.Logger()
	}
	return &l
}

// NewContextWithIDs добавляет trace_id и correlation_id одной операцией.
func NewContextWithIDs(ctx context.Context, traceID, correlationID string) context.Context {
	if traceID != "" {
		ctx = WithTraceID(ctx, traceID)
	}
	if correlationID != "" {
		ctx = WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

func stringValue(ctx context.Context, key ctxKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
