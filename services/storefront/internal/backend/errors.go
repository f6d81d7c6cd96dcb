package backend

import (
	"errors"
	"fmt"
	"net/http"

	"example.com/topup-storefront/pkg/circuitbreaker"
)

// ErrNetwork — транспортная ошибка: backend не ответил (таймаут, обрыв, breaker открыт).
var ErrNetwork = errors.New("backend недоступен")

// APIError — backend ответил, но с ошибкой (HTTP 4xx/5xx или success=false).
type APIError struct {
	StatusCode int
	Message    string // Сообщение backend как есть
	Body       []byte
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend вернул %d: %s", e.StatusCode, e.Message)
}

// AsAPIError извлекает APIError из цепочки.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized — backend отклонил токен.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusUnauthorized
}

// IsNotFound — backend ответил 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// isInfraFailure решает, учитывать ли ошибку в статистике circuit breaker.
// 4xx — бизнес-ошибки, breaker из-за них не открывается.
func isInfraFailure(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

// wrapBreakerError приводит отказ breaker к ErrNetwork.
func wrapBreakerError(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return err
}

// messageFromBody достаёт сообщение об ошибке из тела ответа.
func messageFromBody(body []byte, statusCode int) string {
	if root, err := Decode(body); err == nil {
		if msg := FirstString(root, "message", "error.message", "error", "msg", "data.message"); msg != "" {
			return msg
		}
	}
	if statusCode > 0 {
		return http.StatusText(statusCode)
	}
	return ""
}
