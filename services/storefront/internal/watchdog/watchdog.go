// Package watchdog ограничивает время пользовательских действий.
//
// Run возвращает ошибку таймаута по истечении срока, даже если запрос
// к backend ещё не завершился: покупатель не должен ждать бесконечно.
package watchdog

import (
	"context"
	"errors"
	"time"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// DefaultTimeout — срок пользовательского действия по умолчанию.
const DefaultTimeout = 30 * time.Second

// ErrTimeout — действие не уложилось в срок.
var ErrTimeout = domain.NewUserError(domain.ErrRequestTimeout, domain.MsgRequestTimeout)

// Run выполняет fn с таймаутом.
// Отмена родительского контекста возвращается как есть.
func Run[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)

	go func() {
		val, err := fn(wctx)
		done <- result{val: val, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil && expired(ctx, wctx) {
			return zero, ErrTimeout
		}
		return res.val, res.err
	case <-wctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		logger.FromContext(ctx).Warn().Dur("timeout", timeout).Msg("Действие не уложилось в срок")
		return zero, ErrTimeout
	}
}

// expired — сработал именно таймаут watchdog, а не отмена вызывающего.
func expired(parent, wctx context.Context) bool {
	return parent.Err() == nil && errors.Is(wctx.Err(), context.DeadlineExceeded)
}
