package status

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/watchdog"
)

// RetryBackend — повтор выдачи на backend.
type RetryBackend interface {
	RetryFulfillment(ctx context.Context, token, idempotencyKey, orderID string) (string, error)
}

// RetryTrigger повторяет выдачу оплаченного заказа.
// Вызывается только по действию покупателя, автоматических повторов нет.
type RetryTrigger struct {
	backend RetryBackend
	poller  *Poller
	support string
	timeout time.Duration
	newKey  func() string
}

// NewRetryTrigger создаёт RetryTrigger.
func NewRetryTrigger(b RetryBackend, poller *Poller, support string, timeout time.Duration) *RetryTrigger {
	if timeout <= 0 {
		timeout = watchdog.DefaultTimeout
	}
	return &RetryTrigger{
		backend: b,
		poller:  poller,
		support: support,
		timeout: timeout,
		newKey:  uuid.NewString,
	}
}

// Retry проверяет текущее состояние заказа и запускает повтор выдачи.
// Успех переводит заказ в PROCESSING: вызывающий начинает опрос заново.
func (r *RetryTrigger) Retry(ctx context.Context, token, orderID string) (Snapshot, error) {
	ctx = logger.WithOrderID(ctx, orderID)
	log := logger.FromContext(ctx)

	current, err := r.poller.Check(ctx, token, orderID)
	if err != nil {
		return Snapshot{}, checkout.Surface(ctx, err, r.support)
	}
	if !current.State.CanRetryFulfillment() {
		return current, domain.ErrRetryNotAllowed
	}

	key := r.newKey()
	msg, err := watchdog.Run(ctx, r.timeout, func(ctx context.Context) (string, error) {
		return r.backend.RetryFulfillment(ctx, token, key, orderID)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Повтор выдачи не удался")
		if errors.Is(err, domain.ErrRequestTimeout) {
			return current, err
		}
		return current, checkout.Surface(ctx, err, r.support)
	}

	if msg == "" {
		msg = "Выдача запущена повторно."
	}
	log.Info().Msg("Повтор выдачи запущен")

	return Snapshot{
		OrderID: orderID,
		State:   domain.UIStateProcessing,
		Message: msg,
		Order:   current.Order,
	}, nil
}
