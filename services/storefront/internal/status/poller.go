package status

import (
	"context"
	"time"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/pkg/metrics"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/events"
)

// Значения по умолчанию.
const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 60
)

// Backend — чтение статуса заказа. Запрос без побочных эффектов.
type Backend interface {
	OrderStatus(ctx context.Context, token, orderID string) (backend.StatusReport, error)
}

// EventPublisher — события итогов опроса.
type EventPublisher interface {
	StatusResolved(ctx context.Context, evt events.StatusResolved)
}

// Snapshot — состояние заказа в момент опроса.
type Snapshot struct {
	OrderID       string         `json:"orderId"`
	State         domain.UIState `json:"state"`
	Message       string         `json:"message"`
	Attempt       int            `json:"attempt"`
	Terminal      bool           `json:"terminal"`
	CanRetry      bool           `json:"canRetry"`
	PaymentStatus string         `json:"paymentStatus,omitempty"`
	OrderStatus   string         `json:"orderStatus,omitempty"`
	Order         *domain.Order  `json:"order,omitempty"`
}

// Config — настройки Poller.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	Support     string
}

// Poller опрашивает статус заказа.
//
// Запросы строго последовательны: следующий планируется только после
// обработки ответа на предыдущий, интервал — минимальная пауза между ними.
type Poller struct {
	backend Backend
	events  EventPublisher
	cfg     Config
}

// NewPoller создаёт Poller. events может быть nil.
func NewPoller(b Backend, ev EventPublisher, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Poller{backend: b, events: ev, cfg: cfg}
}

// Check выполняет один запрос статуса. Повторные вызовы для одного заказа
// без изменений на backend дают одно и то же состояние.
func (p *Poller) Check(ctx context.Context, token, orderID string) (Snapshot, error) {
	metrics.StatusPollAttempts.Inc()

	report, err := p.backend.OrderStatus(ctx, token, orderID)
	if err != nil {
		return Snapshot{}, err
	}

	state := MapStatus(report.PaymentStatus, report.OrderStatus)
	order := report.Order

	return Snapshot{
		OrderID:       orderID,
		State:         state,
		Message:       stateMessage(state, p.cfg.Support),
		Terminal:      state.IsTerminal(),
		CanRetry:      state.CanRetryFulfillment(),
		PaymentStatus: report.PaymentStatus,
		OrderStatus:   report.OrderStatus,
		Order:         &order,
	}, nil
}

// Run опрашивает статус до терминального состояния, исчерпания попыток
// или отмены ctx. onChange вызывается при каждой смене состояния, включая
// начальное VERIFYING и итоговое. Возвращает итоговый снимок.
func (p *Poller) Run(ctx context.Context, token, orderID string, onChange func(Snapshot)) Snapshot {
	ctx = logger.WithOrderID(ctx, orderID)
	log := logger.FromContext(ctx)

	if onChange == nil {
		onChange = func(Snapshot) {}
	}

	current := Snapshot{
		OrderID: orderID,
		State:   domain.UIStateVerifying,
		Message: stateMessage(domain.UIStateVerifying, p.cfg.Support),
	}
	onChange(current)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && !p.wait(ctx) {
			return p.cancelled(ctx, current)
		}
		if ctx.Err() != nil {
			return p.cancelled(ctx, current)
		}

		next, err := p.Check(ctx, token, orderID)
		if err != nil {
			if ctx.Err() != nil {
				return p.cancelled(ctx, current)
			}
			lastErr = err
			current.Attempt = attempt
			log.Warn().Err(err).Int("attempt", attempt).Msg("Ошибка запроса статуса заказа")

			if backend.IsUnauthorized(err) {
				current.State = domain.UIStateFailed
				current.Terminal = true
				current.Message = domain.ErrAuthRequired.Error()
				onChange(current)
				return p.finish(ctx, current)
			}
			continue
		}
		lastErr = nil
		next.Attempt = attempt

		if current.State.Regresses(next.State) {
			log.Debug().
				Str("state", string(current.State)).
				Str("received", string(next.State)).
				Msg("Запоздавший статус проигнорирован")
			current.Attempt = attempt
			continue
		}

		changed := next.State != current.State
		current = next
		if changed {
			log.Info().
				Str("state", string(current.State)).
				Int("attempt", attempt).
				Msg("Состояние заказа изменилось")
			onChange(current)
		}

		if current.Terminal {
			return p.finish(ctx, current)
		}
	}

	current.State = domain.UIStateFailed
	current.Terminal = true
	current.CanRetry = false
	current.Message = domain.MsgCheckOrders
	if lastErr != nil {
		current.Message = domain.MsgTryAgain
	}
	log.Warn().Int("attempts", p.cfg.MaxAttempts).Msg("Попытки опроса статуса исчерпаны")
	onChange(current)

	return p.finish(ctx, current)
}

// wait ждёт интервал; false — ctx отменён.
func (p *Poller) wait(ctx context.Context) bool {
	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Poller) cancelled(ctx context.Context, current Snapshot) Snapshot {
	current.State = domain.UIStateCancelled
	current.Terminal = true
	current.CanRetry = false
	current.Message = stateMessage(domain.UIStateCancelled, p.cfg.Support)

	logger.FromContext(ctx).Debug().Int("attempt", current.Attempt).Msg("Опрос статуса остановлен")
	metrics.RecordPollOutcome(string(current.State))
	return current
}

func (p *Poller) finish(ctx context.Context, current Snapshot) Snapshot {
	metrics.RecordPollOutcome(string(current.State))

	if p.events != nil {
		p.events.StatusResolved(ctx, events.StatusResolved{
			OrderID:  current.OrderID,
			State:    current.State,
			Attempts: current.Attempt,
		})
	}
	return current
}
