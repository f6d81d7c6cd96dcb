// Package circuitbreaker предоставляет Circuit Breaker для исходящих вызовов.
// Используется HTTP клиентом backend API: при серии инфраструктурных сбоев
// запросы отклоняются мгновенно, не дожидаясь таймаута.
//
// Состояния:
//   - Closed: нормальная работа, запросы проходят
//   - Open: backend недоступен, запросы отклоняются сразу
//   - Half-Open: пробный период, пропускаем ограниченное число запросов
//
// Использование:
//
//	cb := circuitbreaker.New("backend")
//	err := cb.Execute(func() error { return call() }, isInfraError)
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/topup-storefront/pkg/logger"
)

// ErrOpen возвращается, когда breaker отклонил вызов без выполнения.
var ErrOpen = errors.New("сервис временно недоступен (circuit breaker open)")

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // Макс. запросов в Half-Open (по умолчанию 1)
	Interval     time.Duration // Период сброса счётчиков в Closed
	Timeout      time.Duration // Время в Open до перехода в Half-Open
	FailureRatio float64       // Доля сбоев для перехода в Open
	MinRequests  uint32        // Мин. запросов для расчёта доли
}

// DefaultSettings возвращает настройки по умолчанию.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FailureClassifier решает, считается ли ошибка сбоем для breaker'а.
// Бизнес-ошибки (4xx от backend) не должны открывать breaker.
type FailureClassifier func(err error) bool

// Breaker — обёртка над gobreaker с логированием смены состояний.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// New создаёт Breaker с настройками по умолчанию.
func New(name string) *Breaker {
	return NewWithSettings(name, DefaultSettings())
}

// NewWithSettings создаёт Breaker с пользовательскими настройками.
func NewWithSettings(name string, s Settings) *Breaker {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= s.FailureRatio
		},

		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ — backend недоступен")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ — пробуем восстановить")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ — backend восстановлен")
			}
		},
	})

	return &Breaker{cb: cb, name: name}
}

// State возвращает текущее состояние breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// IsOpen — breaker отклоняет вызовы.
func (b *Breaker) IsOpen() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}

// Execute выполняет fn через breaker.
// Ошибка fn всегда возвращается вызывающему как есть; в статистику breaker'а
// попадает только если isFailure(err) == true (nil — любая ошибка сбой).
// Если breaker открыт, fn не вызывается и возвращается ErrOpen.
func (b *Breaker) Execute(fn func() error, isFailure FailureClassifier) error {
	var callErr error

	_, cbErr := b.cb.Execute(func() (any, error) {
		callErr = fn()
		if callErr != nil && (isFailure == nil || isFailure(callErr)) {
			return nil, callErr
		}
		return nil, nil
	})

	if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
		return ErrOpen
	}

	return callErr
}
