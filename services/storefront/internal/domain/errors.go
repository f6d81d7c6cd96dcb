// Package domain содержит сущности витрины пополнений и доменные ошибки.
package domain

import "errors"

// Доменные ошибки. Каждая соответствует виду ошибки, который видит покупатель;
// handler маппит их в HTTP статус и код ошибки.
var (
	// ErrValidation — невалидные входные данные (пустые поля, неверный формат).
	ErrValidation = errors.New("невалидные данные запроса")

	// ErrAuthRequired — действие требует авторизации.
	ErrAuthRequired = errors.New("требуется авторизация")

	// ErrNoPackageSelected — пакет не выбран или не найден в каталоге.
	ErrNoPackageSelected = errors.New("пакет не выбран")

	// ErrInsufficientBalance — баланса кошелька не хватает на покупку.
	ErrInsufficientBalance = errors.New("недостаточно средств на кошельке")

	// ErrIdentityIncomplete — не заполнены обязательные поля игрового аккаунта
	// или аккаунт не подтверждён для игры с обязательной проверкой.
	ErrIdentityIncomplete = errors.New("данные игрового аккаунта неполные")

	// ErrVerificationFailed — backend не подтвердил аккаунт однозначно.
	ErrVerificationFailed = errors.New("не удалось проверить игровой аккаунт")

	// ErrInvalidIdentity — backend явно ответил, что аккаунт не существует.
	ErrInvalidIdentity = errors.New("игровой аккаунт не найден")

	// ErrNetwork — сетевая ошибка при обращении к backend, можно повторить.
	ErrNetwork = errors.New("ошибка сети, попробуйте ещё раз")

	// ErrBackendRejected — backend отклонил операцию и вернул сообщение.
	ErrBackendRejected = errors.New("операция отклонена")

	// ErrInternalMasked — внутренняя ошибка поставщика скрыта от покупателя.
	ErrInternalMasked = errors.New("внутренняя ошибка, обратитесь в поддержку")

	// ErrRequestTimeout — истёк клиентский таймаут действия.
	ErrRequestTimeout = errors.New("превышено время ожидания запроса")

	// ErrCatalogUnavailable — каталог пакетов временно недоступен.
	ErrCatalogUnavailable = errors.New("каталог временно недоступен")

	// ErrGameNotFound — игра не найдена среди активных.
	ErrGameNotFound = errors.New("игра не найдена")

	// ErrOrderNotFound — заказ не найден.
	ErrOrderNotFound = errors.New("заказ не найден")

	// ErrMaintenance — включён режим обслуживания, создание заказов отключено.
	ErrMaintenance = errors.New("сервис на обслуживании")

	// ErrRetryNotAllowed — повтор выдачи доступен только для оплаченного, но не выданного заказа.
	ErrRetryNotAllowed = errors.New("повтор выдачи недоступен для заказа в текущем статусе")

	// ErrTooManyAttempts — превышен лимит неудачных вводов кода подтверждения.
	ErrTooManyAttempts = errors.New("слишком много попыток, попробуйте позже")
)

// Сообщения для покупателя.
const (
	// MsgContactSupport подставляется вместо внутренних ошибок поставщика.
	MsgContactSupport = "Не удалось выполнить заказ. Пожалуйста, обратитесь в службу поддержки."

	// MsgTryAgain — общее сообщение для сетевых ошибок.
	MsgTryAgain = "Что-то пошло не так. Попробуйте ещё раз."

	// MsgCheckOrders — опрос статуса исчерпан без окончательного ответа.
	MsgCheckOrders = "Не удалось подтвердить оплату. Проверьте статус на странице заказов."

	// MsgRequestTimeout — сработал клиентский таймаут.
	MsgRequestTimeout = "Превышено время ожидания. Попробуйте ещё раз."
)

// UserError — ошибка с сообщением для покупателя.
// Kind — одна из доменных ошибок выше, по ней handler выбирает HTTP статус.
type UserError struct {
	Kind    error
	Message string
}

// NewUserError создаёт UserError. Пустое сообщение заменяется текстом Kind.
func NewUserError(kind error, message string) *UserError {
	if message == "" && kind != nil {
		message = kind.Error()
	}
	return &UserError{Kind: kind, Message: message}
}

// Error реализует интерфейс error.
func (e *UserError) Error() string {
	return e.Message
}

// Unwrap позволяет errors.Is(err, domain.ErrInvalidIdentity).
func (e *UserError) Unwrap() error {
	return e.Kind
}

// UserMessage возвращает сообщение для покупателя из цепочки ошибок.
// Если UserError в цепочке нет, используется fallback.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
