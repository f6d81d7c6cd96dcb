package domain

// UIState — состояние заказа, которое видит покупатель после возврата с платёжной страницы.
type UIState string

const (
	UIStateVerifying                UIState = "VERIFYING"
	UIStateNotInitiated             UIState = "NOT_INITIATED"
	UIStateProcessing               UIState = "PROCESSING"
	UIStateCompleted                UIState = "COMPLETED"
	UIStatePaidButFulfillmentFailed UIState = "PAID_BUT_FULFILLMENT_FAILED"
	UIStateFailed                   UIState = "FAILED"
	UIStateRefunded                 UIState = "REFUNDED"

	// UIStateCancelled — опрос остановлен вызывающей стороной (ушёл со страницы).
	UIStateCancelled UIState = "CANCELLED"
)

// IsTerminal — из терминального состояния опрос дальше не идёт.
func (s UIState) IsTerminal() bool {
	switch s {
	case UIStateNotInitiated,
		UIStateCompleted,
		UIStatePaidButFulfillmentFailed,
		UIStateFailed,
		UIStateRefunded,
		UIStateCancelled:
		return true
	}
	return false
}

// CanRetryFulfillment — повтор выдачи доступен только после оплаты без выдачи.
func (s UIState) CanRetryFulfillment() bool {
	return s == UIStatePaidButFulfillmentFailed
}

// rank задаёт порядок прогресса. Ответ с меньшим рангом не откатывает состояние.
func (s UIState) rank() int {
	switch s {
	case UIStateVerifying:
		return 0
	case UIStateProcessing:
		return 1
	}
	return 2
}

// Regresses возвращает true, если переход из s в next откатывает прогресс
// (например PROCESSING → VERIFYING из-за запоздавшего ответа).
func (s UIState) Regresses(next UIState) bool {
	return next.rank() < s.rank()
}
