// Package status — опрос статуса заказа после возврата с платёжной страницы
// и повтор выдачи оплаченного заказа.
package status

import (
	"strings"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// paymentAliases — варианты статусов оплаты, встречающиеся у backend.
var paymentAliases = map[string]domain.PaymentStatus{
	"pending":    domain.PaymentStatusPending,
	"processing": domain.PaymentStatusPending,
	"paid":       domain.PaymentStatusPaid,
	"success":    domain.PaymentStatusPaid,
	"successful": domain.PaymentStatusPaid,
	"captured":   domain.PaymentStatusPaid,
	"failed":     domain.PaymentStatusFailed,
	"failure":    domain.PaymentStatusFailed,
	"cancelled":  domain.PaymentStatusFailed,
	"canceled":   domain.PaymentStatusFailed,
	"expired":    domain.PaymentStatusFailed,
	"refunded":   domain.PaymentStatusRefunded,
}

// notInitiated — оплата ещё не начиналась.
var notInitiated = map[string]bool{
	"":              true,
	"not_initiated": true,
	"not initiated": true,
	"notinitiated":  true,
	"none":          true,
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MapStatus переводит пару статусов backend в состояние для покупателя.
//
// pending и processing заказа считаются синонимами. Неизвестный статус
// оплаты оставляет опрос в VERIFYING. NOT_INITIATED определяется по полю
// paymentStatus; если backend его не прислал, а заказ в pending/processing,
// опрос продолжается.
func MapStatus(paymentStatus, orderStatus string) domain.UIState {
	payment := normalize(paymentStatus)
	order := domain.OrderStatus(normalize(orderStatus))

	if order == domain.OrderStatusRefunded {
		return domain.UIStateRefunded
	}

	ps, known := paymentAliases[payment]

	// Упавший заказ, по которому нет оплаты или возврата, — FAILED.
	if order == domain.OrderStatusFailed && (!known || ps == domain.PaymentStatusPending) {
		return domain.UIStateFailed
	}

	// Ответ order-status без paymentStatus: состояние выводится из статуса заказа.
	if payment == "" && (order == domain.OrderStatusPending || order == domain.OrderStatusProcessing) {
		return domain.UIStateVerifying
	}

	if notInitiated[payment] {
		if order == domain.OrderStatusCompleted {
			return domain.UIStateCompleted
		}
		return domain.UIStateNotInitiated
	}

	if !known {
		return domain.UIStateVerifying
	}

	switch ps {
	case domain.PaymentStatusRefunded:
		return domain.UIStateRefunded
	case domain.PaymentStatusFailed:
		return domain.UIStateFailed
	case domain.PaymentStatusPaid:
		switch order {
		case domain.OrderStatusCompleted:
			return domain.UIStateCompleted
		case domain.OrderStatusFailed:
			return domain.UIStatePaidButFulfillmentFailed
		default:
			return domain.UIStateProcessing
		}
	}

	// Оплата ещё в ожидании.
	return domain.UIStateVerifying
}

// stateMessage — текст для покупателя по состоянию.
func stateMessage(state domain.UIState, support string) string {
	switch state {
	case domain.UIStateVerifying:
		return "Проверяем оплату..."
	case domain.UIStateNotInitiated:
		return "Оплата не была начата."
	case domain.UIStateProcessing:
		return "Оплата получена, пакет зачисляется."
	case domain.UIStateCompleted:
		return "Пакет успешно зачислен."
	case domain.UIStatePaidButFulfillmentFailed:
		msg := "Оплата получена, но зачислить пакет не удалось. Повторите выдачу или обратитесь в поддержку."
		if support != "" {
			msg += " Контакт: " + support
		}
		return msg
	case domain.UIStateFailed:
		return "Оплата не прошла."
	case domain.UIStateRefunded:
		return "Средства возвращены."
	case domain.UIStateCancelled:
		return "Проверка статуса остановлена."
	}
	return ""
}
