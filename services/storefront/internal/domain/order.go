package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod — способ оплаты заказа.
type PaymentMethod string

const (
	// PaymentMethodWallet — списание с внутреннего кошелька.
	PaymentMethodWallet PaymentMethod = "wallet"

	// PaymentMethodUPI — оплата через внешний платёжный шлюз с редиректом.
	PaymentMethodUPI PaymentMethod = "upi"
)

// Valid проверяет, что способ оплаты известен.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodWallet || m == PaymentMethodUPI
}

// OrderStatus — статус заказа на backend.
type OrderStatus string

const (
	OrderStatusInitiated  OrderStatus = "initiated"
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// PaymentStatus — статус оплаты заказа на backend.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderItem — позиция заказа.
type OrderItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order — заказ в нормализованном виде.
// Витрина заказ не изменяет, только наблюдает переходы статусов.
type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"orderNumber,omitempty"`
	GameName      string          `json:"gameName,omitempty"`
	PackageName   string          `json:"packageName,omitempty"`
	Identity      PlayerIdentity  `json:"identity"`
	PaymentMethod PaymentMethod   `json:"paymentMethod,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency,omitempty"`
	Status        OrderStatus     `json:"status,omitempty"`
	PaymentStatus PaymentStatus   `json:"paymentStatus,omitempty"`
	Items         []OrderItem     `json:"items,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// DisplayNumber возвращает номер заказа для показа покупателю.
func (o Order) DisplayNumber() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

// Pagination — параметры страницы списка.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}
