package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType — направление движения по кошельку.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// WalletTransaction — запись журнала кошелька (только чтение).
type WalletTransaction struct {
	ID            string          `json:"id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter"`
	Reference     string          `json:"reference,omitempty"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// User — профиль покупателя.
type User struct {
	ID            string          `json:"id"`
	Phone         string          `json:"phone"`
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	IsRegistered  bool            `json:"isRegistered"`
}
