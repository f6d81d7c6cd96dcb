package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/identity"
	"example.com/topup-storefront/services/storefront/internal/status"
)

// CatalogService — каталог игр и пакетов. Реализация: catalog.Service.
type CatalogService interface {
	Games(ctx context.Context) ([]domain.Game, error)
	Refresh(ctx context.Context) ([]domain.Game, error)
	// GameByID принимает внутренний id или slug.
	GameByID(ctx context.Context, id string) (domain.Game, error)
	Packages(ctx context.Context, game domain.Game, now time.Time) ([]domain.Package, error)
	FindPackage(ctx context.Context, game domain.Game, packageID string, now time.Time) (domain.Package, error)
}

// IdentityVerifier — проверка игрового аккаунта. Реализация: identity.Resolver.
type IdentityVerifier interface {
	Verify(ctx context.Context, token, userID string, game domain.Game, input domain.PlayerIdentity) (*identity.VerifyResult, error)
}

// ValidationHistorySource — история проверок аккаунтов, отдаётся как есть.
type ValidationHistorySource interface {
	ValidationHistory(ctx context.Context, token, gameID string) (json.RawMessage, error)
}

// SavedAccountLister — сохранённые аккаунты покупателя.
type SavedAccountLister interface {
	ListByUserGame(ctx context.Context, userID, gameID string, limit int) ([]domain.SavedAccount, error)
}

// OrderCreator — создание заказа. Реализация: checkout.Coordinator.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req checkout.Request) (*checkout.Handle, error)
}

// StatusTracker — опрос статуса заказа. Реализация: status.Poller.
type StatusTracker interface {
	Check(ctx context.Context, token, orderID string) (status.Snapshot, error)
	Run(ctx context.Context, token, orderID string, onChange func(status.Snapshot)) status.Snapshot
}

// FulfillmentRetrier — повтор выдачи. Реализация: status.RetryTrigger.
type FulfillmentRetrier interface {
	Retry(ctx context.Context, token, orderID string) (status.Snapshot, error)
}

// OrderHistorySource — сырая страница истории заказов.
type OrderHistorySource interface {
	OrderHistory(ctx context.Context, token string, page, limit int) ([]byte, error)
}

// AuthService — вход по OTP. Реализация: auth.Service.
type AuthService interface {
	SendOTP(ctx context.Context, phone string) (string, error)
	VerifyOTP(ctx context.Context, phone, otp string) (backend.AuthResult, error)
	CompleteRegistration(ctx context.Context, token, name, email string) (backend.AuthResult, error)
}

// TokenRevoker — отзыв токена при выходе. Реализация: jwt.Blacklist.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

// ProfileService — изменение профиля. Чтение профиля выполняет auth middleware.
type ProfileService interface {
	UpdateProfile(ctx context.Context, token string, upd backend.ProfileUpdate) (domain.User, error)
}

// WalletService — кошелёк покупателя.
type WalletService interface {
	AddFunds(ctx context.Context, token, idempotencyKey string, amount decimal.Decimal, redirectURL string) (string, error)
	Ledger(ctx context.Context, token string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error)
}
