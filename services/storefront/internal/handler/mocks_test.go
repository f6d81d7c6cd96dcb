package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
	"example.com/topup-storefront/services/storefront/internal/identity"
	"example.com/topup-storefront/services/storefront/internal/status"
)

var errNotSet = errors.New("mock func not set")

func init() {
	gin.SetMode(gin.TestMode)
}

// MockCatalog — мок для CatalogService.
type MockCatalog struct {
	GamesFunc       func(ctx context.Context) ([]domain.Game, error)
	RefreshFunc     func(ctx context.Context) ([]domain.Game, error)
	GameByIDFunc    func(ctx context.Context, id string) (domain.Game, error)
	PackagesFunc    func(ctx context.Context, game domain.Game, now time.Time) ([]domain.Package, error)
	FindPackageFunc func(ctx context.Context, game domain.Game, packageID string, now time.Time) (domain.Package, error)
}

func (m *MockCatalog) Games(ctx context.Context) ([]domain.Game, error) {
	if m.GamesFunc != nil {
		return m.GamesFunc(ctx)
	}
	return nil, errNotSet
}

func (m *MockCatalog) Refresh(ctx context.Context) ([]domain.Game, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx)
	}
	return nil, errNotSet
}

func (m *MockCatalog) GameByID(ctx context.Context, id string) (domain.Game, error) {
	if m.GameByIDFunc != nil {
		return m.GameByIDFunc(ctx, id)
	}
	return domain.Game{}, errNotSet
}

func (m *MockCatalog) Packages(ctx context.Context, game domain.Game, now time.Time) ([]domain.Package, error) {
	if m.PackagesFunc != nil {
		return m.PackagesFunc(ctx, game, now)
	}
	return nil, errNotSet
}

func (m *MockCatalog) FindPackage(ctx context.Context, game domain.Game, packageID string, now time.Time) (domain.Package, error) {
	if m.FindPackageFunc != nil {
		return m.FindPackageFunc(ctx, game, packageID, now)
	}
	return domain.Package{}, errNotSet
}

// MockVerifier — мок для IdentityVerifier.
type MockVerifier struct {
	VerifyFunc func(ctx context.Context, token, userID string, game domain.Game, input domain.PlayerIdentity) (*identity.VerifyResult, error)
}

func (m *MockVerifier) Verify(ctx context.Context, token, userID string, game domain.Game, input domain.PlayerIdentity) (*identity.VerifyResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token, userID, game, input)
	}
	return nil, errNotSet
}

// MockHistory — мок для ValidationHistorySource и OrderHistorySource.
type MockHistory struct {
	ValidationHistoryFunc func(ctx context.Context, token, gameID string) (json.RawMessage, error)
	OrderHistoryFunc      func(ctx context.Context, token string, page, limit int) ([]byte, error)
}

func (m *MockHistory) ValidationHistory(ctx context.Context, token, gameID string) (json.RawMessage, error) {
	if m.ValidationHistoryFunc != nil {
		return m.ValidationHistoryFunc(ctx, token, gameID)
	}
	return nil, errNotSet
}

func (m *MockHistory) OrderHistory(ctx context.Context, token string, page, limit int) ([]byte, error) {
	if m.OrderHistoryFunc != nil {
		return m.OrderHistoryFunc(ctx, token, page, limit)
	}
	return nil, errNotSet
}

// MockAccounts — мок для SavedAccountLister.
type MockAccounts struct {
	ListFunc func(ctx context.Context, userID, gameID string, limit int) ([]domain.SavedAccount, error)
}

func (m *MockAccounts) ListByUserGame(ctx context.Context, userID, gameID string, limit int) ([]domain.SavedAccount, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, gameID, limit)
	}
	return nil, errNotSet
}

// MockOrders — мок для OrderCreator.
type MockOrders struct {
	CreateOrderFunc func(ctx context.Context, req checkout.Request) (*checkout.Handle, error)
}

func (m *MockOrders) CreateOrder(ctx context.Context, req checkout.Request) (*checkout.Handle, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	return nil, errNotSet
}

// MockStatus — мок для StatusTracker и FulfillmentRetrier.
type MockStatus struct {
	CheckFunc func(ctx context.Context, token, orderID string) (status.Snapshot, error)
	RunFunc   func(ctx context.Context, token, orderID string, onChange func(status.Snapshot)) status.Snapshot
	RetryFunc func(ctx context.Context, token, orderID string) (status.Snapshot, error)
}

func (m *MockStatus) Check(ctx context.Context, token, orderID string) (status.Snapshot, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, token, orderID)
	}
	return status.Snapshot{}, errNotSet
}

func (m *MockStatus) Run(ctx context.Context, token, orderID string, onChange func(status.Snapshot)) status.Snapshot {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, token, orderID, onChange)
	}
	return status.Snapshot{}
}

func (m *MockStatus) Retry(ctx context.Context, token, orderID string) (status.Snapshot, error) {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, token, orderID)
	}
	return status.Snapshot{}, errNotSet
}

// MockAuth — мок для AuthService.
type MockAuth struct {
	SendOTPFunc              func(ctx context.Context, phone string) (string, error)
	VerifyOTPFunc            func(ctx context.Context, phone, otp string) (backend.AuthResult, error)
	CompleteRegistrationFunc func(ctx context.Context, token, name, email string) (backend.AuthResult, error)
}

func (m *MockAuth) SendOTP(ctx context.Context, phone string) (string, error) {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone)
	}
	return "", errNotSet
}

func (m *MockAuth) VerifyOTP(ctx context.Context, phone, otp string) (backend.AuthResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, otp)
	}
	return backend.AuthResult{}, errNotSet
}

func (m *MockAuth) CompleteRegistration(ctx context.Context, token, name, email string) (backend.AuthResult, error) {
	if m.CompleteRegistrationFunc != nil {
		return m.CompleteRegistrationFunc(ctx, token, name, email)
	}
	return backend.AuthResult{}, errNotSet
}

// MockUserBackend — мок для ProfileService и WalletService.
type MockUserBackend struct {
	UpdateProfileFunc func(ctx context.Context, token string, upd backend.ProfileUpdate) (domain.User, error)
	AddFundsFunc      func(ctx context.Context, token, key string, amount decimal.Decimal, redirectURL string) (string, error)
	LedgerFunc        func(ctx context.Context, token string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error)
}

func (m *MockUserBackend) UpdateProfile(ctx context.Context, token string, upd backend.ProfileUpdate) (domain.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, token, upd)
	}
	return domain.User{}, errNotSet
}

func (m *MockUserBackend) AddFunds(ctx context.Context, token, key string, amount decimal.Decimal, redirectURL string) (string, error) {
	if m.AddFundsFunc != nil {
		return m.AddFundsFunc(ctx, token, key, amount, redirectURL)
	}
	return "", errNotSet
}

func (m *MockUserBackend) Ledger(ctx context.Context, token string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error) {
	if m.LedgerFunc != nil {
		return m.LedgerFunc(ctx, token, page, limit)
	}
	return nil, domain.Pagination{}, errNotSet
}

// testUser — покупатель, которого "аутентифицировал" middleware.
var testUser = domain.User{
	ID:            "user-1",
	Phone:         "+919876543210",
	Name:          "Ravi",
	WalletBalance: decimal.NewFromInt(500),
	IsRegistered:  true,
}

const testToken = "token-abc"

// withUser имитирует auth middleware.
func withUser(user domain.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(httputil.KeyUserID, user.ID)
		c.Set(httputil.KeyUser, user)
		c.Set(httputil.KeyToken, testToken)
		c.Next()
	}
}

var mlGame = domain.Game{
	ID:       "g-ml",
	Slug:     "mobile-legends",
	Name:     "Mobile Legends",
	IsActive: true,
	Profile:  domain.ProfileFor("mobile-legends"),
}

// gameByID находит только mlGame (по id или slug).
func gameByID(_ context.Context, id string) (domain.Game, error) {
	if id == mlGame.ID || id == mlGame.Slug {
		return mlGame, nil
	}
	return domain.Game{}, domain.ErrGameNotFound
}
