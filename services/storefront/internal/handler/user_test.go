package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

const walletReturn = "https://shop.example.com/wallet"

func setupUserRouter(h *UserHandler) *gin.Engine {
	r := gin.New()
	api := r.Group("/api/v1", withUser(testUser))
	api.GET("/user/me", h.GetMe)
	api.PUT("/user/profile", h.UpdateProfile)
	api.POST("/wallet/add", h.AddFunds)
	api.GET("/wallet/ledger", h.Ledger)
	return r
}

func TestGetMe(t *testing.T) {
	r := setupUserRouter(NewUserHandler(&MockUserBackend{}, &MockUserBackend{}, walletReturn, time.Second))

	w := doJSON(r, http.MethodGet, "/api/v1/user/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		User domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.User.ID)
	assert.True(t, decimal.NewFromInt(500).Equal(resp.User.WalletBalance))
}

func TestGetMe_NoUser(t *testing.T) {
	h := NewUserHandler(&MockUserBackend{}, &MockUserBackend{}, walletReturn, time.Second)
	r := gin.New()
	r.GET("/api/v1/user/me", h.GetMe)

	w := doJSON(r, http.MethodGet, "/api/v1/user/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	t.Run("имя обновлено", func(t *testing.T) {
		users := &MockUserBackend{UpdateProfileFunc: func(_ context.Context, token string, upd backend.ProfileUpdate) (domain.User, error) {
			assert.Equal(t, testToken, token)
			assert.Equal(t, "Ravi Kumar", upd.Name)
			return domain.User{ID: "user-1", Name: upd.Name}, nil
		}}
		r := setupUserRouter(NewUserHandler(users, &MockUserBackend{}, walletReturn, time.Second))

		w := doJSON(r, http.MethodPut, "/api/v1/user/profile", UpdateProfileRequest{Name: "  Ravi Kumar "})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Ravi Kumar")
	})

	t.Run("пустое обновление", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&MockUserBackend{}, &MockUserBackend{}, walletReturn, time.Second))

		w := doJSON(r, http.MethodPut, "/api/v1/user/profile", UpdateProfileRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("неверный email", func(t *testing.T) {
		r := setupUserRouter(NewUserHandler(&MockUserBackend{}, &MockUserBackend{}, walletReturn, time.Second))

		w := doJSON(r, http.MethodPut, "/api/v1/user/profile", UpdateProfileRequest{Email: "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAddFunds(t *testing.T) {
	t.Run("ссылка на оплату", func(t *testing.T) {
		wallet := &MockUserBackend{AddFundsFunc: func(_ context.Context, token, key string, amount decimal.Decimal, redirectURL string) (string, error) {
			assert.Equal(t, testToken, token)
			assert.Equal(t, "fixed-key", key)
			assert.True(t, decimal.RequireFromString("250.50").Equal(amount))
			assert.Equal(t, walletReturn, redirectURL)
			return "https://pay.example.com/w1", nil
		}}
		h := NewUserHandler(&MockUserBackend{}, wallet, walletReturn, time.Second)
		h.newKey = func() string { return "fixed-key" }

		w := doJSON(setupUserRouter(h), http.MethodPost, "/api/v1/wallet/add", map[string]any{"amount": 250.50})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"paymentUrl":"https://pay.example.com/w1"}`, w.Body.String())
	})

	t.Run("сумма не положительная", func(t *testing.T) {
		h := NewUserHandler(&MockUserBackend{}, &MockUserBackend{}, walletReturn, time.Second)

		w := doJSON(setupUserRouter(h), http.MethodPost, "/api/v1/wallet/add", map[string]any{"amount": 0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("backend без ссылки", func(t *testing.T) {
		wallet := &MockUserBackend{AddFundsFunc: func(context.Context, string, string, decimal.Decimal, string) (string, error) {
			return "", nil
		}}
		h := NewUserHandler(&MockUserBackend{}, wallet, walletReturn, time.Second)

		w := doJSON(setupUserRouter(h), http.MethodPost, "/api/v1/wallet/add", map[string]any{"amount": "100"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), domain.MsgTryAgain)
	})
}

func TestLedger(t *testing.T) {
	wallet := &MockUserBackend{LedgerFunc: func(_ context.Context, _ string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error) {
		assert.Equal(t, 1, page)
		assert.Equal(t, 20, limit)
		return []domain.WalletTransaction{{
			ID:           "tx1",
			Type:         domain.TransactionDebit,
			Amount:       decimal.NewFromInt(67),
			BalanceAfter: decimal.NewFromInt(433),
		}}, domain.Pagination{Page: 1, Limit: 20, Total: 1, TotalPages: 1}, nil
	}}
	r := setupUserRouter(NewUserHandler(&MockUserBackend{}, wallet, walletReturn, time.Second))

	w := doJSON(r, http.MethodGet, "/api/v1/wallet/ledger?limit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp LedgerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, domain.TransactionDebit, resp.Transactions[0].Type)
	assert.True(t, decimal.NewFromInt(433).Equal(resp.Transactions[0].BalanceAfter))
}
