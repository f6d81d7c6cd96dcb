package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
	"example.com/topup-storefront/services/storefront/internal/watchdog"
)

// UserHandler — профиль и кошелёк покупателя.
type UserHandler struct {
	profiles ProfileService
	wallet   WalletService
	// walletReturnURL — куда шлюз вернёт покупателя после пополнения.
	walletReturnURL string
	timeout         time.Duration
	newKey          func() string
}

// NewUserHandler создаёт обработчик профиля.
func NewUserHandler(profiles ProfileService, wallet WalletService, walletReturnURL string, timeout time.Duration) *UserHandler {
	return &UserHandler{
		profiles:        profiles,
		wallet:          wallet,
		walletReturnURL: walletReturnURL,
		timeout:         timeout,
		newKey:          uuid.NewString,
	}
}

// UpdateProfileRequest — изменение профиля.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
}

// AddFundsRequest — пополнение кошелька.
type AddFundsRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// LedgerResponse — страница журнала кошелька.
type LedgerResponse struct {
	Transactions []domain.WalletTransaction `json:"transactions"`
	Pagination   domain.Pagination          `json:"pagination"`
}

// GetMe возвращает профиль, полученный auth middleware.
// GET /api/v1/user/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := httputil.CurrentUser(c)
	if !ok {
		HandleError(c, domain.ErrAuthRequired, "GetMe")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile обновляет имя и email.
// PUT /api/v1/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Неверный email")
		return
	}

	upd := backend.ProfileUpdate{Name: strings.TrimSpace(req.Name), Email: strings.TrimSpace(req.Email)}
	if upd.Name == "" && upd.Email == "" {
		HandleError(c, domain.NewUserError(domain.ErrValidation, "Нечего обновлять"), "UpdateProfile")
		return
	}

	token := httputil.Token(c)
	user, err := watchdog.Run(c.Request.Context(), h.timeout, func(ctx context.Context) (domain.User, error) {
		return h.profiles.UpdateProfile(ctx, token, upd)
	})
	if err != nil {
		HandleError(c, err, "UpdateProfile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AddFunds создаёт пополнение кошелька и возвращает ссылку на оплату.
// POST /api/v1/wallet/add
func (h *UserHandler) AddFunds(c *gin.Context) {
	ctx := c.Request.Context()

	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Укажите сумму пополнения")
		return
	}
	if !req.Amount.IsPositive() {
		HandleError(c, domain.NewUserError(domain.ErrValidation, "Сумма должна быть больше нуля"), "AddFunds")
		return
	}

	token, key := httputil.Token(c), h.newKey()
	paymentURL, err := watchdog.Run(ctx, h.timeout, func(ctx context.Context) (string, error) {
		return h.wallet.AddFunds(ctx, token, key, req.Amount, h.walletReturnURL)
	})
	if err != nil {
		HandleError(c, err, "AddFunds")
		return
	}
	if paymentURL == "" {
		logger.FromContext(ctx).Error().Msg("Backend не вернул ссылку на оплату пополнения")
		HandleError(c, domain.NewUserError(domain.ErrBackendRejected, domain.MsgTryAgain), "AddFunds")
		return
	}

	logger.FromContext(ctx).Info().Str("amount", req.Amount.String()).Msg("Пополнение кошелька создано")
	c.JSON(http.StatusOK, gin.H{"paymentUrl": paymentURL})
}

// Ledger возвращает журнал кошелька.
// GET /api/v1/wallet/ledger?page=1&limit=10
func (h *UserHandler) Ledger(c *gin.Context) {
	page, limit := pageParams(c)

	txs, pagination, err := h.wallet.Ledger(c.Request.Context(), httputil.Token(c), page, limit)
	if err != nil {
		HandleError(c, err, "Ledger")
		return
	}
	if txs == nil {
		txs = []domain.WalletTransaction{}
	}

	c.JSON(http.StatusOK, LedgerResponse{Transactions: txs, Pagination: pagination})
}
