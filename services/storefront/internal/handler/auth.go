package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
	"example.com/topup-storefront/services/storefront/internal/watchdog"
)

// CookieConfig — cookie с токеном покупателя.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
	MaxAge time.Duration
}

// AuthHandler — вход по номеру телефона и коду подтверждения.
type AuthHandler struct {
	auth    AuthService
	revoker TokenRevoker
	cookie  CookieConfig
	timeout time.Duration
}

// NewAuthHandler создаёт обработчик аутентификации.
func NewAuthHandler(auth AuthService, cookie CookieConfig, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie, timeout: timeout}
}

// WithRevoker включает отзыв токена при выходе.
func (h *AuthHandler) WithRevoker(r TokenRevoker) *AuthHandler {
	h.revoker = r
	return h
}

// SendOTPRequest — запрос кода.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest — ввод кода.
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// CompleteRegistrationRequest — данные профиля после первого входа.
type CompleteRegistrationRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// AuthResponse — токен возвращается и в теле: клиент хранит его локально.
type AuthResponse struct {
	Token                string      `json:"token"`
	User                 domain.User `json:"user"`
	RequiresRegistration bool        `json:"requiresRegistration"`
}

// SendOTP отправляет код подтверждения.
// POST /api/v1/auth/send-otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Укажите номер телефона")
		return
	}

	msg, err := watchdog.Run(c.Request.Context(), h.timeout, func(ctx context.Context) (string, error) {
		return h.auth.SendOTP(ctx, req.Phone)
	})
	if err != nil {
		HandleError(c, err, "SendOTP")
		return
	}
	if msg == "" {
		msg = "Код отправлен"
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// VerifyOTP проверяет код и выдаёт токен.
// POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Укажите номер телефона и код")
		return
	}

	res, err := watchdog.Run(c.Request.Context(), h.timeout, func(ctx context.Context) (backend.AuthResult, error) {
		return h.auth.VerifyOTP(ctx, req.Phone, req.OTP)
	})
	if err != nil {
		HandleError(c, err, "VerifyOTP")
		return
	}

	logger.FromContext(c.Request.Context()).Info().
		Str("user_id", res.User.ID).
		Bool("requires_registration", res.RequiresRegistration).
		Msg("Покупатель вошёл")

	h.setCookie(c, res.Token)
	c.JSON(http.StatusOK, AuthResponse{
		Token:                res.Token,
		User:                 res.User,
		RequiresRegistration: res.RequiresRegistration,
	})
}

// CompleteRegistration заполняет профиль.
// POST /api/v1/auth/complete-registration
func (h *AuthHandler) CompleteRegistration(c *gin.Context) {
	var req CompleteRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Укажите имя")
		return
	}

	token := httputil.ExtractToken(c, h.cookie.Name)

	res, err := watchdog.Run(c.Request.Context(), h.timeout, func(ctx context.Context) (backend.AuthResult, error) {
		return h.auth.CompleteRegistration(ctx, token, req.Name, req.Email)
	})
	if err != nil {
		HandleError(c, err, "CompleteRegistration")
		return
	}

	h.setCookie(c, res.Token)
	c.JSON(http.StatusOK, AuthResponse{Token: res.Token, User: res.User})
}

// Logout удаляет cookie и отзывает токен на gateway.
// На backend токен продолжает действовать до истечения.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := httputil.ExtractToken(c, h.cookie.Name); token != "" && h.revoker != nil {
		ctx := c.Request.Context()
		if err := h.revoker.Revoke(ctx, token); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("Не удалось отозвать токен при выходе")
		}
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", h.cookie.Domain, h.cookie.Secure, true)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) setCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.cookie.MaxAge.Seconds()), "/", h.cookie.Domain, h.cookie.Secure, true)
}
