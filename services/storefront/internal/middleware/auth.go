// Package middleware содержит HTTP middleware storefront gateway.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	tokens "example.com/topup-storefront/pkg/jwt"
	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
)

// UserFetcher — получение профиля по токену.
// Токен выдаёт и проверяет backend, gateway подпись не проверяет.
type UserFetcher interface {
	Me(ctx context.Context, token string) (domain.User, error)
}

// RevocationChecker — токены, отозванные при выходе. Реализация: jwt.Blacklist.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware — проверка токена покупателя.
type AuthMiddleware struct {
	users      UserFetcher
	revoked    RevocationChecker
	cookieName string
	now        func() time.Time
}

// NewAuthMiddleware создаёт middleware. cookieName — имя cookie с токеном.
func NewAuthMiddleware(users UserFetcher, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		users:      users,
		cookieName: cookieName,
		now:        time.Now,
	}
}

// WithRevocations подключает проверку отозванных токенов.
// Ошибка Redis не блокирует вход: решение остаётся за backend.
func (m *AuthMiddleware) WithRevocations(r RevocationChecker) *AuthMiddleware {
	m.revoked = r
	return m
}

// Handle требует авторизацию.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// authenticate заполняет контекст пользователя; false — ответ уже отправлен.
func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	token := httputil.ExtractToken(c, m.cookieName)
	if token == "" {
		log.Debug().Msg("Отсутствует токен авторизации")
		abortUnauthorized(c, "Требуется авторизация")
		return false
	}

	if info, ok := tokens.Inspect(token); ok && info.Expired(m.now()) {
		log.Debug().Msg("Срок действия токена истёк")
		abortUnauthorized(c, "Сессия истекла, войдите снова")
		return false
	}

	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, token)
		if err != nil {
			log.Warn().Err(err).Msg("Не удалось проверить отзыв токена")
		}
		if revoked {
			log.Debug().Msg("Токен отозван")
			abortUnauthorized(c, "Сессия завершена, войдите снова")
			return false
		}
	}

	user, err := m.users.Me(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrNetwork) {
			log.Warn().Err(err).Msg("Backend недоступен при проверке токена")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "network_error",
				"message": domain.MsgTryAgain,
			})
			return false
		}
		log.Warn().Err(err).Msg("Ошибка валидации токена")
		abortUnauthorized(c, "Невалидный токен")
		return false
	}
	if user.ID == "" {
		log.Warn().Msg("Backend вернул профиль без id")
		abortUnauthorized(c, "Невалидный токен")
		return false
	}

	c.Set(httputil.KeyUserID, user.ID)
	c.Set(httputil.KeyUser, user)
	c.Set(httputil.KeyToken, token)
	c.Request = c.Request.WithContext(logger.WithUserID(ctx, user.ID))

	log.Debug().Str("user_id", user.ID).Msg("Пользователь аутентифицирован")
	return true
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}
