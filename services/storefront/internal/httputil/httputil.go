// Package httputil содержит вспомогательные функции для HTTP обработки.
package httputil

import (
	"strings"

	"github.com/gin-gonic/gin"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Ключи gin.Context, которые заполняет auth middleware.
const (
	KeyUserID = "user_id"
	KeyUser   = "user"
	KeyToken  = "auth_token"
)

// ExtractBearerToken извлекает токен из Authorization header.
// Формат: "Bearer <token>"
// Поддерживает регистронезависимый префикс и обрезает пробелы.
func ExtractBearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ExtractToken возвращает токен: сначала из cookie, затем из Authorization.
func ExtractToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ExtractBearerToken(c)
}

// Token возвращает токен, сохранённый auth middleware.
func Token(c *gin.Context) string {
	return c.GetString(KeyToken)
}

// UserID возвращает id аутентифицированного покупателя.
func UserID(c *gin.Context) string {
	return c.GetString(KeyUserID)
}

// CurrentUser возвращает профиль, полученный auth middleware.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(KeyUser)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}
