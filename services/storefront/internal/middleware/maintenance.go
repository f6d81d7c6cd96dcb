package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/topup-storefront/pkg/logger"
)

// Maintenance отключает маршруты создания заказов в режиме обслуживания.
// Не зависит от состояния backend.
func Maintenance(enabled func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enabled == nil || !enabled() {
			c.Next()
			return
		}

		logger.FromContext(c.Request.Context()).Info().
			Str("path", c.Request.URL.Path).
			Msg("Запрос отклонён: режим обслуживания")

		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error":   "maintenance",
			"message": "Оформление заказов временно недоступно. Попробуйте позже.",
		})
	}
}
