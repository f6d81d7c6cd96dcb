package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"example.com/topup-storefront/pkg/logger"
)

// rateLimitScript — атомарный INCR + EXPIRE для счётчика окна.
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimitMiddleware ограничивает количество запросов с одного IP (fixed window).
// При недоступности Redis запросы пропускаются.
type RateLimitMiddleware struct {
	redis  *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// RateLimitConfig — конфигурация rate limiter.
type RateLimitConfig struct {
	Redis *redis.Client
	// Prefix разделяет счётчики разных групп маршрутов ("api", "auth").
	Prefix string
	Limit  int           // по умолчанию 100
	Window time.Duration // по умолчанию 1 минута
}

// NewRateLimitMiddleware создаёт rate limiter.
func NewRateLimitMiddleware(cfg RateLimitConfig) *RateLimitMiddleware {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "api"
	}

	return &RateLimitMiddleware{
		redis:  cfg.Redis,
		prefix: cfg.Prefix,
		limit:  cfg.Limit,
		window: cfg.Window,
	}
}

// Handle возвращает Gin handler function для middleware.
func (m *RateLimitMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.redis == nil {
			c.Next()
			return
		}

		log := logger.FromContext(c.Request.Context())
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate:%s:%s", m.prefix, clientIP)

		count, err := rateLimitScript.Run(c.Request.Context(), m.redis, []string{key}, int(m.window.Seconds())).Int()
		if err != nil {
			log.Warn().Err(err).Msg("Ошибка проверки rate limit")
			c.Next()
			return
		}

		remaining := m.limit - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(m.window).Unix(), 10))

		if count > m.limit {
			log.Warn().
				Str("client_ip", clientIP).
				Str("group", m.prefix).
				Int("limit", m.limit).
				Msg("Rate limit превышен")

			seconds := int(m.window.Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Превышен лимит запросов. Попробуйте через %d секунд", seconds),
			})
			return
		}

		c.Next()
	}
}
