package middleware

import "github.com/gin-gonic/gin"

// apiSecurityHeaders — заголовки для JSON-ответов витрины. Gateway не отдаёт
// HTML, поэтому CSP запрещает любые ресурсы и встраивание.
var apiSecurityHeaders = map[string]string{
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Permissions-Policy":      "camera=(), microphone=(), geolocation=(), payment=()",
	// Ответы содержат токены, баланс кошелька и заказы.
	"Cache-Control": "no-store",
	"Pragma":        "no-cache",
}

// SecurityHeaders выставляет apiSecurityHeaders на каждый ответ.
// Server и X-Powered-By, если их добавил прокси или handler, удаляются.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for name, value := range apiSecurityHeaders {
			h.Set(name, value)
		}
		h.Del("X-Powered-By")
		h.Del("Server")

		c.Next()
	}
}
