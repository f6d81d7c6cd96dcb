package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/topup-storefront/pkg/metrics"
	"example.com/topup-storefront/services/storefront/internal/middleware"
)

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация роутера.
type Router struct {
	engine *gin.Engine
	cfg    RouterConfig
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	ServiceName string

	Games  *GameHandler
	Orders *OrderHandler
	Auth   *AuthHandler
	Users  *UserHandler

	AuthMW      *middleware.AuthMiddleware
	RateLimitMW *middleware.RateLimitMiddleware // Общий лимит /api/v1
	OTPLimitMW  *middleware.RateLimitMiddleware // Отдельный лимит на отправку и ввод кода
	TracingMW   *middleware.TracingMiddleware
	CORS        middleware.CORSConfig

	// Maintenance — режим обслуживания для создания заказов и повтора выдачи.
	Maintenance    func() bool
	ReadinessCheck ReadinessChecker // опциональная проверка готовности для /readyz
	Debug          bool             // Режим отладки Gin
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "storefront"
	}

	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.CORS))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(otelgin.Middleware(cfg.ServiceName))
	engine.Use(metrics.GinMetricsMiddleware(cfg.ServiceName))

	r := &Router{engine: engine, cfg: cfg}
	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	cfg := r.cfg

	if cfg.TracingMW != nil {
		r.engine.Use(cfg.TracingMW.Handle())
	}

	// Health endpoints (без rate limiting и auth)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	v1 := r.engine.Group("/api/v1")
	if cfg.RateLimitMW != nil {
		v1.Use(cfg.RateLimitMW.Handle())
	}

	authed := func(g *gin.RouterGroup) {
		if cfg.AuthMW != nil {
			g.Use(cfg.AuthMW.Handle())
		}
	}
	maintenance := middleware.Maintenance(cfg.Maintenance)

	// === Auth (публичные) ===
	if h := cfg.Auth; h != nil {
		auth := v1.Group("/auth")
		otp := auth.Group("")
		if cfg.OTPLimitMW != nil {
			otp.Use(cfg.OTPLimitMW.Handle())
		}
		otp.POST("/send-otp", h.SendOTP)
		otp.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/complete-registration", h.CompleteRegistration)
		auth.POST("/logout", h.Logout)
	}

	// === Каталог ===
	if h := cfg.Games; h != nil {
		games := v1.Group("/games")
		games.GET("", h.ListGames)
		games.GET("/:game/packages", h.ListPackages)

		private := games.Group("")
		authed(private)
		private.POST("/refresh", h.RefreshGames)
		private.POST("/:game/verify", h.VerifyAccount)
		private.GET("/:game/validation-history", h.ValidationHistory)
		private.GET("/:game/saved-accounts", h.SavedAccounts)
	}

	// === Заказы (защищённые) ===
	if h := cfg.Orders; h != nil {
		orders := v1.Group("/orders")
		authed(orders)
		orders.POST("", maintenance, h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:id/status", h.GetStatus)
		orders.GET("/:id/status/stream", h.StreamStatus)
		orders.POST("/:id/retry-fulfillment", maintenance, h.RetryFulfillment)
		orders.GET("/:id/receipt", h.Receipt)
	}

	// === Профиль и кошелёк (защищённые) ===
	if h := cfg.Users; h != nil {
		user := v1.Group("/user")
		authed(user)
		user.GET("/me", h.GetMe)
		user.PUT("/profile", h.UpdateProfile)

		wallet := v1.Group("/wallet")
		authed(wallet)
		wallet.POST("/add", h.AddFunds)
		wallet.GET("/ledger", h.Ledger)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// livenessCheck — liveness probe: сервер отвечает, значит процесс жив.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe: зависимости доступны.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.cfg.ReadinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.cfg.ReadinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
