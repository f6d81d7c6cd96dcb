// Package main — точка входа storefront gateway.
// Gateway принимает запросы витрины, проверяет аккаунты и оплату,
// ходит во внешний backend API и отдаёт фронтенду нормализованные ответы.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"gorm.io/gorm"

	"example.com/topup-storefront/pkg/db"
	"example.com/topup-storefront/pkg/healthcheck"
	tokens "example.com/topup-storefront/pkg/jwt"
	"example.com/topup-storefront/pkg/kafka"
	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/pkg/metrics"
	"example.com/topup-storefront/pkg/outbox"
	"example.com/topup-storefront/pkg/tracing"
	"example.com/topup-storefront/services/storefront/internal/auth"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/catalog"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/config"
	"example.com/topup-storefront/services/storefront/internal/events"
	"example.com/topup-storefront/services/storefront/internal/handler"
	"example.com/topup-storefront/services/storefront/internal/identity"
	"example.com/topup-storefront/services/storefront/internal/middleware"
	"example.com/topup-storefront/services/storefront/internal/receipt"
	"example.com/topup-storefront/services/storefront/internal/repository"
	"example.com/topup-storefront/services/storefront/internal/status"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка загрузки конфигурации")
	}

	logger.Init(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  cfg.App.LogPretty,
		Service: cfg.App.Name,
	})

	logger.Info().
		Str("env", cfg.App.Env).
		Str("backend", cfg.Backend.BaseURL).
		Msg("Запуск storefront gateway")

	shutdownTracing, err := tracing.InitTracer(tracing.Config{
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Jaeger.OTLPEndpoint(),
		Enabled:     cfg.Jaeger.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Не удалось инициализировать tracing")
	}

	// === Хранилища ===

	redisClient, err := db.ConnectRedis(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("Не удалось подключиться к Redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("Ошибка закрытия Redis")
		}
	}()
	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("Подключено к Redis")

	// MySQL хранит только сохранённые аккаунты; без него витрина работает.
	var (
		gormDB        *gorm.DB
		savedAccounts repository.SavedAccountRepository
		mysqlCheck    healthcheck.Check
	)
	if cfg.MySQL.Enabled {
		gormDB, err = db.ConnectMySQL(cfg.MySQL, cfg.IsDevelopment(), &repository.SavedAccountModel{}, &outbox.OutboxModel{})
		if err != nil {
			logger.Fatal().Err(err).Msg("Не удалось подключиться к MySQL")
		}
		if sqlDB, err := gormDB.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
		savedAccounts = repository.NewSavedAccountRepository(gormDB)
		mysqlCheck = healthcheck.MySQL(gormDB)
		logger.Info().Str("database", cfg.MySQL.Database).Msg("Подключено к MySQL")
	}

	// Фоновые воркеры останавливаются при завершении
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Kafka опциональна: без неё события не публикуются.
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Ошибка создания Kafka producer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error().Err(err).Msg("Ошибка закрытия Kafka producer")
			}
		}()
		publisher = producer

		if cfg.Kafka.Outbox && gormDB != nil {
			outboxRepo := outbox.NewRepository(gormDB)
			publisher = outbox.NewPublisher(outboxRepo)
			worker := outbox.NewWorker(outboxRepo, producer, outbox.DefaultWorkerConfig())
			go worker.Run(workerCtx)
		}
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Bool("outbox", cfg.Kafka.Outbox && gormDB != nil).
			Msg("Публикация событий включена")
	}
	orderEvents := events.NewOrderEvents(publisher)

	// === Сервисы ===

	backendClient := backend.New(backend.Config{
		BaseURL:     cfg.Backend.BaseURL,
		Timeout:     cfg.Backend.Timeout,
		ReadRetries: cfg.Backend.ReadRetries,
	})

	gameCache, err := catalog.NewGameCache(cfg.Storefront.CatalogTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка создания кеша каталога")
	}
	catalogService := catalog.NewService(backendClient, gameCache, catalog.DefaultPromotions)

	resolver := identity.NewResolver(identity.ResolverConfig{
		Backend:  backendClient,
		Games:    catalogService,
		Tickets:  identity.NewRedisTicketStore(redisClient, cfg.Storefront.VerificationTTL),
		Accounts: savedAccounts,
		GamePage: cfg.Storefront.GamePageURL,
	})

	// SIGUSR1 переключает режим обслуживания без перезапуска.
	var maintenance atomic.Bool
	maintenance.Store(cfg.Storefront.MaintenanceMode)
	inMaintenance := maintenance.Load

	coordinator := checkout.NewCoordinator(backendClient, resolver, orderEvents, checkout.Config{
		OrderListURL:  cfg.Storefront.OrderListURL(),
		StatusPageURL: cfg.Storefront.StatusPageURL(),
		Support:       cfg.Storefront.SupportContact,
		Timeout:       cfg.Storefront.ActionTimeout,
		Maintenance:   inMaintenance,
	})

	poller := status.NewPoller(backendClient, orderEvents, status.Config{
		Interval:    cfg.Storefront.PollInterval,
		MaxAttempts: cfg.Storefront.PollMaxAttempts,
		Support:     cfg.Storefront.SupportContact,
	})
	retrier := status.NewRetryTrigger(backendClient, poller, cfg.Storefront.SupportContact, cfg.Storefront.ActionTimeout)

	authService := auth.NewService(backendClient, auth.NewOTPLimiter(redisClient, cfg.Auth.OTPMaxFailures, cfg.Auth.OTPLockWindow))

	// === Middleware ===

	tracingMW := middleware.NewTracingMiddleware()
	// Отзыв токена живёт не дольше cookie
	revocations := tokens.NewBlacklist(redisClient, cfg.Auth.CookieMaxAge)
	authMW := middleware.NewAuthMiddleware(backendClient, cfg.Auth.CookieName).WithRevocations(revocations)

	var rateLimitMW, otpLimitMW *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		rateLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Prefix: "api",
			Limit:  cfg.RateLimit.RequestsLimit,
			Window: cfg.RateLimit.Window,
		})
		otpLimitMW = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Redis:  redisClient,
			Prefix: "auth",
			Limit:  cfg.RateLimit.AuthLimit,
			Window: cfg.RateLimit.Window,
		})
		logger.Info().
			Int("limit", cfg.RateLimit.RequestsLimit).
			Int("auth_limit", cfg.RateLimit.AuthLimit).
			Dur("window", cfg.RateLimit.Window).
			Msg("Rate limiting включён")
	}

	// === Роутер ===

	readiness := healthcheck.Composite(
		healthcheck.Redis(redisClient),
		mysqlCheck,
		healthcheck.Named("backend", backendClient.Ready),
	)

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: cfg.App.Name,
		Games: handler.NewGameHandler(handler.GameHandlerConfig{
			Catalog:  catalogService,
			Verifier: resolver,
			History:  backendClient,
			Accounts: savedAccounts,
			Timeout:  cfg.Storefront.ActionTimeout,
		}),
		Orders: handler.NewOrderHandler(handler.OrderHandlerConfig{
			Catalog:  catalogService,
			Orders:   coordinator,
			Status:   poller,
			Retrier:  retrier,
			History:  backendClient,
			Receipts: receipt.Formatter{Store: cfg.App.Name, Support: cfg.Storefront.SupportContact},
		}),
		Auth: handler.NewAuthHandler(authService, handler.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Domain: cfg.Auth.CookieDomain,
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.CookieMaxAge,
		}, cfg.Storefront.ActionTimeout).WithRevoker(revocations),
		Users:          handler.NewUserHandler(backendClient, backendClient, cfg.Storefront.WalletPageURL(), cfg.Storefront.ActionTimeout),
		AuthMW:         authMW,
		RateLimitMW:    rateLimitMW,
		OTPLimitMW:     otpLimitMW,
		TracingMW:      tracingMW,
		CORS:           middleware.StorefrontCORSConfig(cfg.Storefront.AllowedOrigins),
		Maintenance:    inMaintenance,
		ReadinessCheck: handler.ReadinessChecker(readiness),
		Debug:          cfg.IsDevelopment(),
	})

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr(), cfg.App.Name, metrics.WithReadinessCheck(readiness))
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Ошибка Metrics Server")
			}
		}()
	}

	// === HTTP сервер ===

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP сервер запущен")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Ошибка HTTP сервера")
		}
	}()

	// === Graceful Shutdown ===

	toggle := make(chan os.Signal, 1)
	signal.Notify(toggle, syscall.SIGUSR1)
	go func() {
		for range toggle {
			on := !maintenance.Load()
			maintenance.Store(on)
			logger.Warn().Bool("maintenance", on).Msg("Режим обслуживания переключён")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Получен сигнал завершения, останавливаем сервер...")

	// Открытые SSE стримы обрываются по истечении таймаута
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Ошибка при остановке сервера")
	}
	stopWorkers()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Metrics Server")
		}
	}

	if shutdownTracing != nil {
		if err := shutdownTracing(ctx); err != nil {
			logger.Error().Err(err).Msg("Ошибка остановки Tracing")
		}
	}

	logger.Info().Msg("Storefront gateway остановлен")
}
