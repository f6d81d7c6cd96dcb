// Package metrics предоставляет Prometheus метрики storefront gateway.
//
// Типы метрик:
//   - Counter: только растёт (запросы, попытки опроса)
//   - Histogram: распределение значений (latency)
//
// Использование:
//
//	srv := metrics.NewServer(":9090", "storefront")
//	go srv.Start()
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/topup-storefront/pkg/logger"
)

// =============================================================================
// Метрики
// =============================================================================

var (
	// RequestsTotal — входящие HTTP запросы.
	// PromQL: rate(requests_total{service="storefront"}[5m])
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Общее количество запросов по сервису, маршруту и статусу",
		},
		[]string{"service", "method", "status"},
	)

	// RequestDuration — latency входящих запросов.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Время выполнения запроса в секундах",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method"},
	)

	// BackendCallDuration — latency вызовов внешнего backend API.
	// endpoint — шаблон пути (без id), outcome — success / client_error / server_error / transport_error.
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Время вызова backend API в секундах",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "outcome"},
	)

	// StatusPollAttempts — количество запросов статуса заказа, сделанных поллером.
	StatusPollAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_poll_attempts_total",
			Help: "Количество запросов статуса заказа, выполненных поллером",
		},
	)

	// StatusPollOutcomes — чем закончился опрос: итоговое UI состояние.
	StatusPollOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_poll_outcomes_total",
			Help: "Итоговые состояния опроса статуса заказа",
		},
		[]string{"state"},
	)

	// OrdersCreated — попытки создания заказа по способу оплаты и результату.
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Попытки создания заказа по способу оплаты и результату",
		},
		[]string{"payment_method", "result"},
	)
)

// RecordRequest записывает метрики входящего запроса.
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordBackendCall записывает метрики вызова backend API.
func RecordBackendCall(endpoint, outcome string, duration time.Duration) {
	BackendCallDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
}

// RecordPollOutcome фиксирует итоговое состояние опроса.
func RecordPollOutcome(state string) {
	StatusPollOutcomes.WithLabelValues(state).Inc()
}

// RecordOrderCreation фиксирует попытку создания заказа.
func RecordOrderCreation(paymentMethod, result string) {
	OrdersCreated.WithLabelValues(paymentMethod, result).Inc()
}

// =============================================================================
// HTTP Server для /metrics
// =============================================================================

// ReadinessChecker возвращает nil, если сервис готов принимать трафик.
type ReadinessChecker func(ctx context.Context) error

// Server — HTTP сервер для экспорта метрик Prometheus.
type Server struct {
	httpServer     *http.Server
	service        string
	readinessCheck ReadinessChecker
}

// Option — функциональная опция Server.
type Option func(*Server)

// WithReadinessCheck подключает проверку готовности к /readyz.
func WithReadinessCheck(checker ReadinessChecker) Option {
	return func(s *Server) {
		s.readinessCheck = checker
	}
}

// NewServer создаёт metrics server.
func NewServer(addr, service string, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"alive"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if s.readinessCheck == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ready"}`))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := s.readinessCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			// Детали наружу не отдаём
			_, _ = w.Write([]byte(`{"status":"not_ready"}`))
			logger.Warn().Err(err).Str("service", service).Msg("Readiness check не пройден")
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start запускает сервер. Блокирующий вызов — запускать в горутине.
func (s *Server) Start() error {
	logger.Info().Str("service", s.service).Str("addr", s.httpServer.Addr).Msg("Запуск Metrics Server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// =============================================================================
// Gin Middleware
// =============================================================================

// GinMetricsMiddleware собирает requests_total и request_duration_seconds.
// Для SSE маршрутов длительность — время жизни стрима.
func GinMetricsMiddleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		RecordRequest(service, route, status, time.Since(start))
	}
}
