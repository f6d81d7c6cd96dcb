// Package backend — HTTP клиент внешнего backend API витрины.
//
// Все вызовы проходят через circuit breaker, пишут метрики и прокидывают
// trace context. GET запросы каталога и истории могут повторяться;
// POST (создание заказа, повтор выдачи) не повторяются никогда.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"example.com/topup-storefront/pkg/circuitbreaker"
	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/pkg/metrics"
	"example.com/topup-storefront/pkg/tracing"
)

// Заголовки, которые уходят в backend.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderTraceID        = "X-Trace-ID"
	HeaderCorrelationID  = "X-Correlation-ID"
)

// Client — клиент backend API.
type Client struct {
	reader  *resty.Client // GET с повторами
	writer  *resty.Client // без повторов
	breaker *circuitbreaker.Breaker
}

// Config — параметры клиента.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	ReadRetries int
	Breaker     *circuitbreaker.Breaker // nil — breaker по умолчанию
}

// New создаёт клиент backend API.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.New("backend")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")

	reader := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.ReadRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	writer := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	logger.Info().Str("base_url", base).Msg("Создан клиент backend API")

	return &Client{
		reader:  reader,
		writer:  writer,
		breaker: cfg.Breaker,
	}
}

// call — описание одного запроса к backend.
type call struct {
	name           string // Шаблон пути для метрик и логов
	method         string
	path           string
	token          string
	query          map[string]string
	body           any
	idempotencyKey string
	retry          bool
}

// do выполняет запрос и возвращает тело успешного ответа.
// Транспортные ошибки оборачиваются в ErrNetwork, ответы 4xx/5xx и
// success=false — в *APIError.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	var body []byte
	err := c.breaker.Execute(func() error {
		var err error
		body, err = c.execute(ctx, cl)
		return err
	}, isInfraFailure)
	err = wrapBreakerError(err)

	duration := time.Since(start)
	metrics.RecordBackendCall(cl.name, outcome(err), duration)

	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("method", cl.method).
		Str("endpoint", cl.name).
		Dur("duration", duration).
		Msg("Вызов backend API")

	return body, err
}

func (c *Client) execute(ctx context.Context, cl call) ([]byte, error) {
	client := c.writer
	if cl.retry && cl.method == http.MethodGet {
		client = c.reader
	}

	req := client.R().SetContext(ctx)

	tracing.InjectHTTP(ctx, req.Header)
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		req.SetHeader(HeaderTraceID, traceID)
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		req.SetHeader(HeaderCorrelationID, correlationID)
	}
	if cl.token != "" {
		req.SetAuthToken(cl.token)
	}
	if cl.idempotencyKey != "" {
		req.SetHeader(HeaderIdempotencyKey, cl.idempotencyKey)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	resp, err := req.Execute(cl.method, cl.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, cl.method, cl.name, err)
	}

	raw := resp.Body()
	if resp.IsError() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    messageFromBody(raw, resp.StatusCode()),
			Body:       raw,
		}
	}

	if rejected(raw) {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    messageFromBody(raw, 0),
			Body:       raw,
		}
	}

	return raw, nil
}

// rejected — ответ 2xx, но с явным success=false.
func rejected(body []byte) bool {
	root, err := Decode(body)
	if err != nil {
		return false
	}
	success, ok := FirstBool(root, "success")
	return ok && !success
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNetwork):
		return "transport_error"
	}
	if apiErr, ok := AsAPIError(err); ok && apiErr.StatusCode >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// Ready возвращает ошибку, если breaker открыт. Используется в /readyz.
func (c *Client) Ready(_ context.Context) error {
	if c.breaker.IsOpen() {
		return circuitbreaker.ErrOpen
	}
	return nil
}
