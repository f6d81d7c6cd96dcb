package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/middleware"
)

func TestRouter_HealthEndpoints(t *testing.T) {
	ready := true
	r := NewRouter(RouterConfig{
		ReadinessCheck: func(context.Context) error {
			if ready {
				return nil
			}
			return errors.New("redis down")
		},
	})

	w := doJSON(r.Engine(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r.Engine(), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ready = false
	w = doJSON(r.Engine(), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "redis")
}

func TestRouter_MaintenanceBlocksOrderCreation(t *testing.T) {
	created := 0
	orders := &MockOrders{CreateOrderFunc: func(context.Context, checkout.Request) (*checkout.Handle, error) {
		created++
		return &checkout.Handle{OrderID: "o1"}, nil
	}}
	history := &MockHistory{OrderHistoryFunc: func(context.Context, string, int, int) ([]byte, error) {
		return []byte(`{"orders":[]}`), nil
	}}

	r := NewRouter(RouterConfig{
		Orders:      NewOrderHandler(OrderHandlerConfig{Catalog: orderCatalog(), Orders: orders, History: history}),
		CORS:        middleware.DefaultCORSConfig(),
		Maintenance: func() bool { return true },
	})

	w := doJSON(r.Engine(), http.MethodPost, "/api/v1/orders", CreateOrderRequest{GameID: "g-ml", PackageID: "p1", PaymentMethod: "wallet"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "maintenance")
	assert.Zero(t, created, "backend не вызывается в режиме обслуживания")

	w = doJSON(r.Engine(), http.MethodPost, "/api/v1/orders/o1/retry-fulfillment", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(r.Engine(), http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code, "история доступна в режиме обслуживания")
}

func TestRouter_CatalogRoutes(t *testing.T) {
	catalog := &MockCatalog{
		GamesFunc:    func(context.Context) ([]domain.Game, error) { return []domain.Game{mlGame}, nil },
		GameByIDFunc: gameByID,
	}
	r := NewRouter(RouterConfig{Games: NewGameHandler(GameHandlerConfig{Catalog: catalog})})

	w := doJSON(r.Engine(), http.MethodGet, "/api/v1/games", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mobile-legends")

	w = doJSON(r.Engine(), http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
