package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/receipt"
	"example.com/topup-storefront/services/storefront/internal/status"
)

func setupOrderRouter(h *OrderHandler) *gin.Engine {
	r := gin.New()
	orders := r.Group("/api/v1/orders", withUser(testUser))
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id/status", h.GetStatus)
	orders.GET("/:id/status/stream", h.StreamStatus)
	orders.POST("/:id/retry-fulfillment", h.RetryFulfillment)
	orders.GET("/:id/receipt", h.Receipt)
	return r
}

var diamonds = domain.Package{ID: "p1", ProductID: "ML86", Name: "86 Diamonds", Price: decimal.NewFromInt(67), Status: domain.PackageStatusActive}

func orderCatalog() *MockCatalog {
	return &MockCatalog{
		GameByIDFunc: gameByID,
		FindPackageFunc: func(_ context.Context, _ domain.Game, id string, _ time.Time) (domain.Package, error) {
			if id == diamonds.ID {
				return diamonds, nil
			}
			return domain.Package{}, domain.ErrNoPackageSelected
		},
	}
}

// =====================================
// Тесты CreateOrder
// =====================================

func TestCreateOrder_Success(t *testing.T) {
	var got checkout.Request
	orders := &MockOrders{CreateOrderFunc: func(_ context.Context, req checkout.Request) (*checkout.Handle, error) {
		got = req
		return &checkout.Handle{
			OrderID:       "order-1",
			PaymentMethod: domain.PaymentMethodUPI,
			Next:          "https://pay.example.com/abc",
			External:      true,
		}, nil
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Catalog: orderCatalog(), Orders: orders}))

	w := doJSON(r, http.MethodPost, "/api/v1/orders", CreateOrderRequest{
		GameID:        "mobile-legends",
		PackageID:     "p1",
		PaymentMethod: "upi",
		Quantity:      2,
		Identity:      IdentityRequest{PlayerID: "12345678", ZoneID: "1234"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var handle checkout.Handle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &handle))
	assert.Equal(t, "order-1", handle.OrderID)
	assert.True(t, handle.External)

	assert.Equal(t, testToken, got.Token)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "g-ml", got.Game.ID)
	require.NotNil(t, got.Package)
	assert.Equal(t, "p1", got.Package.ID)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, domain.PaymentMethodUPI, got.PaymentMethod)
	assert.Equal(t, "12345678", got.Identity.PlayerID)
	assert.True(t, testUser.WalletBalance.Equal(got.WalletBalance), "баланс берётся из профиля middleware")
}

func TestCreateOrder_UnknownPackagePassedAsNil(t *testing.T) {
	orders := &MockOrders{CreateOrderFunc: func(_ context.Context, req checkout.Request) (*checkout.Handle, error) {
		assert.Nil(t, req.Package)
		return nil, domain.ErrNoPackageSelected
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Catalog: orderCatalog(), Orders: orders}))

	w := doJSON(r, http.MethodPost, "/api/v1/orders", CreateOrderRequest{GameID: "g-ml", PackageID: "missing", PaymentMethod: "wallet"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no_package_selected")
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		catalog        *MockCatalog
		createErr      error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Невалидное тело",
			body:           map[string]any{"paymentMethod": "wallet"},
			catalog:        orderCatalog(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_request",
		},
		{
			name:           "Игра не найдена",
			body:           CreateOrderRequest{GameID: "unknown", PaymentMethod: "wallet"},
			catalog:        orderCatalog(),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "game_not_found",
		},
		{
			name: "Каталог недоступен",
			body: CreateOrderRequest{GameID: "g-ml", PackageID: "p1", PaymentMethod: "wallet"},
			catalog: &MockCatalog{
				GameByIDFunc: gameByID,
				FindPackageFunc: func(context.Context, domain.Game, string, time.Time) (domain.Package, error) {
					return domain.Package{}, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, backend.ErrNetwork)
				},
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "catalog_unavailable",
		},
		{
			name:           "Недостаточно средств",
			body:           CreateOrderRequest{GameID: "g-ml", PackageID: "p1", PaymentMethod: "wallet"},
			catalog:        orderCatalog(),
			createErr:      domain.ErrInsufficientBalance,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "insufficient_balance",
		},
		{
			name:           "Аккаунт не подтверждён",
			body:           CreateOrderRequest{GameID: "g-ml", PackageID: "p1", PaymentMethod: "wallet"},
			catalog:        orderCatalog(),
			createErr:      domain.NewUserError(domain.ErrIdentityIncomplete, "Подтвердите игровой аккаунт"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "identity_incomplete",
		},
		{
			name:           "Скрытая ошибка поставщика",
			body:           CreateOrderRequest{GameID: "g-ml", PackageID: "p1", PaymentMethod: "upi"},
			catalog:        orderCatalog(),
			createErr:      domain.NewUserError(domain.ErrInternalMasked, domain.MsgContactSupport),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "contact_support",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &MockOrders{CreateOrderFunc: func(context.Context, checkout.Request) (*checkout.Handle, error) {
				if tt.createErr != nil {
					return nil, tt.createErr
				}
				return &checkout.Handle{OrderID: "o"}, nil
			}}
			r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Catalog: tt.catalog, Orders: orders}))

			w := doJSON(r, http.MethodPost, "/api/v1/orders", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedCode)
		})
	}
}

// =====================================
// Тесты статуса
// =====================================

func TestGetStatus(t *testing.T) {
	tracker := &MockStatus{CheckFunc: func(_ context.Context, token, orderID string) (status.Snapshot, error) {
		assert.Equal(t, testToken, token)
		return status.Snapshot{OrderID: orderID, State: domain.UIStateProcessing}, nil
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Status: tracker}))

	w := doJSON(r, http.MethodGet, "/api/v1/orders/order-1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap status.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "order-1", snap.OrderID)
	assert.Equal(t, domain.UIStateProcessing, snap.State)
}

func TestGetStatus_Unauthorized(t *testing.T) {
	tracker := &MockStatus{CheckFunc: func(context.Context, string, string) (status.Snapshot, error) {
		return status.Snapshot{}, &backend.APIError{StatusCode: http.StatusUnauthorized, Message: "expired"}
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Status: tracker}))

	w := doJSON(r, http.MethodGet, "/api/v1/orders/order-1/status", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStreamStatus(t *testing.T) {
	tracker := &MockStatus{RunFunc: func(_ context.Context, _, orderID string, onChange func(status.Snapshot)) status.Snapshot {
		onChange(status.Snapshot{OrderID: orderID, State: domain.UIStateVerifying})
		onChange(status.Snapshot{OrderID: orderID, State: domain.UIStateProcessing, Attempt: 2})
		final := status.Snapshot{OrderID: orderID, State: domain.UIStateCompleted, Attempt: 4, Terminal: true}
		onChange(final)
		return final
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Status: tracker}))

	w := doJSON(r, http.MethodGet, "/api/v1/orders/order-1/status/stream", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event:status"))

	iVerifying := strings.Index(body, string(domain.UIStateVerifying))
	iProcessing := strings.Index(body, string(domain.UIStateProcessing))
	iCompleted := strings.Index(body, string(domain.UIStateCompleted))
	assert.True(t, iVerifying >= 0 && iVerifying < iProcessing && iProcessing < iCompleted, "события идут в порядке смены состояний")
}

func TestRetryFulfillment(t *testing.T) {
	t.Run("повтор принят", func(t *testing.T) {
		retrier := &MockStatus{RetryFunc: func(_ context.Context, _, orderID string) (status.Snapshot, error) {
			return status.Snapshot{OrderID: orderID, State: domain.UIStateProcessing}, nil
		}}
		r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Retrier: retrier}))

		w := doJSON(r, http.MethodPost, "/api/v1/orders/order-1/retry-fulfillment", nil)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Contains(t, w.Body.String(), string(domain.UIStateProcessing))
	})

	t.Run("заказ не в том состоянии", func(t *testing.T) {
		retrier := &MockStatus{RetryFunc: func(context.Context, string, string) (status.Snapshot, error) {
			return status.Snapshot{State: domain.UIStateCompleted}, domain.ErrRetryNotAllowed
		}}
		r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{Retrier: retrier}))

		w := doJSON(r, http.MethodPost, "/api/v1/orders/order-1/retry-fulfillment", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

// =====================================
// Тесты истории и чека
// =====================================

const historyPage = `{"orders":[
	{"_id":"o1","orderNumber":"TP-1001","gameName":"Mobile Legends","packageName":"86 Diamonds","playerId":"12345678","zoneId":"1234","paymentMethod":"upi","amount":67,"currency":"inr","status":"completed","paymentStatus":"paid","createdAt":"2026-01-05T10:30:00Z"},
	{"_id":"o2","amount":"120.5","status":"failed"}
],"pagination":{"page":1,"limit":10,"total":2,"totalPages":1}}`

func TestListOrders(t *testing.T) {
	history := &MockHistory{OrderHistoryFunc: func(_ context.Context, token string, page, limit int) ([]byte, error) {
		assert.Equal(t, testToken, token)
		assert.Equal(t, 2, page)
		assert.Equal(t, defaultPageLimit, limit, "невалидный limit заменяется значением по умолчанию")
		return []byte(historyPage), nil
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{History: history}))

	w := doJSON(r, http.MethodGet, "/api/v1/orders?page=2&limit=500", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ListOrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "TP-1001", resp.Orders[0].OrderNumber)
	assert.Equal(t, int64(2), resp.Pagination.Total)
}

func TestReceipt(t *testing.T) {
	history := &MockHistory{OrderHistoryFunc: func(context.Context, string, int, int) ([]byte, error) {
		return []byte(historyPage), nil
	}}
	h := NewOrderHandler(OrderHandlerConfig{
		History:  history,
		Receipts: receipt.Formatter{Store: "TopUp Store", Support: "support@topup.example"},
	})
	r := setupOrderRouter(h)

	t.Run("чек найденного заказа", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/orders/o1/receipt", nil)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(t, `attachment; filename="receipt-TP-1001.txt"`, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
		assert.Contains(t, w.Body.String(), "TP-1001")
		assert.Contains(t, w.Body.String(), "67.00 INR")
	})

	t.Run("заказ не найден", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/orders/nope/receipt", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReceipt_ScansPages(t *testing.T) {
	var pages []int
	history := &MockHistory{OrderHistoryFunc: func(_ context.Context, _ string, page, _ int) ([]byte, error) {
		pages = append(pages, page)
		if page == 2 {
			return []byte(`{"orders":[{"_id":"late","amount":10}],"pagination":{"totalPages":3}}`), nil
		}
		return []byte(`{"orders":[{"_id":"other","amount":10}],"pagination":{"totalPages":3}}`), nil
	}}
	r := setupOrderRouter(NewOrderHandler(OrderHandlerConfig{History: history, Receipts: receipt.Formatter{Store: "S"}}))

	w := doJSON(r, http.MethodGet, "/api/v1/orders/late/receipt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []int{1, 2}, pages)
}
