package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
	"example.com/topup-storefront/services/storefront/internal/receipt"
	"example.com/topup-storefront/services/storefront/internal/status"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 50

	// receiptScanPages — сколько страниц истории просматривается в поиске заказа для чека.
	receiptScanPages = 5
)

// OrderHandler — создание заказов, статус, повтор выдачи и история.
type OrderHandler struct {
	catalog  CatalogService
	orders   OrderCreator
	status   StatusTracker
	retrier  FulfillmentRetrier
	history  OrderHistorySource
	receipts receipt.Formatter
	now      func() time.Time
}

// OrderHandlerConfig — зависимости OrderHandler.
type OrderHandlerConfig struct {
	Catalog  CatalogService
	Orders   OrderCreator
	Status   StatusTracker
	Retrier  FulfillmentRetrier
	History  OrderHistorySource
	Receipts receipt.Formatter
}

// NewOrderHandler создаёт обработчик заказов.
func NewOrderHandler(cfg OrderHandlerConfig) *OrderHandler {
	return &OrderHandler{
		catalog:  cfg.Catalog,
		orders:   cfg.Orders,
		status:   cfg.Status,
		retrier:  cfg.Retrier,
		history:  cfg.History,
		receipts: cfg.Receipts,
		now:      time.Now,
	}
}

// === Request/Response DTOs ===

// CreateOrderRequest — запрос на создание заказа.
type CreateOrderRequest struct {
	GameID        string          `json:"gameId" binding:"required"`
	PackageID     string          `json:"packageId"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Quantity      int             `json:"quantity" binding:"omitempty,min=1,max=100"`
	Identity      IdentityRequest `json:"identity"`
}

// IdentityRequest — игровой аккаунт получателя.
type IdentityRequest struct {
	PlayerID string `json:"playerId"`
	ZoneID   string `json:"zoneId"`
	Server   string `json:"server"`
}

// ListOrdersResponse — страница истории заказов.
type ListOrdersResponse struct {
	Orders     []domain.Order    `json:"orders"`
	Pagination domain.Pagination `json:"pagination"`
}

// === Handlers ===

// CreateOrder создаёт заказ.
// POST /api/v1/orders
//
// Пакет ищется в каталоге здесь; не найденный пакет передаётся как nil,
// порядок проверок определяет checkout.Coordinator.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Невалидные данные запроса")
		return
	}

	game, err := h.catalog.GameByID(ctx, req.GameID)
	if err != nil {
		HandleError(c, err, "CreateOrder")
		return
	}

	var selected *domain.Package
	if req.PackageID != "" {
		pkg, err := h.catalog.FindPackage(ctx, game, req.PackageID, h.now())
		switch {
		case err == nil:
			selected = &pkg
		case !errors.Is(err, domain.ErrNoPackageSelected):
			HandleError(c, err, "CreateOrder")
			return
		}
	}

	user, _ := httputil.CurrentUser(c)

	handle, err := h.orders.CreateOrder(ctx, checkout.Request{
		Token:   httputil.Token(c),
		UserID:  httputil.UserID(c),
		Game:    game,
		Package: selected,
		Identity: domain.PlayerIdentity{
			PlayerID: req.Identity.PlayerID,
			ZoneID:   req.Identity.ZoneID,
			Server:   req.Identity.Server,
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Quantity:      req.Quantity,
		WalletBalance: user.WalletBalance,
	})
	if err != nil {
		HandleError(c, err, "CreateOrder")
		return
	}

	log.Info().
		Str("order_id", handle.OrderID).
		Str("game", game.Slug).
		Str("payment_method", string(handle.PaymentMethod)).
		Msg("Заказ создан")

	c.JSON(http.StatusCreated, handle)
}

// GetStatus выполняет один запрос статуса заказа.
// GET /api/v1/orders/:id/status
func (h *OrderHandler) GetStatus(c *gin.Context) {
	snap, err := h.status.Check(c.Request.Context(), httputil.Token(c), c.Param("id"))
	if err != nil {
		HandleError(c, err, "GetStatus")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// StreamStatus опрашивает статус и отправляет Server-Sent Events при каждой смене состояния.
// GET /api/v1/orders/:id/status/stream
//
// Стрим закрывается на терминальном состоянии; отключение клиента отменяет опрос.
func (h *OrderHandler) StreamStatus(c *gin.Context) {
	ctx := c.Request.Context()
	token, orderID := httputil.Token(c), c.Param("id")

	updates := make(chan status.Snapshot, 4)
	go func() {
		defer close(updates)
		h.status.Run(ctx, token, orderID, func(s status.Snapshot) {
			select {
			case updates <- s:
			case <-ctx.Done():
			}
		})
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	for snap := range updates {
		c.SSEvent("status", snap)
		c.Writer.Flush()
	}
}

// RetryFulfillment повторяет выдачу оплаченного заказа.
// POST /api/v1/orders/:id/retry-fulfillment
func (h *OrderHandler) RetryFulfillment(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := h.retrier.Retry(ctx, httputil.Token(c), c.Param("id"))
	if err != nil {
		HandleError(c, err, "RetryFulfillment")
		return
	}

	logger.FromContext(ctx).Info().Str("order_id", snap.OrderID).Msg("Повтор выдачи запрошен")
	c.JSON(http.StatusAccepted, snap)
}

// ListOrders возвращает страницу истории заказов.
// GET /api/v1/orders?page=1&limit=10
func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, limit := pageParams(c)

	orders, pagination, err := h.loadPage(c.Request.Context(), httputil.Token(c), page, limit)
	if err != nil {
		HandleError(c, err, "ListOrders")
		return
	}

	c.JSON(http.StatusOK, ListOrdersResponse{Orders: orders, Pagination: pagination})
}

// Receipt отдаёт текстовый чек заказа файлом.
// GET /api/v1/orders/:id/receipt
func (h *OrderHandler) Receipt(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("id")
	token := httputil.Token(c)

	var (
		order domain.Order
		found bool
	)
	for page := 1; page <= receiptScanPages && !found; page++ {
		orders, pagination, err := h.loadPage(ctx, token, page, maxPageLimit)
		if err != nil {
			HandleError(c, err, "Receipt")
			return
		}
		order, found = receipt.FindOrder(orders, orderID)
		if len(orders) == 0 || page >= pagination.TotalPages {
			break
		}
	}
	if !found {
		HandleError(c, domain.ErrOrderNotFound, "Receipt")
		return
	}

	text, err := h.receipts.Render(order)
	if err != nil {
		HandleError(c, err, "Receipt")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, receipt.FileName(order)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func (h *OrderHandler) loadPage(ctx context.Context, token string, page, limit int) ([]domain.Order, domain.Pagination, error) {
	raw, err := h.history.OrderHistory(ctx, token, page, limit)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return receipt.NormalizeOrders(raw, page, limit)
}

// pageParams разбирает page и limit; невалидные значения заменяются значениями по умолчанию.
func pageParams(c *gin.Context) (int, int) {
	page, limit := 1, defaultPageLimit

	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= maxPageLimit {
		limit = v
	}
	return page, limit
}
