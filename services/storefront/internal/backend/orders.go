package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// OrderRequest — тело запроса создания заказа.
// RedirectURL заполняется только для оплаты через шлюз.
type OrderRequest struct {
	DiamondPackID string `json:"diamondPackId"`
	PlayerID      string `json:"playerId"`
	Server        string `json:"server"`
	Quantity      int    `json:"quantity"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
}

// CreateOrderResult — ответ на создание заказа.
type CreateOrderResult struct {
	OrderID    string
	PaymentURL string // Пусто для оплаты кошельком
	Message    string
}

// CreateWalletOrder создаёт заказ со списанием с кошелька.
// POST /api/v1/order/diamond-pack
// Списание и создание заказа backend выполняет атомарно.
func (c *Client) CreateWalletOrder(ctx context.Context, token, idempotencyKey string, req OrderRequest) (CreateOrderResult, error) {
	req.RedirectURL = ""
	return c.createOrder(ctx, call{
		name:           "order.diamond-pack",
		method:         http.MethodPost,
		path:           "/api/v1/order/diamond-pack",
		token:          token,
		body:           req,
		idempotencyKey: idempotencyKey,
	})
}

// CreateGatewayOrder создаёт заказ с оплатой через внешний шлюз.
// POST /api/v1/order/diamond-pack-upi
func (c *Client) CreateGatewayOrder(ctx context.Context, token, idempotencyKey string, req OrderRequest) (CreateOrderResult, error) {
	return c.createOrder(ctx, call{
		name:           "order.diamond-pack-upi",
		method:         http.MethodPost,
		path:           "/api/v1/order/diamond-pack-upi",
		token:          token,
		body:           req,
		idempotencyKey: idempotencyKey,
	})
}

func (c *Client) createOrder(ctx context.Context, cl call) (CreateOrderResult, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return CreateOrderResult{}, err
	}

	root, err := Decode(body)
	if err != nil {
		// Заказ создан (2xx), но тело нечитаемо: дальше решает вызывающий.
		return CreateOrderResult{}, nil
	}

	return CreateOrderResult{
		OrderID: FirstString(root,
			"orderId", "order.orderId", "order._id", "order.id",
			"transaction.orderId", "data.orderId", "data._id"),
		PaymentURL: FirstString(root,
			"transaction.paymentUrl", "transaction.payment_url",
			"paymentUrl", "data.paymentUrl", "data.transaction.paymentUrl"),
		Message: FirstString(root, "message"),
	}, nil
}

// StatusReport — пара статусов заказа и нормализованный заказ.
type StatusReport struct {
	PaymentStatus string
	OrderStatus   string
	Order         domain.Order
}

// OrderStatus запрашивает статус заказа. Чистое чтение, безопасно повторять.
// GET /api/v1/order/order-status?orderId=
//
// Повторы здесь выключены: повторяет сам поллер.
func (c *Client) OrderStatus(ctx context.Context, token, orderID string) (StatusReport, error) {
	body, err := c.do(ctx, call{
		name:   "order.order-status",
		method: http.MethodGet,
		path:   "/api/v1/order/order-status",
		token:  token,
		query:  map[string]string{"orderId": orderID},
	})
	if err != nil {
		return StatusReport{}, err
	}

	root, err := Decode(body)
	if err != nil {
		return StatusReport{}, fmt.Errorf("ответ статуса заказа: %w", err)
	}

	orderNode, ok := FirstMap(root, "order", "data.order", "data")
	if !ok {
		return StatusReport{}, fmt.Errorf("ответ статуса заказа без поля order")
	}

	order := NormalizeOrder(orderNode)
	if order.ID == "" {
		order.ID = orderID
	}

	return StatusReport{
		PaymentStatus: strings.ToLower(FirstString(orderNode, "paymentStatus", "payment.status", "payment_status")),
		OrderStatus:   strings.ToLower(FirstString(orderNode, "status", "orderStatus")),
		Order:         order,
	}, nil
}

// OrderHistory возвращает страницу истории заказов как есть.
// Нормализацию выполняет вызывающий через NormalizeOrder.
// GET /api/v1/order/history?page=&limit=
func (c *Client) OrderHistory(ctx context.Context, token string, page, limit int) ([]byte, error) {
	return c.do(ctx, call{
		name:   "order.history",
		method: http.MethodGet,
		path:   "/api/v1/order/history",
		token:  token,
		query: map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		},
		retry: true,
	})
}

// RetryFulfillment просит backend повторить выдачу оплаченного заказа.
// POST /api/v1/order/retry-fulfillment. Вызывается только по действию покупателя.
func (c *Client) RetryFulfillment(ctx context.Context, token, idempotencyKey, orderID string) (string, error) {
	body, err := c.do(ctx, call{
		name:           "order.retry-fulfillment",
		method:         http.MethodPost,
		path:           "/api/v1/order/retry-fulfillment",
		token:          token,
		body:           map[string]string{"orderId": orderID},
		idempotencyKey: idempotencyKey,
	})
	if err != nil {
		return "", err
	}

	root, err := Decode(body)
	if err != nil {
		return "", nil
	}
	return FirstString(root, "message"), nil
}

// NormalizeOrder приводит заказ из любой версии API к domain.Order.
func NormalizeOrder(node any) domain.Order {
	amount, _ := FirstDecimal(node, "amount", "totalAmount", "price", "total")
	createdAt, _ := FirstTime(node, "createdAt", "created_at", "date")

	order := domain.Order{
		ID:          FirstString(node, "orderId", "_id", "id", "orderNumber"),
		OrderNumber: FirstString(node, "orderNumber", "order_number", "orderNo"),
		GameName:    FirstString(node, "gameName", "game.name", "game"),
		PackageName: FirstString(node, "packageName", "diamondPack.name", "product.name", "itemName"),
		Identity: domain.PlayerIdentity{
			PlayerID: FirstString(node, "playerId", "player_id", "gameUserId", "userInfo.playerId"),
			ZoneID:   FirstString(node, "zoneId", "zone_id", "userInfo.zoneId"),
			Server:   FirstString(node, "server", "serverId", "userInfo.server"),
		},
		PaymentMethod: domain.PaymentMethod(strings.ToLower(FirstString(node, "paymentMethod", "payment_method", "payment.method"))),
		Amount:        amount,
		Currency:      strings.ToUpper(FirstString(node, "currency")),
		Status:        domain.OrderStatus(strings.ToLower(FirstString(node, "status", "orderStatus"))),
		PaymentStatus: domain.PaymentStatus(strings.ToLower(FirstString(node, "paymentStatus", "payment.status", "payment_status"))),
		Description:   FirstString(node, "description"),
		CreatedAt:     createdAt,
	}

	if items, ok := FirstList(node, "items", "orderItems"); ok {
		for _, it := range items {
			qty, ok := FirstInt(it, "quantity", "qty")
			if !ok || qty <= 0 {
				qty = 1
			}
			price, _ := FirstDecimal(it, "price", "amount")
			order.Items = append(order.Items, domain.OrderItem{
				Name:     FirstString(it, "name", "itemName", "title"),
				Quantity: qty,
				Price:    price,
			})
		}
	}

	if order.PackageName == "" && len(order.Items) > 0 {
		order.PackageName = order.Items[0].Name
	}

	return order
}
