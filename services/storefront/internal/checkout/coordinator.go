// Package checkout — создание заказа: проверки перед отправкой, два пути оплаты
// и скрытие внутренних ошибок поставщика.
package checkout

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/pkg/metrics"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/events"
	"example.com/topup-storefront/services/storefront/internal/watchdog"
)

// Backend — создание заказа на backend.
type Backend interface {
	CreateWalletOrder(ctx context.Context, token, idempotencyKey string, req backend.OrderRequest) (backend.CreateOrderResult, error)
	CreateGatewayOrder(ctx context.Context, token, idempotencyKey string, req backend.OrderRequest) (backend.CreateOrderResult, error)
}

// Verifier — проверка подтверждения игрового аккаунта.
type Verifier interface {
	IsVerified(ctx context.Context, userID, gameID string, id domain.PlayerIdentity) (domain.PlayerIdentity, bool, error)
}

// EventPublisher — события заказов.
type EventPublisher interface {
	OrderCreated(ctx context.Context, evt events.OrderCreated)
}

// Request — заказ, собранный на странице игры.
type Request struct {
	Token  string
	UserID string

	Game domain.Game
	// Package — выбранный пакет; nil, если пакет не выбран или не найден.
	Package *domain.Package

	Identity      domain.PlayerIdentity
	PaymentMethod domain.PaymentMethod
	Quantity      int

	// WalletBalance — баланс, известный витрине. Backend проверяет его повторно.
	WalletBalance decimal.Decimal
}

// Handle — куда отправить покупателя после создания заказа.
type Handle struct {
	OrderID       string               `json:"orderId,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	// Next — адрес перехода; External — полный редирект на платёжную страницу.
	Next     string `json:"next"`
	External bool   `json:"external"`
	Message  string `json:"message,omitempty"`
}

// Config — настройки Coordinator.
type Config struct {
	OrderListURL  string
	StatusPageURL string
	Support       string
	Timeout       time.Duration
	// Maintenance возвращает true, когда создание заказов отключено.
	Maintenance func() bool
}

// Coordinator создаёт заказы.
type Coordinator struct {
	backend  Backend
	verifier Verifier
	events   EventPublisher
	cfg      Config
	newKey   func() string
}

// NewCoordinator создаёт Coordinator. events может быть nil.
func NewCoordinator(b Backend, verifier Verifier, ev EventPublisher, cfg Config) *Coordinator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = watchdog.DefaultTimeout
	}
	if cfg.Maintenance == nil {
		cfg.Maintenance = func() bool { return false }
	}
	return &Coordinator{
		backend:  b,
		verifier: verifier,
		events:   ev,
		cfg:      cfg,
		newKey:   uuid.NewString,
	}
}

// CreateOrder проверяет условия и отправляет заказ.
//
// Проверки идут до любого сетевого запроса и в фиксированном порядке:
// обслуживание, авторизация, пакет, способ оплаты, баланс кошелька, игровой аккаунт.
func (c *Coordinator) CreateOrder(ctx context.Context, req Request) (*Handle, error) {
	identity, err := c.checkPreconditions(ctx, &req)
	if err != nil {
		metrics.RecordOrderCreation(string(req.PaymentMethod), "rejected")
		return nil, err
	}

	ctx = logger.WithUserID(ctx, req.UserID)
	log := logger.FromContext(ctx).With().
		Str("game", req.Game.Slug).
		Str("package_id", req.Package.ID).
		Str("payment_method", string(req.PaymentMethod)).
		Logger()

	orderReq := backend.OrderRequest{
		DiamondPackID: req.Package.ID,
		PlayerID:      identity.PlayerID,
		Server:        identity.ServerParam(req.Game.Profile),
		Quantity:      req.Quantity,
	}
	key := c.newKey()

	handle, err := watchdog.Run(ctx, c.cfg.Timeout, func(ctx context.Context) (*Handle, error) {
		if req.PaymentMethod == domain.PaymentMethodWallet {
			return c.walletOrder(ctx, req.Token, key, orderReq)
		}
		return c.gatewayOrder(ctx, req.Token, key, orderReq)
	})
	if err != nil {
		metrics.RecordOrderCreation(string(req.PaymentMethod), "error")
		if errors.Is(err, domain.ErrRequestTimeout) {
			return nil, err
		}
		return nil, c.surface(ctx, err)
	}

	metrics.RecordOrderCreation(string(req.PaymentMethod), "success")
	log.Info().Str("order_id", handle.OrderID).Bool("external", handle.External).Msg("Заказ создан")

	if c.events != nil {
		c.events.OrderCreated(ctx, events.OrderCreated{
			OrderID:       handle.OrderID,
			UserID:        req.UserID,
			GameID:        req.Game.ID,
			PackageID:     req.Package.ID,
			PaymentMethod: req.PaymentMethod,
			Amount:        total(req.Package.Price, req.Quantity),
		})
	}

	return handle, nil
}

// checkPreconditions возвращает нормализованный аккаунт.
func (c *Coordinator) checkPreconditions(ctx context.Context, req *Request) (domain.PlayerIdentity, error) {
	if c.cfg.Maintenance() {
		return domain.PlayerIdentity{}, domain.ErrMaintenance
	}
	if req.Token == "" {
		return domain.PlayerIdentity{}, domain.ErrAuthRequired
	}
	if req.Package == nil || req.Package.ID == "" {
		return domain.PlayerIdentity{}, domain.ErrNoPackageSelected
	}
	if !req.PaymentMethod.Valid() {
		return domain.PlayerIdentity{}, domain.NewUserError(domain.ErrValidation, "Выберите способ оплаты")
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if req.PaymentMethod == domain.PaymentMethodWallet {
		if req.WalletBalance.LessThan(total(req.Package.Price, req.Quantity)) {
			return domain.PlayerIdentity{}, domain.ErrInsufficientBalance
		}
	}

	id := req.Identity.Normalize()
	if err := id.CheckComplete(req.Game.Profile); err != nil {
		return domain.PlayerIdentity{}, err
	}

	if !req.Game.Profile.HasVerification {
		return id, nil
	}

	verified, ok, err := c.verifier.IsVerified(ctx, req.UserID, req.Game.ID, id)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("Ошибка чтения подтверждения аккаунта")
		return domain.PlayerIdentity{}, domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}
	if !ok {
		return domain.PlayerIdentity{}, domain.NewUserError(domain.ErrIdentityIncomplete, "Подтвердите игровой аккаунт перед оплатой")
	}
	return verified, nil
}

func (c *Coordinator) walletOrder(ctx context.Context, token, key string, req backend.OrderRequest) (*Handle, error) {
	res, err := c.backend.CreateWalletOrder(ctx, token, key, req)
	if err != nil {
		return nil, err
	}
	return &Handle{
		OrderID:       res.OrderID,
		PaymentMethod: domain.PaymentMethodWallet,
		Next:          c.cfg.OrderListURL,
		Message:       res.Message,
	}, nil
}

func (c *Coordinator) gatewayOrder(ctx context.Context, token, key string, req backend.OrderRequest) (*Handle, error) {
	req.RedirectURL = c.cfg.StatusPageURL

	res, err := c.backend.CreateGatewayOrder(ctx, token, key, req)
	if err != nil {
		return nil, err
	}

	if res.PaymentURL == "" {
		logger.FromContext(ctx).Warn().Str("order_id", res.OrderID).Msg("Backend не вернул paymentUrl, переходим на страницу статуса")
		return &Handle{
			OrderID:       res.OrderID,
			PaymentMethod: domain.PaymentMethodUPI,
			Next:          c.cfg.StatusPageURL,
			Message:       res.Message,
		}, nil
	}

	return &Handle{
		OrderID:       res.OrderID,
		PaymentMethod: domain.PaymentMethodUPI,
		Next:          res.PaymentURL,
		External:      true,
		Message:       res.Message,
	}, nil
}

// surface переводит ошибку backend в ошибку для покупателя.
func (c *Coordinator) surface(ctx context.Context, err error) error {
	return Surface(ctx, err, c.cfg.Support)
}

// Surface переводит ошибку финансовой операции в ошибку для покупателя.
// Внутренние ошибки поставщика заменяются обращением в поддержку.
func Surface(ctx context.Context, err error, support string) error {
	if errors.Is(err, backend.ErrNetwork) {
		return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}

	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		logger.FromContext(ctx).Error().Err(err).Msg("Неожиданная ошибка операции")
		return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}

	if apiErr.StatusCode == http.StatusUnauthorized {
		return domain.ErrAuthRequired
	}

	if IsOperational(apiErr.Message) {
		logger.FromContext(ctx).Error().
			Int("status", apiErr.StatusCode).
			Str("backend_message", apiErr.Message).
			Msg("Внутренняя ошибка поставщика скрыта от покупателя")
		return domain.NewUserError(domain.ErrInternalMasked, supportMessage(support))
	}

	return domain.NewUserError(domain.ErrBackendRejected, apiErr.Message)
}

func supportMessage(support string) string {
	if support == "" {
		return domain.MsgContactSupport
	}
	return domain.MsgContactSupport + " Контакт: " + support
}

func total(price decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 1 {
		return price
	}
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}
