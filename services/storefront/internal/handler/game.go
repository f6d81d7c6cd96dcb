package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/httputil"
	"example.com/topup-storefront/services/storefront/internal/identity"
	"example.com/topup-storefront/services/storefront/internal/watchdog"
)

// savedAccountsLimit — сколько последних аккаунтов показывать на странице игры.
const savedAccountsLimit = 10

// GameHandler — каталог игр, пакеты и проверка игрового аккаунта.
type GameHandler struct {
	catalog  CatalogService
	verifier IdentityVerifier
	history  ValidationHistorySource
	accounts SavedAccountLister // nil — MySQL выключен
	timeout  time.Duration
	now      func() time.Time
}

// GameHandlerConfig — зависимости GameHandler.
type GameHandlerConfig struct {
	Catalog  CatalogService
	Verifier IdentityVerifier
	History  ValidationHistorySource
	Accounts SavedAccountLister
	Timeout  time.Duration
}

// NewGameHandler создаёт обработчик каталога.
func NewGameHandler(cfg GameHandlerConfig) *GameHandler {
	return &GameHandler{
		catalog:  cfg.Catalog,
		verifier: cfg.Verifier,
		history:  cfg.History,
		accounts: cfg.Accounts,
		timeout:  cfg.Timeout,
		now:      time.Now,
	}
}

// === Request/Response DTOs ===

// GameResponse — игра и требования к игровому аккаунту.
type GameResponse struct {
	ID              string   `json:"id"`
	Slug            string   `json:"slug"`
	Name            string   `json:"name"`
	Category        string   `json:"category,omitempty"`
	Icon            string   `json:"icon,omitempty"`
	IsFeatured      bool     `json:"isFeatured"`
	RequiresZoneID  bool     `json:"requiresZoneId"`
	RequiresServer  bool     `json:"requiresServer"`
	HasVerification bool     `json:"hasVerification"`
	Servers         []string `json:"servers,omitempty"`
}

// PackageResponse — пакет игровой валюты.
type PackageResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Logo        string          `json:"logo,omitempty"`
	StartTime   *time.Time      `json:"startTime,omitempty"`
	EndTime     *time.Time      `json:"endTime,omitempty"`
	Promotion   bool            `json:"promotion"`
}

// PackagesResponse — пакеты игры. CatalogUnavailable — backend не ответил, список пуст.
type PackagesResponse struct {
	Game               GameResponse      `json:"game"`
	Packages           []PackageResponse `json:"packages"`
	CatalogUnavailable bool              `json:"catalogUnavailable"`
}

// VerifyRequest — игровой аккаунт для проверки.
type VerifyRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
	ZoneID   string `json:"zoneId"`
	Server   string `json:"server"`
}

func toGameResponse(g domain.Game) GameResponse {
	return GameResponse{
		ID:              g.ID,
		Slug:            g.Slug,
		Name:            g.Name,
		Category:        g.Category,
		Icon:            g.Icon,
		IsFeatured:      g.IsFeatured,
		RequiresZoneID:  g.Profile.RequiresZoneID,
		RequiresServer:  g.Profile.RequiresServer,
		HasVerification: g.Profile.HasVerification,
		Servers:         g.Profile.Servers,
	}
}

func toPackageResponse(p domain.Package) PackageResponse {
	return PackageResponse{
		ID:          p.ID,
		ProductID:   p.ProductID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Logo:        p.Logo,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Promotion:   p.Synthetic,
	}
}

func toGameList(games []domain.Game) []GameResponse {
	out := make([]GameResponse, 0, len(games))
	for _, g := range games {
		out = append(out, toGameResponse(g))
	}
	return out
}

// === Handlers ===

// ListGames возвращает активные игры.
// GET /api/v1/games
func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.catalog.Games(c.Request.Context())
	if err != nil {
		HandleError(c, err, "ListGames")
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": toGameList(games)})
}

// RefreshGames сбрасывает кэш каталога.
// POST /api/v1/games/refresh
func (h *GameHandler) RefreshGames(c *gin.Context) {
	ctx := c.Request.Context()

	games, err := h.catalog.Refresh(ctx)
	if err != nil {
		HandleError(c, err, "RefreshGames")
		return
	}

	logger.FromContext(ctx).Info().Int("games", len(games)).Msg("Каталог игр обновлён")
	c.JSON(http.StatusOK, gin.H{"games": toGameList(games)})
}

// ListPackages возвращает пакеты игры.
// GET /api/v1/games/:game/packages
//
// Недоступность backend не ошибка: 200 с пустым списком и catalogUnavailable=true.
func (h *GameHandler) ListPackages(c *gin.Context) {
	ctx := c.Request.Context()

	game, ok := h.resolveGame(c)
	if !ok {
		return
	}

	resp := PackagesResponse{Game: toGameResponse(game), Packages: []PackageResponse{}}

	pkgs, err := h.catalog.Packages(ctx, game, h.now())
	if err != nil {
		if !errors.Is(err, domain.ErrCatalogUnavailable) {
			HandleError(c, err, "ListPackages")
			return
		}
		resp.CatalogUnavailable = true
	}
	for _, p := range pkgs {
		resp.Packages = append(resp.Packages, toPackageResponse(p))
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyAccount проверяет игровой аккаунт на backend.
// POST /api/v1/games/:game/verify
func (h *GameHandler) VerifyAccount(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err, "Укажите игровой ID")
		return
	}

	game, ok := h.resolveGame(c)
	if !ok {
		return
	}

	input := domain.PlayerIdentity{PlayerID: req.PlayerID, ZoneID: req.ZoneID, Server: req.Server}
	token, userID := httputil.Token(c), httputil.UserID(c)

	res, err := watchdog.Run(c.Request.Context(), h.timeout, func(ctx context.Context) (*identity.VerifyResult, error) {
		return h.verifier.Verify(ctx, token, userID, game, input)
	})
	if err != nil {
		HandleError(c, err, "VerifyAccount")
		return
	}

	c.JSON(http.StatusOK, res)
}

// ValidationHistory отдаёт историю проверок аккаунтов по игре.
// GET /api/v1/games/:game/validation-history
func (h *GameHandler) ValidationHistory(c *gin.Context) {
	game, ok := h.resolveGame(c)
	if !ok {
		return
	}

	raw, err := h.history.ValidationHistory(c.Request.Context(), httputil.Token(c), game.ID)
	if err != nil {
		HandleError(c, err, "ValidationHistory")
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// SavedAccounts возвращает подтверждённые ранее аккаунты покупателя.
// GET /api/v1/games/:game/saved-accounts
func (h *GameHandler) SavedAccounts(c *gin.Context) {
	game, ok := h.resolveGame(c)
	if !ok {
		return
	}

	if h.accounts == nil {
		c.JSON(http.StatusOK, gin.H{"accounts": []domain.SavedAccount{}})
		return
	}

	accounts, err := h.accounts.ListByUserGame(c.Request.Context(), httputil.UserID(c), game.ID, savedAccountsLimit)
	if err != nil {
		HandleError(c, err, "SavedAccounts")
		return
	}
	if accounts == nil {
		accounts = []domain.SavedAccount{}
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// resolveGame находит игру по параметру :game (slug или id); false — ответ уже отправлен.
func (h *GameHandler) resolveGame(c *gin.Context) (domain.Game, bool) {
	game, err := h.catalog.GameByID(c.Request.Context(), c.Param("game"))
	if err != nil {
		HandleError(c, err, "resolveGame")
		return domain.Game{}, false
	}
	return game, true
}
