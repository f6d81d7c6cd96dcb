package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// GetGames возвращает все игры backend (включая неактивные).
// GET /api/v1/games/get-all
func (c *Client) GetGames(ctx context.Context) ([]domain.Game, error) {
	body, err := c.do(ctx, call{
		name:   "games.get-all",
		method: http.MethodGet,
		path:   "/api/v1/games/get-all",
		retry:  true,
	})
	if err != nil {
		return nil, err
	}

	root, err := Decode(body)
	if err != nil {
		return nil, err
	}

	list, ok := FirstList(root, "games", "data.games", "data")
	if !ok {
		return nil, fmt.Errorf("неожиданный формат списка игр")
	}

	games := make([]domain.Game, 0, len(list))
	for _, item := range list {
		games = append(games, gameFromJSON(item))
	}
	return games, nil
}

func gameFromJSON(item any) domain.Game {
	active, ok := FirstBool(item, "isActive", "active")
	if !ok {
		active = strings.EqualFold(FirstString(item, "status"), "active")
	}
	featured, _ := FirstBool(item, "isFeatured", "featured")
	sortOrder, _ := FirstInt(item, "sortOrder", "order")

	return domain.Game{
		ID:         FirstString(item, "_id", "id", "gameId"),
		Slug:       strings.ToLower(FirstString(item, "slug", "gameCode", "code")),
		Name:       FirstString(item, "name", "title"),
		Category:   FirstString(item, "category"),
		Icon:       FirstString(item, "icon", "image", "logo"),
		IsActive:   active,
		IsFeatured: featured,
		SortOrder:  sortOrder,
	}
}

// GetPackages возвращает пакеты игры как есть (фильтрация — в каталоге).
// GET /api/v1/games/{gameId}/diamond-packs
func (c *Client) GetPackages(ctx context.Context, gameID string) ([]domain.Package, error) {
	body, err := c.do(ctx, call{
		name:   "games.diamond-packs",
		method: http.MethodGet,
		path:   "/api/v1/games/" + url.PathEscape(gameID) + "/diamond-packs",
		retry:  true,
	})
	if err != nil {
		return nil, err
	}

	root, err := Decode(body)
	if err != nil {
		return nil, err
	}

	list, ok := FirstList(root, "diamondPacks", "data.diamondPacks", "packs", "data")
	if !ok {
		return nil, fmt.Errorf("неожиданный формат списка пакетов")
	}

	packages := make([]domain.Package, 0, len(list))
	for _, item := range list {
		p := packageFromJSON(item)
		p.GameID = gameID
		packages = append(packages, p)
	}
	return packages, nil
}

func packageFromJSON(item any) domain.Package {
	price, _ := FirstDecimal(item, "price", "amount", "sellingPrice")

	// Без поля status пакет считается активным, если backend не прислал isActive=false.
	status := domain.PackageStatus(strings.ToLower(FirstString(item, "status")))
	if status == "" {
		status = domain.PackageStatusActive
		if active, ok := FirstBool(item, "isActive"); ok && !active {
			status = domain.PackageStatusInactive
		}
	}

	p := domain.Package{
		ID:          FirstString(item, "_id", "id"),
		ProductID:   FirstString(item, "productId", "product_id", "sku"),
		Name:        FirstString(item, "name", "title"),
		Description: FirstString(item, "description"),
		Price:       price,
		Status:      status,
		Category:    FirstString(item, "category"),
		Logo:        FirstString(item, "logo", "image", "icon"),
	}

	if t, ok := FirstTime(item, "startTime", "start_time"); ok {
		p.StartTime = &t
	}
	if t, ok := FirstTime(item, "endTime", "end_time"); ok {
		p.EndTime = &t
	}
	return p
}

// ValidateRequest — тело запроса проверки игрового аккаунта.
type ValidateRequest struct {
	Game     string `json:"game"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Server   string `json:"server"`
}

// Validation — нормализованный ответ проверки аккаунта.
type Validation struct {
	Valid   *bool  // nil — backend не ответил однозначно
	Name    string // Игровой ник (ign / username / nickname)
	Region  string
	Message string
}

// ValidateUser проверяет игровой аккаунт.
// POST /api/v1/games/validate-user
//
// Ответ бывает вида {data:{valid,...}} и {valid,...}; отказ с телом,
// в котором есть valid, возвращается как Validation без ошибки.
func (c *Client) ValidateUser(ctx context.Context, token string, req ValidateRequest) (Validation, error) {
	body, err := c.do(ctx, call{
		name:   "games.validate-user",
		method: http.MethodPost,
		path:   "/api/v1/games/validate-user",
		token:  token,
		body:   req,
	})
	if err != nil {
		apiErr, ok := AsAPIError(err)
		if !ok || apiErr.StatusCode >= http.StatusInternalServerError {
			return Validation{}, err
		}
		body = apiErr.Body
		v := normalizeValidationBody(body)
		if v.Valid == nil {
			return Validation{}, err
		}
		if v.Message == "" {
			v.Message = apiErr.Message
		}
		return v, nil
	}

	return normalizeValidationBody(body), nil
}

func normalizeValidationBody(body []byte) Validation {
	root, err := Decode(body)
	if err != nil {
		return Validation{}
	}

	v := Validation{
		Name:    FirstString(root, "data.ign", "data.username", "data.nickname", "ign", "username", "nickname", "data.name"),
		Region:  FirstString(root, "data.region", "region", "data.country", "country"),
		Message: FirstString(root, "message", "data.message", "error"),
	}
	if valid, ok := FirstBool(root, "data.valid", "valid"); ok {
		v.Valid = &valid
	}
	return v
}

// ValidationHistory — недавние подтверждённые аккаунты пользователя по игре.
// GET /api/v1/games/{gameId}/validation-history — ответ отдаётся как есть.
func (c *Client) ValidationHistory(ctx context.Context, token, gameID string) (json.RawMessage, error) {
	body, err := c.do(ctx, call{
		name:   "games.validation-history",
		method: http.MethodGet,
		path:   "/api/v1/games/" + url.PathEscape(gameID) + "/validation-history",
		token:  token,
		retry:  true,
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}
