// Package catalog — каталог игр и пакетов витрины.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Backend — часть backend API, нужная каталогу.
type Backend interface {
	GetGames(ctx context.Context) ([]domain.Game, error)
	GetPackages(ctx context.Context, gameID string) ([]domain.Package, error)
}

// Service — каталог игр и пакетов.
type Service struct {
	backend    Backend
	games      *GameCache
	promotions []Promotion
	group      singleflight.Group
}

// NewService создаёт каталог. promotions == nil — акций нет.
func NewService(backend Backend, games *GameCache, promotions []Promotion) *Service {
	return &Service{
		backend:    backend,
		games:      games,
		promotions: promotions,
	}
}

// Games возвращает активные игры. Список кешируется на TTL кеша.
func (s *Service) Games(ctx context.Context) ([]domain.Game, error) {
	if games, ok := s.games.Get(); ok {
		return games, nil
	}

	// Одновременные промахи кеша делят один запрос к backend.
	v, err, _ := s.group.Do(gamesKey, func() (any, error) {
		return s.loadGames(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Game), nil
}

// Refresh сбрасывает кеш и загружает игры заново.
func (s *Service) Refresh(ctx context.Context) ([]domain.Game, error) {
	s.games.Invalidate()
	return s.Games(ctx)
}

func (s *Service) loadGames(ctx context.Context) ([]domain.Game, error) {
	all, err := s.backend.GetGames(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Не удалось загрузить список игр")
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	games := make([]domain.Game, 0, len(all))
	for _, g := range all {
		if !g.IsActive {
			continue
		}
		g.Profile = domain.ProfileFor(g.Slug)
		games = append(games, g)
	}

	sort.SliceStable(games, func(i, j int) bool {
		return games[i].SortOrder < games[j].SortOrder
	})

	s.games.Set(games)

	logger.FromContext(ctx).Debug().
		Int("total", len(all)).
		Int("active", len(games)).
		Msg("Список игр обновлён")

	return games, nil
}

// GameByID ищет активную игру по внутреннему id или slug.
func (s *Service) GameByID(ctx context.Context, id string) (domain.Game, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return domain.Game{}, err
	}
	for _, g := range games {
		if g.ID == id || g.Slug == id {
			return g, nil
		}
	}
	return domain.Game{}, domain.ErrGameNotFound
}

// GameBySlug ищет активную игру по slug (нужно для регионального редиректа).
func (s *Service) GameBySlug(ctx context.Context, slug string) (domain.Game, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return domain.Game{}, err
	}
	for _, g := range games {
		if g.Slug == slug {
			return g, nil
		}
	}
	return domain.Game{}, domain.ErrGameNotFound
}

// Packages возвращает пакеты, доступные для покупки в момент now.
//
// Неактивные и вне окна отбрасываются, акции из таблицы добавляются в начало,
// пустые категории заполняются эвристикой, затем пакеты сортируются.
// При ошибке backend возвращается пустой список и ErrCatalogUnavailable.
func (s *Service) Packages(ctx context.Context, game domain.Game, now time.Time) ([]domain.Package, error) {
	fetched, err := s.backend.GetPackages(ctx, game.ID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("game_id", game.ID).Msg("Не удалось загрузить пакеты")
		return []domain.Package{}, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	known := make(map[string]struct{}, len(fetched))
	active := make([]domain.Package, 0, len(fetched))
	for _, p := range fetched {
		if p.ProductID != "" {
			known[p.ProductID] = struct{}{}
		}
		if p.IsPurchasable(now) {
			active = append(active, p)
		}
	}

	var promos []domain.Package
	for _, promo := range s.promotions {
		if !promo.appliesTo(game.Slug, now) {
			continue
		}
		if _, exists := known[promo.ProductID]; exists {
			continue
		}
		known[promo.ProductID] = struct{}{}
		promos = append(promos, promo.toPackage(game.ID))
	}

	result := append(promos, active...)
	for i := range result {
		if result[i].Category == "" {
			result[i].Category = Categorize(result[i].Name, result[i].ProductID)
		}
	}

	sortPackages(result)
	return result, nil
}

// FindPackage ищет пакет по id или productId среди доступных в момент now.
func (s *Service) FindPackage(ctx context.Context, game domain.Game, packageID string, now time.Time) (domain.Package, error) {
	if packageID == "" {
		return domain.Package{}, domain.ErrNoPackageSelected
	}

	pkgs, err := s.Packages(ctx, game, now)
	if err != nil {
		return domain.Package{}, err
	}
	for _, p := range pkgs {
		if p.ID == packageID || p.ProductID == packageID {
			return p, nil
		}
	}
	return domain.Package{}, domain.ErrNoPackageSelected
}
