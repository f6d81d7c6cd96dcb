// Package identity — проверка игрового аккаунта перед оформлением заказа.
package identity

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
	"example.com/topup-storefront/services/storefront/internal/repository"
)

// Backend — проверка аккаунта на стороне backend.
type Backend interface {
	ValidateUser(ctx context.Context, token string, req backend.ValidateRequest) (backend.Validation, error)
}

// GameLookup — поиск регионального варианта игры.
type GameLookup interface {
	GameBySlug(ctx context.Context, slug string) (domain.Game, error)
}

// Redirect — аккаунт относится к другому региональному варианту игры.
type Redirect struct {
	TargetSlug   string                `json:"targetSlug"`
	TargetGameID string                `json:"targetGameId"`
	URL          string                `json:"url"`
	Identity     domain.PlayerIdentity `json:"identity"`
}

// VerifyResult — итог проверки. При Redirect аккаунт остаётся неподтверждённым.
type VerifyResult struct {
	Identity domain.PlayerIdentity `json:"identity"`
	Redirect *Redirect             `json:"redirect,omitempty"`
}

// Resolver проверяет игровые аккаунты.
type Resolver struct {
	backend  Backend
	games    GameLookup
	tickets  TicketStore
	accounts repository.SavedAccountRepository // nil — аккаунты не сохраняются
	gamePage func(slug string) string
}

// ResolverConfig — зависимости Resolver.
type ResolverConfig struct {
	Backend  Backend
	Games    GameLookup
	Tickets  TicketStore
	Accounts repository.SavedAccountRepository
	// GamePage строит ссылку на страницу игры по slug.
	GamePage func(slug string) string
}

// NewResolver создаёт Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	gamePage := cfg.GamePage
	if gamePage == nil {
		gamePage = func(slug string) string { return "/games/" + slug }
	}
	return &Resolver{
		backend:  cfg.Backend,
		games:    cfg.Games,
		tickets:  cfg.Tickets,
		accounts: cfg.Accounts,
		gamePage: gamePage,
	}
}

// Verify проверяет аккаунт для игры.
//
// Для игр без обязательной проверки проверяется только заполненность полей.
// Если backend сообщил регион другого варианта игры, возвращается Redirect,
// подтверждение не выдаётся.
func (r *Resolver) Verify(ctx context.Context, token, userID string, game domain.Game, input domain.PlayerIdentity) (*VerifyResult, error) {
	log := logger.FromContext(ctx).With().Str("game", game.Slug).Logger()

	id := input.Normalize()
	if err := id.CheckComplete(game.Profile); err != nil {
		return nil, err
	}

	if !game.Profile.HasVerification {
		return &VerifyResult{Identity: id}, nil
	}

	v, err := r.backend.ValidateUser(ctx, token, backend.ValidateRequest{
		Game:     game.Slug,
		GameID:   game.ID,
		PlayerID: id.PlayerID,
		Server:   id.ServerParam(game.Profile),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Ошибка проверки игрового аккаунта")
		return nil, verificationError(err)
	}

	if v.Valid == nil {
		log.Warn().Msg("Неоднозначный ответ проверки аккаунта")
		return nil, domain.NewUserError(domain.ErrVerificationFailed, v.Message)
	}
	if !*v.Valid {
		return nil, domain.NewUserError(domain.ErrInvalidIdentity, v.Message)
	}

	redirect, err := r.regionRedirect(ctx, game, id, v)
	if err != nil {
		return nil, err
	}
	if redirect != nil {
		log.Info().
			Str("region", v.Region).
			Str("target", redirect.TargetSlug).
			Msg("Аккаунт относится к другому региону, перенаправляем")
		return &VerifyResult{Identity: id, Redirect: redirect}, nil
	}

	id.Verified = true
	id.IGN = v.Name

	if err := r.tickets.Issue(ctx, ticketKey(userID, game.ID, id), id.IGN); err != nil {
		log.Error().Err(err).Msg("Не удалось сохранить подтверждение аккаунта")
		return nil, domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}

	r.saveAccount(ctx, userID, game.ID, id)

	log.Info().Str("player_id", id.PlayerID).Msg("Игровой аккаунт подтверждён")
	return &VerifyResult{Identity: id}, nil
}

// IsVerified возвращает аккаунт с ником, если для него действует подтверждение.
func (r *Resolver) IsVerified(ctx context.Context, userID, gameID string, id domain.PlayerIdentity) (domain.PlayerIdentity, bool, error) {
	ign, ok, err := r.tickets.Lookup(ctx, ticketKey(userID, gameID, id))
	if err != nil || !ok {
		return id, false, err
	}
	id.Verified = true
	id.IGN = ign
	return id, true, nil
}

// regionRedirect проверяет, совпадает ли регион аккаунта с вариантом игры.
func (r *Resolver) regionRedirect(ctx context.Context, game domain.Game, id domain.PlayerIdentity, v backend.Validation) (*Redirect, error) {
	if game.Profile.RegionFamily == "" {
		return nil, nil
	}

	target, ok := domain.RegionVariant(game.Profile.RegionFamily, v.Region)
	if !ok || target == game.Slug {
		return nil, nil
	}

	targetGame, err := r.games.GameBySlug(ctx, target)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("target", target).Msg("Региональный вариант игры недоступен")
		return nil, domain.NewUserError(domain.ErrVerificationFailed, "Аккаунт относится к другому региону, который сейчас недоступен")
	}

	carried := domain.PlayerIdentity{
		PlayerID: id.PlayerID,
		ZoneID:   id.ZoneID,
		Server:   id.Server,
		IGN:      v.Name,
	}

	q := url.Values{}
	q.Set("playerId", carried.PlayerID)
	if carried.ZoneID != "" {
		q.Set("zoneId", carried.ZoneID)
	}
	if carried.Server != "" {
		q.Set("server", carried.Server)
	}
	if carried.IGN != "" {
		q.Set("ign", carried.IGN)
	}

	return &Redirect{
		TargetSlug:   target,
		TargetGameID: targetGame.ID,
		URL:          r.gamePage(target) + "?" + q.Encode(),
		Identity:     carried,
	}, nil
}

// saveAccount сохраняет аккаунт в список покупателя. Ошибки не влияют на покупку.
func (r *Resolver) saveAccount(ctx context.Context, userID, gameID string, id domain.PlayerIdentity) {
	if r.accounts == nil || userID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := r.accounts.Upsert(ctx, &domain.SavedAccount{
		UserID:   userID,
		GameID:   gameID,
		PlayerID: id.PlayerID,
		ZoneID:   id.ZoneID,
		Server:   id.Server,
		IGN:      id.IGN,
	})
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Не удалось сохранить игровой аккаунт")
	}
}

func ticketKey(userID, gameID string, id domain.PlayerIdentity) TicketKey {
	return TicketKey{
		UserID:   userID,
		GameID:   gameID,
		PlayerID: id.PlayerID,
		ZoneID:   id.ZoneID,
		Server:   id.Server,
	}
}

// verificationError переводит ошибку backend в ошибку для покупателя.
func verificationError(err error) error {
	if errors.Is(err, backend.ErrNetwork) {
		return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return domain.NewUserError(domain.ErrAuthRequired, "")
		}
		return domain.NewUserError(domain.ErrVerificationFailed, apiErr.Message)
	}
	return domain.NewUserError(domain.ErrVerificationFailed, "")
}
