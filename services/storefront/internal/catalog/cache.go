package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

const gamesKey = "games"

// cachedGames — запись кеша: данные и момент загрузки.
type cachedGames struct {
	Data      []domain.Game `json:"data"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// GameCache — кеш списка игр {data, fetchedAt, ttl} поверх bigcache.
// Свежесть проверяется по FetchedAt, а не по вытеснению bigcache.
type GameCache struct {
	store *bigcache.BigCache
	ttl   time.Duration
	now   func() time.Time
}

// NewGameCache создаёт кеш игр с заданным TTL.
func NewGameCache(ttl time.Duration) (*GameCache, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	store, err := bigcache.New(context.Background(), bigcache.Config{
		Shards:             16,
		LifeWindow:         ttl,
		CleanWindow:        ttl,
		MaxEntriesInWindow: 16,
		MaxEntrySize:       16 * 1024,
		HardMaxCacheSize:   8, // MB
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания кеша игр: %w", err)
	}

	return &GameCache{store: store, ttl: ttl, now: time.Now}, nil
}

// Get возвращает игры, если запись есть и моложе TTL.
func (c *GameCache) Get() ([]domain.Game, bool) {
	raw, err := c.store.Get(gamesKey)
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			logger.Warn().Err(err).Msg("Ошибка чтения кеша игр")
		}
		return nil, false
	}

	var entry cachedGames
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.Warn().Err(err).Msg("Повреждённая запись кеша игр")
		return nil, false
	}

	if c.now().Sub(entry.FetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.Data, true
}

// Set сохраняет игры с текущим временем загрузки.
func (c *GameCache) Set(games []domain.Game) {
	raw, err := json.Marshal(cachedGames{Data: games, FetchedAt: c.now()})
	if err != nil {
		logger.Warn().Err(err).Msg("Ошибка сериализации кеша игр")
		return
	}
	if err := c.store.Set(gamesKey, raw); err != nil {
		logger.Warn().Err(err).Msg("Ошибка записи кеша игр")
	}
}

// Invalidate сбрасывает кеш.
func (c *GameCache) Invalidate() {
	if err := c.store.Delete(gamesKey); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		logger.Warn().Err(err).Msg("Ошибка сброса кеша игр")
	}
}

// Close освобождает ресурсы bigcache.
func (c *GameCache) Close() error {
	return c.store.Close()
}
