package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ticketPrefix = "verified:"

// TicketKey — область действия подтверждения: пользователь, игра и аккаунт.
type TicketKey struct {
	UserID   string
	GameID   string
	PlayerID string
	ZoneID   string
	Server   string
}

func (k TicketKey) redisKey() string {
	return ticketPrefix + strings.Join([]string{k.UserID, k.GameID, k.PlayerID, k.ZoneID, k.Server}, ":")
}

// TicketStore хранит факт подтверждения аккаунта между проверкой и оформлением заказа.
type TicketStore interface {
	// Issue сохраняет подтверждение с игровым ником.
	Issue(ctx context.Context, key TicketKey, ign string) error

	// Lookup возвращает ник и true, если подтверждение ещё действует.
	Lookup(ctx context.Context, key TicketKey) (string, bool, error)
}

// redisTicketStore — TicketStore на Redis с TTL.
type redisTicketStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTicketStore создаёт хранилище подтверждений.
func NewRedisTicketStore(rdb *redis.Client, ttl time.Duration) TicketStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisTicketStore{rdb: rdb, ttl: ttl}
}

// Issue сохраняет подтверждение на ttl.
func (s *redisTicketStore) Issue(ctx context.Context, key TicketKey, ign string) error {
	if err := s.rdb.Set(ctx, key.redisKey(), ign, s.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения подтверждения аккаунта: %w", err)
	}
	return nil
}

// Lookup проверяет подтверждение.
func (s *redisTicketStore) Lookup(ctx context.Context, key TicketKey) (string, bool, error) {
	ign, err := s.rdb.Get(ctx, key.redisKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения подтверждения аккаунта: %w", err)
	}
	return ign, true, nil
}
