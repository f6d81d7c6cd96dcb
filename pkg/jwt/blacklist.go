package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const prefixToken = "jwt:blacklist:" // jwt:blacklist:{fingerprint}

// DefaultRevokeTTL — срок хранения отзыва для токенов без exp.
const DefaultRevokeTTL = 30 * 24 * time.Hour

// Blacklist управляет отозванными токенами в Redis.
// Backend о выходе не знает, поэтому отзыв действует только на gateway.
type Blacklist struct {
	redis      *redis.Client
	defaultTTL time.Duration
	now        func() time.Time
}

// NewBlacklist создаёт blacklist. defaultTTL <= 0 — DefaultRevokeTTL.
func NewBlacklist(client *redis.Client, defaultTTL time.Duration) *Blacklist {
	if defaultTTL <= 0 {
		defaultTTL = DefaultRevokeTTL
	}
	return &Blacklist{redis: client, defaultTTL: defaultTTL, now: time.Now}
}

// Revoke добавляет токен в blacklist.
// TTL ключа = время до истечения токена (автоочистка).
func (b *Blacklist) Revoke(ctx context.Context, token string) error {
	ttl := b.defaultTTL
	if info, ok := Inspect(token); ok && !info.ExpiresAt.IsZero() {
		ttl = info.ExpiresAt.Sub(b.now())
		if ttl <= 0 {
			return nil // Токен уже истёк
		}
	}

	if err := b.redis.Set(ctx, prefixToken+Fingerprint(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("ошибка добавления токена в blacklist: %w", err)
	}
	return nil
}

// IsRevoked проверяет, отозван ли токен.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	exists, err := b.redis.Exists(ctx, prefixToken+Fingerprint(token)).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки blacklist: %w", err)
	}
	return exists > 0, nil
}
