// Package auth — вход по телефону и коду подтверждения.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// otpAttemptsPrefix — префикс ключа Redis для счётчика неудачных вводов кода.
const otpAttemptsPrefix = "otp_attempts:"

// OTPLimiter ограничивает количество неудачных вводов кода по номеру телефона.
type OTPLimiter interface {
	// IsLocked проверяет, заблокирован ли вход для телефона.
	IsLocked(ctx context.Context, phone string) (bool, error)

	// RecordFailure увеличивает счётчик неудачных попыток.
	RecordFailure(ctx context.Context, phone string) error

	// Reset сбрасывает счётчик после успешного входа.
	Reset(ctx context.Context, phone string) error
}

// redisOTPLimiter — реализация OTPLimiter на Redis.
type redisOTPLimiter struct {
	rdb         *redis.Client
	maxFailures int
	window      time.Duration
}

// NewOTPLimiter создаёт OTPLimiter: maxFailures неудачных попыток за window.
func NewOTPLimiter(rdb *redis.Client, maxFailures int, window time.Duration) OTPLimiter {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &redisOTPLimiter{rdb: rdb, maxFailures: maxFailures, window: window}
}

// IsLocked проверяет, превышен ли лимит.
func (l *redisOTPLimiter) IsLocked(ctx context.Context, phone string) (bool, error) {
	val, err := l.rdb.Get(ctx, otpAttemptsPrefix+phone).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка проверки блокировки: %w", err)
	}
	return val >= l.maxFailures, nil
}

// incrWithTTLScript — атомарный INCR + EXPIRE: TTL ставится при первой ошибке,
// окно не продлевается последующими.
var incrWithTTLScript = redis.NewScript(`
local val = redis.call('INCR', KEYS[1])
if val == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return val
`)

// RecordFailure атомарно увеличивает счётчик и устанавливает TTL.
func (l *redisOTPLimiter) RecordFailure(ctx context.Context, phone string) error {
	_, err := incrWithTTLScript.Run(ctx, l.rdb, []string{otpAttemptsPrefix + phone}, int(l.window.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("ошибка увеличения счётчика попыток: %w", err)
	}
	return nil
}

// Reset удаляет счётчик.
func (l *redisOTPLimiter) Reset(ctx context.Context, phone string) error {
	if err := l.rdb.Del(ctx, otpAttemptsPrefix+phone).Err(); err != nil {
		return fmt.Errorf("ошибка сброса счётчика попыток: %w", err)
	}
	return nil
}
