// Package ratelimit — счётчики попыток в скользящем часовом окне
// для выдачи токенов и проверок погашения.
//
// Окно отсчитывается от первой попытки: если now - windowStart > window,
// счётчик сбрасывается в 1, иначе растёт до потолка. Отклонённая попытка
// счётчик не меняет. Атомарность инкремента и проверки потолка обеспечивает
// Counter (один SQL-оператор в postgres, критическая секция в memory, Lua-скрипт в Redis).
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter атомарно сбрасывает или увеличивает счётчик key.
// Реализуется storage.RateLimitStorage и RedisCounter.
type Counter interface {
	HitRateLimit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, bool, error)
}

// Rule — потолок попыток за окно.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter применяет Rule к ключам операций.
type Limiter struct {
	counter Counter
}

// New создаёт Limiter поверх counter.
func New(counter Counter) *Limiter {
	return &Limiter{counter: counter}
}

// Allow регистрирует попытку и сообщает, укладывается ли она в rule.
func (l *Limiter) Allow(ctx context.Context, key string, rule Rule, now time.Time) (bool, error) {
	const op = "ratelimit.Allow"

	_, ok, err := l.counter.HitRateLimit(ctx, key, now, rule.Window, rule.Limit)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return ok, nil
}

// IssueKey — ключ лимита выдачи токенов: issue:{userId}:{deviceHash}.
func IssueKey(userID, deviceHash string) string {
	return "issue:" + userID + ":" + deviceHash
}

// ValidateKey — ключ лимита погашений: validate:{actorId}:{merchantId}.
func ValidateKey(actorID, merchantID string) string {
	return "validate:" + actorID + ":" + merchantID
}
