package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript — increment-or-reset одним вызовом.
//
// KEYS[1]: hash счётчика (cnt, start, last)
// ARGV[1]: now, мс; ARGV[2]: окно, мс; ARGV[3]: потолок
// Возвращает {count, allowed(0|1)}.
var hitScript = redis.NewScript(`
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

local start = tonumber(redis.call('HGET', KEYS[1], 'start'))
if (not start) or (now - start > window) then
    redis.call('HSET', KEYS[1], 'cnt', 1, 'start', now, 'last', now)
    redis.call('PEXPIRE', KEYS[1], window + 1000)
    return {1, 1}
end

local cnt = tonumber(redis.call('HGET', KEYS[1], 'cnt')) or 0
if cnt >= limit then
    return {cnt, 0}
end

cnt = redis.call('HINCRBY', KEYS[1], 'cnt', 1)
redis.call('HSET', KEYS[1], 'last', now)
return {cnt, 1}
`)

// RedisCounter хранит счётчики в Redis (rate_limit.backend=redis).
type RedisCounter struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisCounter создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "redemption:rl:".
func NewRedisCounter(redisURL, prefix string) (*RedisCounter, error) {
	if prefix == "" {
		prefix = "redemption:rl:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	return &RedisCounter{rdb: rdb, prefix: prefix}, nil
}

// HitRateLimit выполняет hitScript для key.
func (c *RedisCounter) HitRateLimit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, bool, error) {
	const op = "ratelimit.redis.HitRateLimit"

	res, err := hitScript.Run(ctx, c.rdb, []string{c.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit,
	).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	if len(res) != 2 {
		return 0, false, fmt.Errorf("%s: unexpected script result %v", op, res)
	}

	return int(res[0]), res[1] == 1, nil
}

// Ping проверяет доступность Redis (readiness).
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (c *RedisCounter) Close() error {
	return c.rdb.Close()
}
