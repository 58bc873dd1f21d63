package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Fixed-window check-and-increment. INCR and EXPIRE must happen in one
// script so that GET -> check -> INCR cannot interleave across instances.
const checkLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")
if current >= limit then
    return {0, 0}
end

local newVal = redis.call("INCR", key)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, limit - newVal}
`

// RedisLimiter is a fixed-window limiter backed by Redis.
type RedisLimiter struct {
	client      *redis.Client
	checkScript *redis.Script
}

// NewRedisLimiter creates a limiter using the given client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		checkScript: redis.NewScript(checkLuaScript),
	}
}

// NewRedisLimiterFromURL connects to Redis and verifies the connection.
func NewRedisLimiterFromURL(redisURL string) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisLimiter(client), nil
}

// Check implements Limiter.
func (l *RedisLimiter) Check(ctx context.Context, identifier string, cfg Config) (Result, error) {
	now := time.Now()
	bucket := now.Unix() / int64(cfg.Window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%d", identifier, bucket)
	resetAt := time.Unix((bucket+1)*int64(cfg.Window.Seconds()), 0)

	ttl := int(cfg.Window.Seconds()) * 2
	res, err := l.checkScript.Run(ctx, l.client, []string{key}, cfg.Limit, ttl).Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	allowed := res[0].(int64) == 1
	remaining := int(res[1].(int64))
	return Result{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}, nil
}

// Close closes the underlying Redis connection.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
