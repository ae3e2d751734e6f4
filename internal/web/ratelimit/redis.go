package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript is a sliding-window check: expire entries older than the
// window, then admit the attempt only while the window holds fewer than limit
// entries. Runs atomically so concurrent attempts cannot overshoot.
var allowScript = redis.NewScript(`
	redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[2])
	local n = redis.call('ZCARD', KEYS[1])
	if n >= tonumber(ARGV[3]) then
		return {0, n}
	end
	redis.call('ZADD', KEYS[1], ARGV[1], ARGV[1])
	redis.call('EXPIRE', KEYS[1], ARGV[4])
	return {1, n + 1}
`)

// Redis is a sliding-window limiter over a shared Redis instance, so the
// throttle holds across process restarts and replicas.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedis creates a Redis-backed limiter allowing limit attempts per window.
func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  limit,
		window: window,
		prefix: "redline:ratelimit:",
	}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	raw, err := allowScript.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixNano(),
		now.Add(-r.window).UnixNano(),
		r.limit,
		int(r.window.Seconds())+1,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	verdict, ok := raw.([]interface{})
	if !ok || len(verdict) != 2 {
		return Decision{}, errors.New("unexpected rate limit script result")
	}
	allowed, _ := verdict[0].(int64)
	count, _ := verdict[1].(int64)

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed == 1,
		Remaining: remaining,
		RetryAt:   now.Add(r.window),
	}, nil
}
