package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims entries older than the window, then admits the call
// only if fewer than limit remain. On refusal it returns the milliseconds
// until the oldest entry leaves the window.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local wait = window
  if oldest[2] then
    wait = tonumber(oldest[2]) + window - now
  end
  return {0, wait}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter counts attempts per identifier and action over a rolling
// window. Attempts are stored as members of a sorted set scored by time.
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
	member func() string
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client: client,
		now:    time.Now,
		member: uuid.NewString,
	}
}

func (l *RateLimiter) Allow(ctx context.Context, identifier, action string, limit int, window time.Duration) (Decision, error) {
	now := l.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, l.client, []string{rateLimitKey(identifier, action)},
		now, window.Milliseconds(), int64(limit), l.member()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s/%s: %w", action, identifier, err)
	}
	if len(res) != 2 {
		return Decision{}, fmt.Errorf("rate limit %s/%s: unexpected reply %v", action, identifier, res)
	}
	return Decision{Allowed: res[0] == 1, RetryAfter: time.Duration(res[1]) * time.Millisecond}, nil
}

func rateLimitKey(identifier, action string) string {
	return fmt.Sprintf("ratelimit:%s:%s", action, identifier)
}
