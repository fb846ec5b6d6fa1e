package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/shieldkit/shieldkit/clock"
	"github.com/shieldkit/shieldkit/ratelimit"
)

// allowScript atomically prunes the window, counts it, and conditionally
// records the request. Running it server-side is what makes the limiter safe
// across processes: a check-then-ZADD from the client would race.
var allowScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return 1
`)

// countScript prunes and returns the current in-window count.
var countScript = goredis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
return redis.call('ZCARD', key)
`)

// SlidingWindowConfig configures the Redis-backed sliding window limiter.
type SlidingWindowConfig struct {
	// Name identifies this limiter and prefixes its Redis keys.
	Name string
	// MaxRequests is the hard cap per window.
	MaxRequests int
	// Window is the trailing interval requests are counted over.
	Window time.Duration
	// Clock is the time source. Defaults to the system clock.
	Clock clock.Clock
}

// SlidingWindow is the distributed variant of ratelimit.SlidingWindow.
// Per-key state is a Redis sorted set of request timestamps; every decision
// is a single atomic script evaluation.
type SlidingWindow struct {
	client *Client
	config SlidingWindowConfig
}

// NewSlidingWindow creates a Redis-backed sliding window limiter.
func NewSlidingWindow(client *Client, config SlidingWindowConfig) *SlidingWindow {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Clock == nil {
		config.Clock = clock.NewSystem()
	}

	return &SlidingWindow{
		client: client,
		config: config,
	}
}

func (sw *SlidingWindow) redisKey(key string) string {
	if sw.config.Name == "" {
		return "ratelimit:" + key
	}
	return "ratelimit:" + sw.config.Name + ":" + key
}

// Allow records a request for key if the window has room.
func (sw *SlidingWindow) Allow(ctx context.Context, key string) (bool, error) {
	nowMillis := sw.config.Clock.Now().UnixMilli()
	member := uuid.NewString()

	res, err := allowScript.Run(ctx, sw.client.Unwrap(),
		[]string{sw.redisKey(key)},
		nowMillis, sw.config.Window.Milliseconds(), sw.config.MaxRequests, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis sliding window allow %q: %w", key, err)
	}
	return res == 1, nil
}

// Ready reports whether a request for key would be admitted, without
// recording anything.
func (sw *SlidingWindow) Ready(ctx context.Context, key string) (bool, error) {
	remaining, err := sw.Remaining(ctx, key)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

// Remaining returns how many more requests key may make in the current
// window.
func (sw *SlidingWindow) Remaining(ctx context.Context, key string) (int, error) {
	nowMillis := sw.config.Clock.Now().UnixMilli()

	count, err := countScript.Run(ctx, sw.client.Unwrap(),
		[]string{sw.redisKey(key)},
		nowMillis, sw.config.Window.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("redis sliding window count %q: %w", key, err)
	}
	return sw.config.MaxRequests - count, nil
}

// Reset clears all recorded requests for key.
func (sw *SlidingWindow) Reset(ctx context.Context, key string) error {
	if err := sw.client.Del(ctx, sw.redisKey(key)); err != nil {
		return fmt.Errorf("redis sliding window reset %q: %w", key, err)
	}
	return nil
}

// compile-time interface check
var _ ratelimit.Limiter = (*SlidingWindow)(nil)
