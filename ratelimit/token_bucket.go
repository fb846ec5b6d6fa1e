package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

// TokenBucketConfig configures a token bucket limiter.
type TokenBucketConfig struct {
	// Name identifies this limiter for metrics/logging.
	Name string
	// Rate is the number of tokens refilled per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// Clock is the time source. Defaults to the system clock.
	Clock clock.Clock
	// OnLimit is called when a request is rejected.
	OnLimit func(name, key string)
}

// DefaultTokenBucketConfig returns sensible defaults.
func DefaultTokenBucketConfig(name string) TokenBucketConfig {
	return TokenBucketConfig{
		Name:  name,
		Rate:  10.0, // 10 requests per second
		Burst: 20,   // Allow bursts up to 20
	}
}

// TokenBucket implements per-key token bucket rate limiting.
// Refill is computed lazily on each call from elapsed time rather than by a
// background timer, so idle keys cost nothing. Token accounting is floating
// point, not integer slots.
//
// Buckets are created lazily on first use and never shared across keys.
type TokenBucket struct {
	config TokenBucketConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

// bucket is the per-key state. Mutated only under TokenBucket.mu; all
// critical sections are computation-only.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket creates a per-key token bucket limiter.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Rate <= 0 {
		config.Rate = 10.0
	}
	if config.Burst <= 0 {
		config.Burst = int(config.Rate)
	}
	if config.Clock == nil {
		config.Clock = clock.NewSystem()
	}

	return &TokenBucket{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for key if available.
func (tb *TokenBucket) Allow(_ context.Context, key string) (bool, error) {
	return tb.AllowN(key, 1), nil
}

// AllowN consumes n tokens for key if available. The request is rejected,
// not queued, when fewer than n tokens remain.
func (tb *TokenBucket) AllowN(key string, n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b := tb.refill(key)

	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}

	if tb.config.OnLimit != nil {
		tb.config.OnLimit(tb.config.Name, key)
	}
	return false
}

// Ready reports whether one token is currently available for key,
// without consuming it.
func (tb *TokenBucket) Ready(_ context.Context, key string) (bool, error) {
	return tb.WaitTime(key, 1) == 0, nil
}

// WaitTime returns how long until n tokens will be available for key,
// or 0 if they already are. Nothing is consumed or reserved.
func (tb *TokenBucket) WaitTime(key string, n int) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	b := tb.refill(key)

	if b.tokens >= float64(n) {
		return 0
	}

	needed := float64(n) - b.tokens
	return time.Duration(needed / tb.config.Rate * float64(time.Second))
}

// Wait blocks until one token for key is consumed or the context is
// cancelled. This is the opt-in queueing mode; Allow is the fail-fast mode.
func (tb *TokenBucket) Wait(ctx context.Context, key string) error {
	for {
		if tb.AllowN(key, 1) {
			return nil
		}

		wait := tb.WaitTime(key, 1)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset clears state for key, restoring it to full capacity.
func (tb *TokenBucket) Reset(_ context.Context, key string) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.buckets, key)
	return nil
}

// Tokens returns the current token count for key.
func (tb *TokenBucket) Tokens(key string) float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.refill(key).tokens
}

// refill lazily creates key's bucket and credits tokens for elapsed time,
// capped at capacity. Caller must hold tb.mu.
func (tb *TokenBucket) refill(key string) *bucket {
	now := tb.config.Clock.Now()

	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.config.Burst), lastRefill: now}
		tb.buckets[key] = b
		return b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now

	b.tokens += elapsed * tb.config.Rate
	if b.tokens > float64(tb.config.Burst) {
		b.tokens = float64(tb.config.Burst)
	}
	return b
}

// compile-time interface check
var _ Limiter = (*TokenBucket)(nil)
