package ratelimit

import "context"

// Limiter is the per-key rate limiting contract shared by the in-memory
// algorithms and the Redis-backed variant. Context is unused by the
// in-memory implementations but required by remote backends.
type Limiter interface {
	// Allow consumes one request slot for key and reports whether the
	// request is admitted.
	Allow(ctx context.Context, key string) (bool, error)
	// Ready reports whether a request for key would currently be admitted,
	// without consuming anything.
	Ready(ctx context.Context, key string) (bool, error)
	// Reset clears all limiter state for key.
	Reset(ctx context.Context, key string) error
}
