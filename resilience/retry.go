package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ExhaustedError is returned when every attempt has failed. It wraps the
// last underlying error.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// Err is the error from the final attempt.
	Err error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap returns the final attempt's error.
func (e *ExhaustedError) Unwrap() error { return e.Err }

// retryAfterHinter is implemented by errors carrying an upstream-provided
// retry delay, such as a 429 with a Retry-After header.
type retryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64
	// Jitter scales each delay by a uniform factor in [0.5, 1.0] to avoid
	// synchronized retries across clients.
	Jitter bool
	// RetryIf determines if an error should be retried. An error it rejects
	// ends the loop immediately and is returned unchanged. Defaults to
	// retrying everything except context cancellation.
	RetryIf func(error) bool
	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         true,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Retry executes a function with retry logic.
//
// A non-retryable error consumes no further attempts and is returned as-is.
// When every attempt fails the last error is returned wrapped in an
// ExhaustedError. Errors carrying a RetryAfterHint (rate-limit responses)
// override the computed backoff with the upstream-provided delay. A context
// cancelled during a backoff sleep stops the loop immediately.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Check context before each attempt.
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			return zero, err
		}

		// A cancelled upstream call must not be retried even if the
		// predicate is permissive.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		// Don't sleep after the last attempt.
		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := backoffFor(attempt, cfg, err)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &ExhaustedError{Attempts: cfg.MaxAttempts, Err: lastErr}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// backoffFor computes the delay before the next attempt. An upstream
// retry-after hint wins over the exponential schedule.
func backoffFor(attempt int, cfg RetryConfig, err error) time.Duration {
	var hinter retryAfterHinter
	if errors.As(err, &hinter) {
		if hint := hinter.RetryAfterHint(); hint > 0 {
			return hint
		}
	}
	return computeBackoff(attempt, cfg)
}

// computeBackoff returns min(MaxBackoff, initial * factor^(attempt-1)),
// optionally scaled by a uniform jitter factor in [0.5, 1.0].
func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter {
		backoff *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(backoff)
}
