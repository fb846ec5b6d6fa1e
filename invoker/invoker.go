package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shieldkit/shieldkit/cache"
	"github.com/shieldkit/shieldkit/logger"
	"github.com/shieldkit/shieldkit/observability"
	"github.com/shieldkit/shieldkit/ratelimit"
	"github.com/shieldkit/shieldkit/resilience"
	"github.com/shieldkit/shieldkit/upstream"
)

// ErrRateLimited is returned when the rate limiter rejects an invocation.
var ErrRateLimited = errors.New("rate limit exceeded")

// Outcome labels for logs and metrics.
const (
	outcomeHit          = "hit"
	outcomeOK           = "ok"
	outcomeRateLimited  = "rate_limited"
	outcomeCircuitOpen  = "circuit_open"
	outcomeBulkheadFull = "bulkhead_full"
	outcomeError        = "error"
)

// Config assembles an Invoker. Only Name and Call are required; every
// protection layer is optional and skipped when nil.
type Config[T any] struct {
	// Name identifies the operation for logs, metrics, and spans.
	Name string
	// Call is the upstream operation being protected.
	Call upstream.CallFunc[T]
	// Cache, when set, serves repeat lookups without an upstream call.
	Cache cache.Store[T]
	// CacheTTL is the freshness window for cached results. Required when
	// Cache is set.
	CacheTTL time.Duration
	// Limiter, when set, bounds the upstream call rate per key.
	Limiter ratelimit.Limiter
	// Breakers, when set, gives each key an independent circuit breaker.
	Breakers *resilience.BreakerGroup
	// Bulkhead, when set, caps concurrent upstream calls.
	Bulkhead *resilience.Bulkhead
	// Retry controls the retry schedule for transient upstream failures.
	// The RetryIf predicate defaults to upstream.IsRetryable.
	Retry resilience.RetryConfig
	// Logger defaults to a no-op logger.
	Logger *logger.Logger
	// Metrics, when set, records per-layer instruments.
	Metrics *observability.Metrics
}

// DefaultConfig returns a config with the retry schedule filled in. The
// caller supplies Call and whichever protection layers the operation needs.
func DefaultConfig[T any](name string) Config[T] {
	return Config[T]{
		Name:  name,
		Retry: resilience.DefaultRetryConfig(),
	}
}

// Invoker runs upstream calls through the configured protection layers.
type Invoker[T any] struct {
	name     string
	call     upstream.CallFunc[T]
	cache    cache.Store[T]
	cacheTTL time.Duration
	limiter  ratelimit.Limiter
	breakers *resilience.BreakerGroup
	bulkhead *resilience.Bulkhead
	retry    resilience.RetryConfig
	log      *logger.Logger
	metrics  *observability.Metrics
}

// New creates an Invoker from config.
func New[T any](cfg Config[T]) (*Invoker[T], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("invoker: name is required")
	}
	if cfg.Call == nil {
		return nil, fmt.Errorf("invoker %q: call function is required", cfg.Name)
	}
	if cfg.Cache != nil && cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("invoker %q: cache ttl must be positive", cfg.Name)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Retry.RetryIf == nil {
		cfg.Retry.RetryIf = upstream.IsRetryable
	}

	return &Invoker[T]{
		name:     cfg.Name,
		call:     cfg.Call,
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		limiter:  cfg.Limiter,
		breakers: cfg.Breakers,
		bulkhead: cfg.Bulkhead,
		retry:    cfg.Retry,
		log:      cfg.Logger.WithComponent("invoker"),
		metrics:  cfg.Metrics,
	}, nil
}

// Invoke runs one protected call for key. The key addresses the cache entry,
// the rate limit bucket, and the circuit breaker; payload is passed through
// to the upstream call untouched.
func (i *Invoker[T]) Invoke(ctx context.Context, key string, payload any) (T, error) {
	var zero T
	start := time.Now()

	invocationID := uuid.NewString()
	log := i.log.WithFields(map[string]interface{}{
		logger.FieldInvocationID: invocationID,
		logger.FieldOperation:    i.name,
		logger.FieldKey:          key,
	})

	ctx, span := observability.StartSpan(ctx, observability.SpanInvoke)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrOperationName, i.name)
	observability.SetSpanAttribute(ctx, observability.AttrInvocationID, invocationID)
	observability.SetSpanAttribute(ctx, observability.AttrCacheKey, key)

	// An open circuit rejects before anything else. Serving a cached value
	// here would hide the outage from the caller.
	var breaker *resilience.CircuitBreaker
	if i.breakers != nil {
		breaker = i.breakers.Get(key)
		if breaker.State() == resilience.StateOpen {
			if i.metrics != nil {
				i.metrics.RecordBreakerRejection(ctx, i.name)
			}
			return zero, i.finish(ctx, log, start, outcomeCircuitOpen, resilience.ErrCircuitOpen)
		}
	}

	// A limiter with no capacity rejects without consuming a token and
	// without touching the cache. A backend error fails open: availability
	// over strictness.
	if i.limiter != nil {
		ready, err := i.limiter.Ready(ctx, key)
		if err != nil {
			log.Warn("limiter readiness check failed, failing open", logger.Fields(
				logger.FieldError, err.Error(),
			))
		} else if !ready {
			if i.metrics != nil {
				i.metrics.RecordLimiterRejection(ctx, i.name, key)
			}
			return zero, i.finish(ctx, log, start, outcomeRateLimited,
				fmt.Errorf("%w: key %q", ErrRateLimited, key))
		}
	}

	if i.cache != nil {
		val, ok, err := i.cache.Get(ctx, key)
		if err != nil {
			// Degrade to a miss; the upstream call below is the fallback.
			log.Warn("cache lookup failed, treating as miss", logger.Fields(
				logger.FieldError, err.Error(),
			))
		}
		if ok {
			if i.metrics != nil {
				i.metrics.RecordCacheHit(ctx, i.name)
			}
			observability.SetSpanAttribute(ctx, observability.AttrCacheHit, true)
			i.finish(ctx, log, start, outcomeHit, nil)
			return val, nil
		}
		if i.metrics != nil {
			i.metrics.RecordCacheMiss(ctx, i.name)
		}
		observability.SetSpanAttribute(ctx, observability.AttrCacheHit, false)
	}

	// The token is consumed only after a confirmed miss: cache hits are free.
	if i.limiter != nil {
		allowed, err := i.limiter.Allow(ctx, key)
		if err != nil {
			log.Warn("limiter check failed, failing open", logger.Fields(
				logger.FieldError, err.Error(),
			))
		} else if !allowed {
			if i.metrics != nil {
				i.metrics.RecordLimiterRejection(ctx, i.name, key)
			}
			return zero, i.finish(ctx, log, start, outcomeRateLimited,
				fmt.Errorf("%w: key %q", ErrRateLimited, key))
		}
	}

	result, err := i.callUpstream(ctx, log, breaker, key, payload)
	if err != nil {
		outcome := outcomeError
		switch {
		case errors.Is(err, resilience.ErrCircuitOpen):
			outcome = outcomeCircuitOpen
			if i.metrics != nil {
				i.metrics.RecordBreakerRejection(ctx, i.name)
			}
		case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
			outcome = outcomeBulkheadFull
		}
		return zero, i.finish(ctx, log, start, outcome, err)
	}

	if i.cache != nil {
		if err := i.cache.Set(ctx, key, result, i.cacheTTL); err != nil {
			// The caller still gets the result; the next invocation pays
			// for the upstream call again.
			if i.metrics != nil {
				i.metrics.RecordCacheSetError(ctx, i.name)
			}
			log.Error("cache fill failed", logger.Fields(
				logger.FieldError, err.Error(),
				logger.FieldTTL, i.cacheTTL.String(),
			))
		}
	}

	i.finish(ctx, log, start, outcomeOK, nil)
	return result, nil
}

// Invalidate removes cached entries matching the glob pattern and returns
// the number removed.
func (i *Invoker[T]) Invalidate(ctx context.Context, pattern string) (int, error) {
	if i.cache == nil {
		return 0, nil
	}
	return i.cache.Clear(ctx, pattern)
}

// BreakerState returns the circuit state for key, or closed when no breaker
// group is configured.
func (i *Invoker[T]) BreakerState(key string) resilience.State {
	if i.breakers == nil {
		return resilience.StateClosed
	}
	return i.breakers.Get(key).State()
}

// callUpstream runs the retry loop, each attempt passing through the breaker
// and recording upstream metrics. The whole loop sits inside the bulkhead so
// a slot is held for the full duration of an invocation's upstream work.
func (i *Invoker[T]) callUpstream(ctx context.Context, log *logger.Logger, breaker *resilience.CircuitBreaker, key string, payload any) (T, error) {
	retryCfg := i.retry
	baseRetryIf := retryCfg.RetryIf
	// A circuit opened mid-invocation is final for this invocation; retrying
	// into it would just burn the backoff budget.
	retryCfg.RetryIf = func(err error) bool {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return false
		}
		return baseRetryIf(err)
	}
	userOnRetry := retryCfg.OnRetry
	retryCfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		if i.metrics != nil {
			i.metrics.RecordRetryAttempt(ctx, i.name, attempt+1)
		}
		log.Debug("retrying upstream call", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldBackoff, backoff.String(),
			logger.FieldError, err.Error(),
		))
		if userOnRetry != nil {
			userOnRetry(attempt, err, backoff)
		}
	}

	attempt := func() (T, error) {
		var result T
		started := time.Now()

		run := func() error {
			r, err := i.call(ctx, key, payload)
			if err != nil {
				return err
			}
			result = r
			return nil
		}

		var err error
		if breaker != nil {
			err = breaker.Execute(run)
		} else {
			err = run()
		}

		if i.metrics != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
			status := outcomeOK
			if err != nil {
				status = outcomeError
			}
			i.metrics.RecordUpstreamCall(ctx, i.name, status, time.Since(started))
		}
		return result, err
	}

	doRetry := func() (T, error) {
		return resilience.Retry(ctx, retryCfg, attempt)
	}

	if i.bulkhead != nil {
		return resilience.ExecuteWithResult(i.bulkhead, ctx, doRetry)
	}
	return doRetry()
}

// finish records the invocation outcome on the span, metrics, and log, and
// passes the error back through for convenience.
func (i *Invoker[T]) finish(ctx context.Context, log *logger.Logger, start time.Time, outcome string, err error) error {
	duration := time.Since(start)

	observability.SetSpanAttribute(ctx, observability.AttrStatus, outcome)
	observability.SetSpanAttribute(ctx, observability.AttrDurationMs, duration.Milliseconds())
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	if i.metrics != nil {
		i.metrics.RecordInvocation(ctx, i.name, outcome, duration)
	}

	fields := logger.Fields(
		logger.FieldStatus, outcome,
		logger.FieldDuration, duration.Milliseconds(),
	)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Warn("invocation failed", fields)
	} else {
		log.Debug("invocation complete", fields)
	}
	return err
}
