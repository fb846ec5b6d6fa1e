package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/shieldkit/shieldkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", map[string]interface{}{
			"service":  config.ServiceName,
			"endpoint": config.Endpoint,
			"interval": config.Interval.String(),
		})
	}

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments for the cache, rate limiter, circuit
// breaker, retry, and upstream-call layers.
type Metrics struct {
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	cacheEvictions     metric.Int64Counter
	cacheSetErrors     metric.Int64Counter
	limiterRejections  metric.Int64Counter
	breakerTransitions metric.Int64Counter
	breakerRejections  metric.Int64Counter
	retryAttempts      metric.Int64Counter
	upstreamTotal      metric.Int64Counter
	upstreamDuration   metric.Float64Histogram
	invocationTotal    metric.Int64Counter
	invocationDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	cacheHits, err := meter.Int64Counter("cache.hits",
		metric.WithDescription("Cache lookups served from the cache"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache.hits counter: %w", err)
	}

	cacheMisses, err := meter.Int64Counter("cache.misses",
		metric.WithDescription("Cache lookups that fell through to the upstream"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache.misses counter: %w", err)
	}

	cacheEvictions, err := meter.Int64Counter("cache.evictions",
		metric.WithDescription("Entries evicted to keep the cache within capacity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache.evictions counter: %w", err)
	}

	cacheSetErrors, err := meter.Int64Counter("cache.set_errors",
		metric.WithDescription("Failed cache fills after successful upstream calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cache.set_errors counter: %w", err)
	}

	limiterRejections, err := meter.Int64Counter("ratelimit.rejections",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ratelimit.rejections counter: %w", err)
	}

	breakerTransitions, err := meter.Int64Counter("circuit.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit.transitions counter: %w", err)
	}

	breakerRejections, err := meter.Int64Counter("circuit.rejections",
		metric.WithDescription("Requests rejected by an open circuit"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit.rejections counter: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("retry.attempts",
		metric.WithDescription("Retry attempts beyond the first call"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.attempts counter: %w", err)
	}

	upstreamTotal, err := meter.Int64Counter("upstream.calls",
		metric.WithDescription("Upstream calls by operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating upstream.calls counter: %w", err)
	}

	upstreamDuration, err := meter.Float64Histogram("upstream.duration",
		metric.WithDescription("Upstream call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating upstream.duration histogram: %w", err)
	}

	invocationTotal, err := meter.Int64Counter("invoker.invocations",
		metric.WithDescription("Invocations by operation and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating invoker.invocations counter: %w", err)
	}

	invocationDuration, err := meter.Float64Histogram("invoker.duration",
		metric.WithDescription("End-to-end invocation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating invoker.duration histogram: %w", err)
	}

	return &Metrics{
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		cacheEvictions:     cacheEvictions,
		cacheSetErrors:     cacheSetErrors,
		limiterRejections:  limiterRejections,
		breakerTransitions: breakerTransitions,
		breakerRejections:  breakerRejections,
		retryAttempts:      retryAttempts,
		upstreamTotal:      upstreamTotal,
		upstreamDuration:   upstreamDuration,
		invocationTotal:    invocationTotal,
		invocationDuration: invocationDuration,
	}, nil
}

// RecordCacheHit records a cache hit for an operation.
func (m *Metrics) RecordCacheHit(ctx context.Context, operation string) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordCacheMiss records a cache miss for an operation.
func (m *Metrics) RecordCacheMiss(ctx context.Context, operation string) {
	m.cacheMisses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordCacheEviction records evicted entries.
func (m *Metrics) RecordCacheEviction(ctx context.Context, count int64) {
	m.cacheEvictions.Add(ctx, count)
}

// RecordCacheSetError records a failed cache fill.
func (m *Metrics) RecordCacheSetError(ctx context.Context, operation string) {
	m.cacheSetErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordLimiterRejection records a rate limiter rejection.
func (m *Metrics) RecordLimiterRejection(ctx context.Context, limiter, key string) {
	m.limiterRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter", limiter),
		attribute.String("key", key),
	))
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, circuit, from, to string) {
	m.breakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("circuit", circuit),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordBreakerRejection records a request rejected by an open circuit.
func (m *Metrics) RecordBreakerRejection(ctx context.Context, circuit string) {
	m.breakerRejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("circuit", circuit),
	))
}

// RecordRetryAttempt records a retry beyond the first call.
func (m *Metrics) RecordRetryAttempt(ctx context.Context, operation string, attempt int) {
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("attempt", attempt),
	))
}

// RecordUpstreamCall records a completed upstream call.
func (m *Metrics) RecordUpstreamCall(ctx context.Context, operation, status string, duration time.Duration) {
	m.upstreamTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.upstreamDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordInvocation records a completed end-to-end invocation.
func (m *Metrics) RecordInvocation(ctx context.Context, operation, outcome string, duration time.Duration) {
	m.invocationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.invocationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
