// Package observability provides OpenTelemetry tracing and metrics for the
// cache, rate limiter, circuit breaker, retry, and invoker layers, plus a
// small health-check model for backends.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("places-proxy"), log)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanInvoke)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("places-proxy"), log)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("places-proxy"))
//	metrics.RecordCacheHit(ctx, "search")
//
// Health checks:
//
//	health := observability.NewServiceHealth("places-proxy", "1.0.0")
//	health.AddComponent(redisClient.CheckHealth(ctx))
package observability
