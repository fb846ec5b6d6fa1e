// Package resilience provides the failure-isolation half of shieldkit.
//
// This package includes:
//   - CircuitBreaker / BreakerGroup: stop calling a failing dependency for a
//     cooldown period, per protected key
//   - Retry: re-invoke failed operations with exponential backoff and jitter
//   - Bulkhead: cap concurrent access to isolate load spikes
//
// Rate limiting lives in the ratelimit package and caching in the cache
// package; the invoker package composes all of them into a single call path:
//
//	inv, _ := invoker.New[Result](invoker.Config[Result]{
//	    Name:     "places",
//	    Call:     fetchPlace,
//	    Limiter:  limiter,
//	    Cache:    store,
//	    CacheTTL: 30 * time.Second,
//	})
//	res, err := inv.Invoke(ctx, "place:123", payload)
//
// Each component is also usable on its own:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("places"))
//	err := cb.Execute(func() error { return client.Do(req) })
package resilience
