// Package invoker composes the cache, rate limiter, circuit breaker, retry,
// and bulkhead layers around an abstract upstream call.
//
// The pipeline for each invocation, in order:
//
//  1. An open circuit rejects immediately; the cache is not consulted, so a
//     stale-but-cached answer cannot mask a known-bad upstream.
//  2. A rate limiter with no capacity rejects immediately without touching
//     the cache or consuming a token.
//  3. A cache hit is returned without consuming a rate limit token and
//     without affecting breaker state.
//  4. On a miss, a token is consumed, the optional bulkhead claims a slot,
//     and the upstream call runs through the breaker with retries.
//  5. A successful result is written back to the cache; a failed write is
//     logged and counted but never fails the call.
//
//	inv, err := invoker.New(invoker.Config[Details]{
//	    Name:     "search",
//	    Call:     fetchDetails,
//	    Cache:    cache.New[Details](cache.DefaultConfig()),
//	    CacheTTL: 30 * time.Second,
//	    Limiter:  ratelimit.NewTokenBucket(ratelimit.DefaultTokenBucketConfig("search")),
//	})
//	details, err := inv.Invoke(ctx, "place:123", query)
package invoker
