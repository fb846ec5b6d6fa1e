// Package redis provides the Redis-backed variants of shieldkit's cache and
// rate limiter for multi-process deployments, plus the client wrapper they
// share.
//
// Cache implements cache.Store with JSON serialization and native Redis
// TTLs; SlidingWindow implements ratelimit.Limiter with an atomic Lua
// script, so concurrent processes cannot race the prune/count/append cycle.
//
//	client, _ := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	store := redis.NewCache[PlaceDetails](client, "places")
//	limiter := redis.NewSlidingWindow(client, redis.SlidingWindowConfig{
//	    Name: "places", MaxRequests: 100, Window: time.Minute,
//	})
package redis
