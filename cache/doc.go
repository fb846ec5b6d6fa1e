// Package cache provides a bounded in-memory key/value cache with per-entry
// TTL and LRU eviction.
//
// The TTLCache is the single-process implementation of the Store interface;
// a Redis-backed implementation with the same contract lives in the redis
// package. Which one a caller wires in is a construction-time decision.
//
//	c := cache.New[string](cache.Config{MaxEntries: 1024, SweepInterval: time.Minute})
//	defer c.Close()
//
//	_ = c.Set(ctx, "place:123", "value", 30*time.Second)
//	v, ok, _ := c.Get(ctx, "place:123")
package cache
