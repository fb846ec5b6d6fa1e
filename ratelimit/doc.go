// Package ratelimit provides per-key request rate limiting.
//
// Two algorithms are offered because they serve different endpoint budgets:
//
//   - TokenBucket: smoothed bursts up to a capacity, refilled continuously.
//     Preferred where bursty-but-smoothed traffic is acceptable.
//   - SlidingWindow: exact request count over a trailing interval.
//     Preferred for hard per-window caps ("100 requests per 60s").
//
// Both are in-memory and computation-only; a Redis-backed sliding window for
// multi-process deployments lives in the redis package. All limiters answer
// with a decision, never an error: a rejected request is the caller's call
// to fail or queue.
package ratelimit
