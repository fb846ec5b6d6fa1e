// Package upstream defines the contract between shieldkit and the wrapped
// API client: the call signature the invoker composes around, and the error
// taxonomy that drives retry and circuit breaker decisions.
//
// The actual HTTP client is a collaborator, not part of this module. It is
// expected to classify its failures into *Error values (FromStatus helps for
// status-code mapping) so the resilience layer can tell transient from
// permanent failures without inspecting transport details.
package upstream

import "context"

// CallFunc is the abstract upstream operation the invoker wraps: given a
// cache/limit key and a request payload, perform the real call. It is the
// only point in the composed pipeline that performs I/O.
type CallFunc[T any] func(ctx context.Context, key string, payload any) (T, error)
