// Package resilience provides patterns for shielding a downstream dependency
// from overuse and transient failure. It includes circuit breaker, retry,
// and bulkhead patterns; rate limiting lives in the ratelimit package.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited trial requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this circuit breaker for metrics/logging.
	Name string
	// MaxFailures is the number of counted failures before opening.
	MaxFailures int
	// RecoveryTimeout is how long the breaker stays open before allowing
	// trial calls.
	RecoveryTimeout time.Duration
	// HalfOpenMaxCalls is the number of trial calls allowed in half-open.
	HalfOpenMaxCalls int
	// IsFailure decides whether an error counts toward the failure
	// threshold. Errors it rejects propagate without affecting breaker
	// state. Defaults to counting every error except context
	// cancellation/deadline.
	IsFailure func(error) bool
	// Clock is the time source. Defaults to the system clock.
	Clock clock.Clock
	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// DefaultIsFailure counts every error except context cancellation.
func DefaultIsFailure(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// CircuitBreaker prevents cascading failures by failing fast when a
// dependency is unhealthy.
//
// States:
//   - Closed: normal operation, requests pass through
//   - Open: dependency is unhealthy, requests fail immediately
//   - Half-Open: testing recovery, a limited number of trials allowed
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	openedAt      time.Time
	halfOpenCalls int
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = DefaultIsFailure
	}
	if config.Clock == nil {
		config.Clock = clock.NewSystem()
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs the given function through the circuit breaker.
// Returns ErrCircuitOpen without invoking fn if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// State returns the current circuit breaker state, applying the
// open-to-half-open transition if the recovery timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Reset returns the circuit breaker to closed with all counters cleared.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCalls = 0
}

// Failures returns the current counted failure streak.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// allowRequest checks if a request should be allowed. In half-open state it
// also claims one of the trial slots, so concurrent callers cannot exceed
// HalfOpenMaxCalls.
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult applies the call outcome to breaker state. Errors the
// IsFailure predicate rejects are neutral: they neither trip the breaker nor
// reset the failure streak.
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.onSuccess()
		return
	}
	if cb.config.IsFailure(err) {
		cb.onFailure()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenMaxCalls {
			cb.toState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	switch cb.currentState() {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.openedAt = cb.config.Clock.Now()
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		// Failed trial: back to open for a fresh cooldown.
		cb.openedAt = cb.config.Clock.Now()
		cb.toState(StateOpen)
	}
}

// currentState returns the state, handling the cooldown transition.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen {
		if cb.config.Clock.Now().Sub(cb.openedAt) >= cb.config.RecoveryTimeout {
			cb.toState(StateHalfOpen)
		}
	}
	return cb.state
}

// toState transitions to a new state. Caller must hold cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.halfOpenCalls = 0
	case StateHalfOpen, StateOpen:
		cb.halfOpenCalls = 0
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
