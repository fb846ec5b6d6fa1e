package resilience

import "sync"

// BreakerGroup manages one circuit breaker per key, created lazily on first
// use. Each protected operation/key gets independent failure accounting, so
// one unhealthy upstream endpoint cannot open the circuit for the rest.
type BreakerGroup struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewBreakerGroup creates a group whose members share the given config.
// The member name is the group name suffixed with the key.
func NewBreakerGroup(config CircuitBreakerConfig) *BreakerGroup {
	return &BreakerGroup{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for key, creating it on first use.
func (g *BreakerGroup) Get(key string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[key]
	if !ok {
		cfg := g.config
		if cfg.Name != "" {
			cfg.Name = cfg.Name + ":" + key
		} else {
			cfg.Name = key
		}
		cb = NewCircuitBreaker(cfg)
		g.breakers[key] = cb
	}
	return cb
}

// Execute runs fn through the breaker for key.
func (g *BreakerGroup) Execute(key string, fn func() error) error {
	return g.Get(key).Execute(fn)
}

// Reset resets the breaker for key if it exists.
func (g *BreakerGroup) Reset(key string) {
	g.mu.Lock()
	cb, ok := g.breakers[key]
	g.mu.Unlock()

	if ok {
		cb.Reset()
	}
}

// Len returns the number of breakers created so far.
func (g *BreakerGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.breakers)
}
