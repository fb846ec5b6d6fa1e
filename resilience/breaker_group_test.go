package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

func TestBreakerGroup_CreatesPerKeyBreakers(t *testing.T) {
	g := NewBreakerGroup(CircuitBreakerConfig{
		Name:            "places",
		MaxFailures:     1,
		RecoveryTimeout: time.Hour,
	})

	if g.Get("a") != g.Get("a") {
		t.Error("expected same breaker for same key")
	}
	if g.Get("a") == g.Get("b") {
		t.Error("expected distinct breakers per key")
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 breakers, got %d", g.Len())
	}
}

func TestBreakerGroup_FailuresAreIsolatedPerKey(t *testing.T) {
	clk := clock.NewFake(time.Now())
	g := NewBreakerGroup(CircuitBreakerConfig{
		Name:            "places",
		MaxFailures:     1,
		RecoveryTimeout: time.Hour,
		Clock:           clk,
	})

	_ = g.Execute("bad", func() error { return errors.New("fail") })

	if g.Get("bad").State() != StateOpen {
		t.Errorf("expected 'bad' breaker open, got %s", g.Get("bad").State())
	}
	if g.Get("good").State() != StateClosed {
		t.Errorf("expected 'good' breaker untouched, got %s", g.Get("good").State())
	}

	var called bool
	if err := g.Execute("good", func() error { called = true; return nil }); err != nil {
		t.Errorf("expected success on healthy key, got %v", err)
	}
	if !called {
		t.Error("expected operation on healthy key to run")
	}
}

func TestBreakerGroup_Reset(t *testing.T) {
	g := NewBreakerGroup(CircuitBreakerConfig{
		Name:            "places",
		MaxFailures:     1,
		RecoveryTimeout: time.Hour,
	})

	_ = g.Execute("k", func() error { return errors.New("fail") })
	g.Reset("k")

	if g.Get("k").State() != StateClosed {
		t.Errorf("expected closed after reset, got %s", g.Get("k").State())
	}

	// Resetting an unknown key is a no-op.
	g.Reset("unknown")
}
