package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

func newTestBreaker(t *testing.T, maxFailures int, recovery time.Duration) (*CircuitBreaker, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     maxFailures,
		RecoveryTimeout: recovery,
		Clock:           clk,
	})
	return cb, clk
}

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_AllowsRequestsWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(t, 3, time.Second)

	testErr := errors.New("test error")

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error {
			return testErr
		})
	}

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	// Next request fails immediately without invoking the operation.
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb, _ := newTestBreaker(t, 3, time.Second)

	_ = cb.Execute(func() error { return errors.New("fail") })
	_ = cb.Execute(func() error { return errors.New("fail") })
	_ = cb.Execute(func() error { return nil })

	if cb.Failures() != 0 {
		t.Errorf("expected failure streak reset, got %d", cb.Failures())
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_TransitionsToHalfOpenAfterRecoveryTimeout(t *testing.T) {
	cb, clk := newTestBreaker(t, 1, 50*time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	clk.Advance(60 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterSuccessInHalfOpen(t *testing.T) {
	cb, clk := newTestBreaker(t, 1, 10*time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	clk.Advance(15 * time.Millisecond)

	err := cb.Execute(func() error {
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnFailureInHalfOpen(t *testing.T) {
	cb, clk := newTestBreaker(t, 1, 10*time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	clk.Advance(15 * time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail again")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	// The failed trial restarts the cooldown.
	clk.Advance(5 * time.Millisecond)
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen during fresh cooldown, got %s", cb.State())
	}
	clk.Advance(10 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen after fresh cooldown, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAllowsSingleTrialUnderConcurrency(t *testing.T) {
	cb, clk := newTestBreaker(t, 1, 10*time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})
	clk.Advance(15 * time.Millisecond)

	var invoked int32
	var rejected int32
	var wg sync.WaitGroup
	block := make(chan struct{})

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := cb.Execute(func() error {
				atomic.AddInt32(&invoked, 1)
				<-block
				return nil
			})
			if errors.Is(err, ErrCircuitOpen) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}

	// Give the goroutines a moment to race for the trial slot.
	time.Sleep(20 * time.Millisecond)
	close(block)
	wg.Wait()

	if invoked != 1 {
		t.Errorf("expected exactly 1 trial call, got %d", invoked)
	}
	if rejected != 19 {
		t.Errorf("expected 19 rejections, got %d", rejected)
	}
}

func TestCircuitBreaker_NeutralErrorsDoNotCount(t *testing.T) {
	clk := clock.NewFake(time.Now())
	sentinel := errors.New("counted")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     2,
		RecoveryTimeout: time.Second,
		Clock:           clk,
		IsFailure: func(err error) bool {
			return errors.Is(err, sentinel)
		},
	})

	// Errors outside the expected-failure set propagate but are neutral.
	for i := 0; i < 10; i++ {
		err := cb.Execute(func() error { return errors.New("permanent") })
		if err == nil {
			t.Fatal("expected error to propagate")
		}
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected closed with 0 failures, got %s/%d", cb.State(), cb.Failures())
	}

	_ = cb.Execute(func() error { return sentinel })
	_ = cb.Execute(func() error { return sentinel })
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen after counted failures, got %s", cb.State())
	}
}

func TestCircuitBreaker_ContextCancellationIsNeutralByDefault(t *testing.T) {
	cb, _ := newTestBreaker(t, 1, time.Second)

	_ = cb.Execute(func() error { return context.Canceled })

	if cb.State() != StateClosed {
		t.Errorf("expected cancellation not to trip breaker, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(t, 1, time.Hour)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures after reset, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var stateChanges []struct{ from, to State }

	clk := clock.NewFake(time.Now())
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     1,
		RecoveryTimeout: 10 * time.Millisecond,
		Clock:           clk,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			stateChanges = append(stateChanges, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	})

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	clk.Advance(15 * time.Millisecond)
	_ = cb.State() // Trigger cooldown transition

	mu.Lock()
	defer mu.Unlock()

	if len(stateChanges) < 2 {
		t.Fatalf("expected at least 2 state changes, got %d", len(stateChanges))
	}
	if stateChanges[0].from != StateClosed || stateChanges[0].to != StateOpen {
		t.Errorf("expected Closed->Open, got %s->%s", stateChanges[0].from, stateChanges[0].to)
	}
	if stateChanges[1].from != StateOpen || stateChanges[1].to != StateHalfOpen {
		t.Errorf("expected Open->HalfOpen, got %s->%s", stateChanges[1].from, stateChanges[1].to)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				return nil
			})
			_ = cb.State()
			_ = cb.Failures()
		}()
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
