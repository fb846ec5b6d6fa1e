package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

func TestSlidingWindow_AllowUpToLimit(t *testing.T) {
	client, _ := newTestClient(t)
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 3,
		Window:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := sw.Allow(ctx, "user1")
		if err != nil {
			t.Fatalf("allow %d failed: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	allowed, err := sw.Allow(ctx, "user1")
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if allowed {
		t.Error("request over limit must be denied")
	}
}

func TestSlidingWindow_WindowSlides(t *testing.T) {
	client, _ := newTestClient(t)
	fake := clock.NewFake(time.Unix(1000, 0))
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 2,
		Window:      time.Minute,
		Clock:       fake,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := sw.Allow(ctx, "k"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if ok, _ := sw.Allow(ctx, "k"); ok {
		t.Fatal("expected denial at limit")
	}

	// Once the old requests fall out of the trailing window, capacity returns.
	fake.Advance(61 * time.Second)
	if ok, err := sw.Allow(ctx, "k"); err != nil || !ok {
		t.Errorf("expected allowance after window slid: ok=%v err=%v", ok, err)
	}
}

func TestSlidingWindow_KeysAreIndependent(t *testing.T) {
	client, _ := newTestClient(t)
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 1,
		Window:      time.Minute,
	})
	ctx := context.Background()

	if ok, _ := sw.Allow(ctx, "a"); !ok {
		t.Fatal("first request for a should pass")
	}
	if ok, _ := sw.Allow(ctx, "a"); ok {
		t.Fatal("a should now be limited")
	}
	if ok, _ := sw.Allow(ctx, "b"); !ok {
		t.Error("b must not be affected by a's usage")
	}
}

func TestSlidingWindow_ReadyDoesNotConsume(t *testing.T) {
	client, _ := newTestClient(t)
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 1,
		Window:      time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ready, err := sw.Ready(ctx, "k")
		if err != nil {
			t.Fatalf("ready failed: %v", err)
		}
		if !ready {
			t.Fatalf("ready probe %d must not consume capacity", i)
		}
	}

	if ok, _ := sw.Allow(ctx, "k"); !ok {
		t.Error("capacity should still be available after Ready probes")
	}
}

func TestSlidingWindow_Remaining(t *testing.T) {
	client, _ := newTestClient(t)
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 5,
		Window:      time.Minute,
	})
	ctx := context.Background()

	if rem, err := sw.Remaining(ctx, "k"); err != nil || rem != 5 {
		t.Fatalf("expected 5 remaining, got %d (err=%v)", rem, err)
	}

	_, _ = sw.Allow(ctx, "k")
	_, _ = sw.Allow(ctx, "k")

	if rem, err := sw.Remaining(ctx, "k"); err != nil || rem != 3 {
		t.Errorf("expected 3 remaining, got %d (err=%v)", rem, err)
	}
}

func TestSlidingWindow_Reset(t *testing.T) {
	client, _ := newTestClient(t)
	sw := NewSlidingWindow(client, SlidingWindowConfig{
		Name:        "api",
		MaxRequests: 1,
		Window:      time.Minute,
	})
	ctx := context.Background()

	if ok, _ := sw.Allow(ctx, "k"); !ok {
		t.Fatal("first request should pass")
	}
	if ok, _ := sw.Allow(ctx, "k"); ok {
		t.Fatal("should be limited")
	}

	if err := sw.Reset(ctx, "k"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if ok, _ := sw.Allow(ctx, "k"); !ok {
		t.Error("expected allowance after reset")
	}
}
