package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

func newTestCache(t *testing.T, maxEntries int) (*TTLCache[string], *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New[string](Config{MaxEntries: maxEntries, Clock: clk})
	t.Cleanup(c.Close)
	return c, clk
}

func TestTTLCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, ok, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || v != "v1" {
		t.Errorf("expected hit with 'v1', got ok=%v v=%q", ok, v)
	}
}

func TestTTLCache_MissOnAbsentKey(t *testing.T) {
	c, _ := newTestCache(t, 10)

	_, ok, err := c.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected miss for absent key")
	}
}

func TestTTLCache_ExpiryIsLazy(t *testing.T) {
	c, clk := newTestCache(t, 10)
	ctx := context.Background()

	if err := c.Set(ctx, "k1", "v1", time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	clk.Advance(1001 * time.Millisecond)

	_, ok, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected expired entry to be absent")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be evicted on access, len=%d", c.Len())
	}
}

func TestTTLCache_InvalidTTL(t *testing.T) {
	c, _ := newTestCache(t, 10)

	if err := c.Set(context.Background(), "k1", "v1", 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL, got %v", err)
	}
	if err := c.Set(context.Background(), "k1", "v1", -time.Second); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("expected ErrInvalidTTL, got %v", err)
	}
}

func TestTTLCache_ZeroCapacityRejectsInserts(t *testing.T) {
	c, _ := newTestCache(t, 0)

	if err := c.Set(context.Background(), "k1", "v1", time.Minute); !errors.Is(err, ErrCacheFull) {
		t.Errorf("expected ErrCacheFull, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", c.Len())
	}
}

func TestTTLCache_LRUEviction(t *testing.T) {
	c, _ := newTestCache(t, 2)
	ctx := context.Background()

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")
	mustSet(t, c, "c", "3")

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected 'a' to be evicted as least recently used")
	}
	if _, ok, _ := c.Get(ctx, "b"); !ok {
		t.Error("expected 'b' to survive")
	}
	if _, ok, _ := c.Get(ctx, "c"); !ok {
		t.Error("expected 'c' to survive")
	}
}

func TestTTLCache_GetRefreshesRecency(t *testing.T) {
	c, _ := newTestCache(t, 2)
	ctx := context.Background()

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Fatal("expected hit on 'a'")
	}

	mustSet(t, c, "c", "3")

	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if _, ok, _ := c.Get(ctx, "a"); !ok {
		t.Error("expected 'a' to survive after touch")
	}
}

func TestTTLCache_OverwriteRefreshesTTLAndValue(t *testing.T) {
	c, clk := newTestCache(t, 10)
	ctx := context.Background()

	mustSet(t, c, "k1", "old")
	clk.Advance(50 * time.Second)
	if err := c.Set(ctx, "k1", "new", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("overwrite must not duplicate entries, len=%d", c.Len())
	}

	// Past the original expiry but within the refreshed one.
	clk.Advance(30 * time.Second)
	v, ok, _ := c.Get(ctx, "k1")
	if !ok || v != "new" {
		t.Errorf("expected refreshed entry 'new', got ok=%v v=%q", ok, v)
	}
}

func TestTTLCache_BoundHoldsUnderLoad(t *testing.T) {
	c, _ := newTestCache(t, 5)

	for i := 0; i < 100; i++ {
		mustSet(t, c, fmt.Sprintf("k%d", i), "v")
		if c.Len() > 5 {
			t.Fatalf("cache bound violated after insert %d: len=%d", i, c.Len())
		}
	}
}

func TestTTLCache_Delete(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	mustSet(t, c, "k1", "v1")
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k1"); ok {
		t.Error("expected deleted key to be absent")
	}

	// Deleting an absent key is a no-op.
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Errorf("expected nil deleting absent key, got %v", err)
	}
}

func TestTTLCache_ClearAll(t *testing.T) {
	c, _ := newTestCache(t, 10)

	mustSet(t, c, "a", "1")
	mustSet(t, c, "b", "2")

	n, err := c.Clear(context.Background(), "")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", c.Len())
	}
}

func TestTTLCache_ClearPattern(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	mustSet(t, c, "place:1", "a")
	mustSet(t, c, "place:2", "b")
	mustSet(t, c, "search:1", "c")

	n, err := c.Clear(ctx, "place:*")
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, ok, _ := c.Get(ctx, "search:1"); !ok {
		t.Error("expected non-matching key to survive")
	}
}

func TestTTLCache_ClearBadPattern(t *testing.T) {
	c, _ := newTestCache(t, 10)

	if _, err := c.Clear(context.Background(), "[bad"); err == nil {
		t.Error("expected error for malformed pattern")
	}
}

func TestTTLCache_BackgroundSweep(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c := New[string](Config{MaxEntries: 10, SweepInterval: 5 * time.Millisecond, Clock: clk})
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "cold", "v", time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clk.Advance(2 * time.Second)

	// The sweep runs on real time; the expiry decision uses the fake clock.
	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("expected sweep to evict expired entry without access")
	}
}

func TestTTLCache_ClosedRejectsOperations(t *testing.T) {
	c, _ := newTestCache(t, 10)
	c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Set, got %v", err)
	}
	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Get, got %v", err)
	}

	// Double close must not panic.
	c.Close()
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c, _ := newTestCache(t, 50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%60)
				_ = c.Set(ctx, key, "v", time.Minute)
				_, _, _ = c.Get(ctx, key)
				if i%17 == 0 {
					_ = c.Delete(ctx, key)
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("cache bound violated under concurrency: len=%d", c.Len())
	}
}

func mustSet(t *testing.T, c *TTLCache[string], key, val string) {
	t.Helper()
	if err := c.Set(context.Background(), key, val, time.Minute); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}
