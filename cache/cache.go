package cache

import (
	"container/list"
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

// Common cache errors.
var (
	// ErrInvalidTTL is returned by Set when ttl is zero or negative.
	ErrInvalidTTL = errors.New("cache: ttl must be positive")
	// ErrCacheFull is returned by Set on a zero-capacity cache.
	ErrCacheFull = errors.New("cache: capacity is zero")
	// ErrClosed is returned once the cache has been closed.
	ErrClosed = errors.New("cache: closed")
)

// Store is the contract shared by the in-memory TTLCache and the
// Redis-backed cache. Context is unused by the in-memory implementation but
// required by remote backends.
type Store[V any] interface {
	// Get returns the value for key and whether it was present and fresh.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores value under key for ttl. ttl must be positive.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error
	// Clear removes entries whose key matches the glob pattern
	// ("" or "*" removes everything) and returns the number removed.
	Clear(ctx context.Context, pattern string) (int, error)
}

// Config controls cache capacity, maintenance, and time source.
type Config struct {
	// MaxEntries bounds the cache size. Zero means a zero-capacity cache
	// that rejects all inserts with ErrCacheFull.
	MaxEntries int
	// SweepInterval enables periodic removal of expired entries when
	// positive. Lazy expiration on Get works regardless; the sweep bounds
	// memory for keys that are written but never read again.
	SweepInterval time.Duration
	// Clock is the time source. Defaults to the system clock.
	Clock clock.Clock
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:    1024,
		SweepInterval: time.Minute,
	}
}

// entry is the value stored in the LRU list elements. The key is kept here
// because eviction starts from list nodes.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// TTLCache is a concurrency-safe in-memory cache with TTL and LRU eviction.
// A map gives O(1) lookup and a doubly-linked list maintains recency order:
// front is most recently used, back is least recently used.
//
// TTLCache owns its sweep goroutine. Call Close to stop it.
type TTLCache[V any] struct {
	mu sync.Mutex

	maxEntries int
	clk        clock.Clock
	items      map[string]*list.Element
	lru        *list.List

	sweepEvery time.Duration
	done       chan struct{}
	wg         sync.WaitGroup
	closed     bool
}

// New constructs a cache and starts background maintenance when enabled.
// A negative MaxEntries is treated as zero capacity.
func New[V any](cfg Config) *TTLCache[V] {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}

	c := &TTLCache[V]{
		maxEntries: cfg.MaxEntries,
		clk:        cfg.Clock,
		items:      make(map[string]*list.Element),
		lru:        list.New(),
		sweepEvery: cfg.SweepInterval,
		done:       make(chan struct{}),
	}

	if c.sweepEvery > 0 {
		c.wg.Add(1)
		go c.sweepLoop()
	}

	return c
}

// Get returns the value for key. Expired entries are evicted on access and
// reported as absent. A hit moves the entry to most-recently-used.
func (c *TTLCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return zero, false, ErrClosed
	}

	el, ok := c.items[key]
	if !ok {
		return zero, false, nil
	}

	ent := el.Value.(*entry[V])
	if !c.clk.Now().Before(ent.expiresAt) {
		c.removeElement(el)
		return zero, false, nil
	}

	c.lru.MoveToFront(el)
	return ent.value, true, nil
}

// Set inserts or overwrites key with value for ttl. Overwriting refreshes
// both the value and the expiry and marks the entry most-recently-used.
// When the cache is over capacity after insertion, least-recently-used
// entries are evicted until the bound holds.
func (c *TTLCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.maxEntries == 0 {
		return ErrCacheFull
	}

	expiresAt := c.clk.Now().Add(ttl)

	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.lru.MoveToFront(el)
		return nil
	}

	el := c.lru.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = el

	for c.lru.Len() > c.maxEntries {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
	return nil
}

// Delete removes key if present. Removing an absent key is not an error.
func (c *TTLCache[V]) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Clear removes all entries matching the glob pattern and returns the count
// removed. An empty pattern or "*" removes everything.
func (c *TTLCache[V]) Clear(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClosed
	}

	if pattern == "" || pattern == "*" {
		n := len(c.items)
		c.items = make(map[string]*list.Element)
		c.lru.Init()
		return n, nil
	}

	var matched []*list.Element
	for key, el := range c.items {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return 0, err
		}
		if ok {
			matched = append(matched, el)
		}
	}
	for _, el := range matched {
		c.removeElement(el)
	}
	return len(matched), nil
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been evicted.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the sweep goroutine and rejects further operations.
// Close is idempotent.
func (c *TTLCache[V]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
}

// removeElement unlinks an entry from both the map and the LRU list.
// Caller must hold c.mu.
func (c *TTLCache[V]) removeElement(el *list.Element) {
	ent := el.Value.(*entry[V])
	delete(c.items, ent.key)
	c.lru.Remove(el)
}

// sweepLoop periodically evicts expired entries so cold keys do not pin
// memory until the next Get.
func (c *TTLCache[V]) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

// removeExpired evicts every entry whose TTL has elapsed. It walks from the
// LRU end under the cache lock; the pass is a single bounded critical
// section over current entries.
func (c *TTLCache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	now := c.clk.Now()
	var expired []*list.Element
	for el := c.lru.Back(); el != nil; el = el.Prev() {
		if !now.Before(el.Value.(*entry[V]).expiresAt) {
			expired = append(expired, el)
		}
	}
	for _, el := range expired {
		c.removeElement(el)
	}
}

// compile-time interface check
var _ Store[any] = (*TTLCache[any])(nil)
