// Package clock provides an injectable time source so that components
// depending on wall-clock time (TTL expiry, token refill, breaker cooldowns)
// can be tested deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by shieldkit components.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// System is a Clock backed by the real wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// NewSystem returns the real clock.
func NewSystem() Clock { return System{} }

// Fake is a manually advanced Clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock starting at the given time.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake clock's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set moves the fake clock to an absolute time.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
