package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/shieldkit/shieldkit/clock"
)

// SlidingWindowConfig configures a sliding window limiter.
type SlidingWindowConfig struct {
	// Name identifies this limiter for metrics/logging.
	Name string
	// MaxRequests is the hard cap per window.
	MaxRequests int
	// Window is the trailing interval requests are counted over.
	Window time.Duration
	// Clock is the time source. Defaults to the system clock.
	Clock clock.Clock
	// OnLimit is called when a request is rejected.
	OnLimit func(name, key string)
}

// DefaultSlidingWindowConfig returns sensible defaults.
func DefaultSlidingWindowConfig(name string) SlidingWindowConfig {
	return SlidingWindowConfig{
		Name:        name,
		MaxRequests: 100,
		Window:      time.Minute,
	}
}

// SlidingWindow implements per-key exact request counting over a trailing
// window. Unlike the token bucket it admits no smoothing: the cap is a hard
// limit on requests within any trailing Window.
//
// Timestamps older than the window are pruned on every check, before any
// append, so per-key state cannot grow without bound.
type SlidingWindow struct {
	config SlidingWindowConfig

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewSlidingWindow creates a per-key sliding window limiter.
func NewSlidingWindow(config SlidingWindowConfig) *SlidingWindow {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Clock == nil {
		config.Clock = clock.NewSystem()
	}

	return &SlidingWindow{
		config:  config,
		windows: make(map[string][]time.Time),
	}
}

// Allow records a request for key if the window has room.
func (sw *SlidingWindow) Allow(_ context.Context, key string) (bool, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.config.Clock.Now()
	stamps := sw.prune(key, now)

	if len(stamps) >= sw.config.MaxRequests {
		sw.windows[key] = stamps
		if sw.config.OnLimit != nil {
			sw.config.OnLimit(sw.config.Name, key)
		}
		return false, nil
	}

	sw.windows[key] = append(stamps, now)
	return true, nil
}

// Ready reports whether a request for key would be admitted, without
// recording anything.
func (sw *SlidingWindow) Ready(_ context.Context, key string) (bool, error) {
	return sw.Remaining(key) > 0, nil
}

// Remaining returns how many more requests key may make in the current
// window.
func (sw *SlidingWindow) Remaining(key string) int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	stamps := sw.prune(key, sw.config.Clock.Now())
	sw.windows[key] = stamps
	return sw.config.MaxRequests - len(stamps)
}

// Reset clears all recorded requests for key.
func (sw *SlidingWindow) Reset(_ context.Context, key string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.windows, key)
	return nil
}

// prune drops timestamps older than the trailing window. Caller must hold
// sw.mu. Timestamps are appended in order, so the slice stays sorted and a
// single scan from the front suffices.
func (sw *SlidingWindow) prune(key string, now time.Time) []time.Time {
	stamps := sw.windows[key]
	cutoff := now.Add(-sw.config.Window)

	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[i:]...)
}

// compile-time interface check
var _ Limiter = (*SlidingWindow)(nil)
