package config

import (
	"fmt"
	"time"

	"github.com/shieldkit/shieldkit/cache"
	"github.com/shieldkit/shieldkit/logger"
	"github.com/shieldkit/shieldkit/ratelimit"
	"github.com/shieldkit/shieldkit/redis"
	"github.com/shieldkit/shieldkit/resilience"
)

// Config aggregates every tunable of the library. Durations are strings in
// Go duration syntax ("30s", "1m") so the whole struct round-trips through
// YAML and environment variables.
type Config struct {
	// Name identifies the protected operation or service.
	Name string `yaml:"name" mapstructure:"name"`
	// Environment is the deployment environment.
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Debug enables verbose behavior in development.
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Logging   logger.Config   `yaml:"logging" mapstructure:"logging"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	RateLimit RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Breaker   BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
	Retry     RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Bulkhead  BulkheadConfig  `yaml:"bulkhead" mapstructure:"bulkhead"`
	Redis     redis.Config    `yaml:"redis" mapstructure:"redis"`
}

// ApplyDefaults fills zero values across all sections.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Cache.ApplyDefaults()
	c.RateLimit.ApplyDefaults()
	c.Breaker.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Bulkhead.ApplyDefaults()
	c.Redis.ApplyDefaults()
}

// Validate checks all sections.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, v := range validEnvs {
		if c.Environment == v {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of [development, staging, production] (got: %s)", c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("config.cache: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("config.ratelimit: %w", err)
	}
	if err := c.Breaker.Validate(); err != nil {
		return fmt.Errorf("config.breaker: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("config.retry: %w", err)
	}
	if err := c.Bulkhead.Validate(); err != nil {
		return fmt.Errorf("config.bulkhead: %w", err)
	}
	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("config.redis: %w", err)
	}
	return nil
}

// CacheConfig configures the in-memory cache and the entry TTL.
type CacheConfig struct {
	MaxEntries    int    `yaml:"max_entries" mapstructure:"max_entries"`
	TTL           string `yaml:"ttl" mapstructure:"ttl"`
	SweepInterval string `yaml:"sweep_interval" mapstructure:"sweep_interval"`
}

func (c *CacheConfig) ApplyDefaults() {
	if c.MaxEntries == 0 {
		c.MaxEntries = 1024
	}
	if c.TTL == "" {
		c.TTL = "30s"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
}

func (c *CacheConfig) Validate() error {
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", c.TTL, err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive (got: %s)", c.TTL)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval %q: %w", c.SweepInterval, err)
	}
	return nil
}

// Build converts to the runtime cache config. Call Validate first.
func (c *CacheConfig) Build() cache.Config {
	sweep, _ := time.ParseDuration(c.SweepInterval)
	return cache.Config{
		MaxEntries:    c.MaxEntries,
		SweepInterval: sweep,
	}
}

// EntryTTL returns the parsed per-entry TTL. Call Validate first.
func (c *CacheConfig) EntryTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.TTL)
	return ttl
}

// RateLimitConfig configures both limiter flavors; which one a caller builds
// depends on whether it needs smoothing (token bucket) or a hard cap
// (sliding window).
type RateLimitConfig struct {
	// Rate is the token refill rate per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the token bucket capacity.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// MaxRequests is the sliding window hard cap.
	MaxRequests int `yaml:"max_requests" mapstructure:"max_requests"`
	// Window is the sliding window interval.
	Window string `yaml:"window" mapstructure:"window"`
}

func (c *RateLimitConfig) ApplyDefaults() {
	if c.Rate == 0 {
		c.Rate = 10.0
	}
	if c.Burst == 0 {
		c.Burst = 20
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = 100
	}
	if c.Window == "" {
		c.Window = "1m"
	}
}

func (c *RateLimitConfig) Validate() error {
	if c.Rate < 0 {
		return fmt.Errorf("rate must not be negative (got: %f)", c.Rate)
	}
	if _, err := time.ParseDuration(c.Window); err != nil {
		return fmt.Errorf("invalid window %q: %w", c.Window, err)
	}
	return nil
}

// BuildTokenBucket converts to a token bucket config.
func (c *RateLimitConfig) BuildTokenBucket(name string) ratelimit.TokenBucketConfig {
	return ratelimit.TokenBucketConfig{
		Name:  name,
		Rate:  c.Rate,
		Burst: c.Burst,
	}
}

// BuildSlidingWindow converts to a sliding window config. Call Validate
// first.
func (c *RateLimitConfig) BuildSlidingWindow(name string) ratelimit.SlidingWindowConfig {
	window, _ := time.ParseDuration(c.Window)
	return ratelimit.SlidingWindowConfig{
		Name:        name,
		MaxRequests: c.MaxRequests,
		Window:      window,
	}
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	MaxFailures      int    `yaml:"max_failures" mapstructure:"max_failures"`
	RecoveryTimeout  string `yaml:"recovery_timeout" mapstructure:"recovery_timeout"`
	HalfOpenMaxCalls int    `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
}

func (c *BreakerConfig) ApplyDefaults() {
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.RecoveryTimeout == "" {
		c.RecoveryTimeout = "30s"
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = 1
	}
}

func (c *BreakerConfig) Validate() error {
	if _, err := time.ParseDuration(c.RecoveryTimeout); err != nil {
		return fmt.Errorf("invalid recovery_timeout %q: %w", c.RecoveryTimeout, err)
	}
	return nil
}

// Build converts to a circuit breaker config. Call Validate first.
func (c *BreakerConfig) Build(name string) resilience.CircuitBreakerConfig {
	recovery, _ := time.ParseDuration(c.RecoveryTimeout)
	return resilience.CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      c.MaxFailures,
		RecoveryTimeout:  recovery,
		HalfOpenMaxCalls: c.HalfOpenMaxCalls,
	}
}

// RetryConfig configures the retry schedule.
type RetryConfig struct {
	MaxAttempts    int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff string  `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	Jitter         bool    `yaml:"jitter" mapstructure:"jitter"`
}

func (c *RetryConfig) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff == "" {
		c.InitialBackoff = "100ms"
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "10s"
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2.0
		c.Jitter = true
	}
}

func (c *RetryConfig) Validate() error {
	if _, err := time.ParseDuration(c.InitialBackoff); err != nil {
		return fmt.Errorf("invalid initial_backoff %q: %w", c.InitialBackoff, err)
	}
	if _, err := time.ParseDuration(c.MaxBackoff); err != nil {
		return fmt.Errorf("invalid max_backoff %q: %w", c.MaxBackoff, err)
	}
	return nil
}

// Build converts to a runtime retry config. Call Validate first.
func (c *RetryConfig) Build() resilience.RetryConfig {
	initial, _ := time.ParseDuration(c.InitialBackoff)
	max, _ := time.ParseDuration(c.MaxBackoff)
	return resilience.RetryConfig{
		MaxAttempts:    c.MaxAttempts,
		InitialBackoff: initial,
		MaxBackoff:     max,
		BackoffFactor:  c.BackoffFactor,
		Jitter:         c.Jitter,
	}
}

// BulkheadConfig configures the concurrency cap.
type BulkheadConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	MaxWait       string `yaml:"max_wait" mapstructure:"max_wait"`
}

func (c *BulkheadConfig) ApplyDefaults() {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 10
	}
	if c.MaxWait == "" {
		c.MaxWait = "0s"
	}
}

func (c *BulkheadConfig) Validate() error {
	if _, err := time.ParseDuration(c.MaxWait); err != nil {
		return fmt.Errorf("invalid max_wait %q: %w", c.MaxWait, err)
	}
	return nil
}

// Build converts to a bulkhead config. Call Validate first.
func (c *BulkheadConfig) Build(name string) resilience.BulkheadConfig {
	wait, _ := time.ParseDuration(c.MaxWait)
	return resilience.BulkheadConfig{
		Name:          name,
		MaxConcurrent: c.MaxConcurrent,
		MaxWait:       wait,
	}
}
