// Package config loads and validates the library's configuration from YAML
// files and environment variables.
//
// Viper merges sources in increasing precedence: shieldkit.yml (or
// config.yml), a .env file loaded through godotenv, and the process
// environment. Environment variables address nested keys with underscores,
// so RATELIMIT_RATE overrides ratelimit.rate.
//
//	var cfg config.Config
//	if err := config.Load(&cfg); err != nil { ... }
//	store := cache.New[Details](cfg.Cache.Build())
//	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.BuildTokenBucket(cfg.Name))
//
// Durations are strings in Go duration syntax ("30s", "1m"); each section's
// Build method converts the validated section into the runtime config of the
// component it configures.
package config
