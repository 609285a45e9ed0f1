// Package config loads service configuration from environment
// variables with sensible production defaults.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
	Fetch     FetchConfig
	Cache     CacheConfig
	Handlers  HandlersConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SandboxConfig holds JavaScript sandbox limits.
type SandboxConfig struct {
	TimeoutMS   int   `envconfig:"SANDBOX_TIMEOUT_MS" default:"5000"`
	MaxMemoryMB int64 `envconfig:"SANDBOX_MAX_MEMORY_MB" default:"50"`
	PoolSize    int   `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
}

// FetchConfig holds HTML fetcher configuration.
type FetchConfig struct {
	TimeoutSec int    `envconfig:"FETCH_TIMEOUT_SEC" default:"30"`
	UserAgent  string `envconfig:"FETCH_USER_AGENT" default:"Mozilla/5.0 (compatible; webcontent-api/1.0)"`
	RetryMax   int    `envconfig:"FETCH_RETRY_MAX" default:"2"`
}

// CacheConfig holds the optional TTL result store configuration. An
// empty path disables persistence.
type CacheConfig struct {
	Path string `envconfig:"CACHE_PATH" default:""`
	TTL  string `envconfig:"CACHE_TTL" default:"1h"`
}

// ParseTTL parses the configured TTL as a Go duration.
func (c CacheConfig) ParseTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid CACHE_TTL %q: %w", c.TTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("CACHE_TTL must be positive, got %q", c.TTL)
	}
	return d, nil
}

// HandlersConfig points at the optional site-handler registry file.
type HandlersConfig struct {
	Path string `envconfig:"HANDLERS_PATH" default:""`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns the
// defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", Host: "0.0.0.0"},
		Logging:   LogConfig{Level: "info"},
		RateLimit: RateLimitConfig{RequestsPerSecond: 100, Burst: 200, Enabled: true},
		Sandbox:   SandboxConfig{TimeoutMS: 5000, MaxMemoryMB: 50, PoolSize: 4},
		Fetch:     FetchConfig{TimeoutSec: 30, UserAgent: "Mozilla/5.0 (compatible; webcontent-api/1.0)", RetryMax: 2},
		Cache:     CacheConfig{TTL: "1h"},
	}
}
