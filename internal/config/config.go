// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Backends.
const (
	BackendMock   = "mock"
	BackendRemote = "remote"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env      string `env:"KP_ENV" envDefault:"development"`
	LogLevel string `env:"KP_LOG_LEVEL" envDefault:"info"`
	DataDir  string `env:"KP_DATA_DIR" envDefault:"./data"`

	// Local storage
	DBPath        string `env:"KP_DB_PATH" envDefault:"./data/kplus.db"`
	StorageDriver string `env:"KP_STORAGE_DRIVER" envDefault:"sqlite"`
	BadgerDir     string `env:"KP_BADGER_DIR" envDefault:"./data/badger"`

	// Backend selection
	Backend         string        `env:"KP_BACKEND" envDefault:"mock"`
	APIURL          string        `env:"KP_API_URL" envDefault:"http://localhost:8080"`
	APITimeout      time.Duration `env:"KP_API_TIMEOUT" envDefault:"10s"`
	APIRetries      int           `env:"KP_API_RETRIES" envDefault:"2"`
	LatencyScale    float64       `env:"KP_LATENCY_SCALE" envDefault:"1.0"`
	VerifyPasswords bool          `env:"KP_VERIFY_PASSWORDS" envDefault:"false"`

	// Façade server
	ServerHost      string        `env:"KP_SERVER_HOST" envDefault:"localhost"`
	ServerPort      int           `env:"KP_SERVER_PORT" envDefault:"8080"`
	ServerDBPath    string        `env:"KP_SERVER_DB_PATH" envDefault:"./data/kplus-server.db"`
	SessionLifetime time.Duration `env:"KP_SESSION_LIFETIME" envDefault:"24h"`
	RequestTimeout  time.Duration `env:"KP_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxUploadSize   int64         `env:"KP_MAX_UPLOAD_SIZE" envDefault:"10485760"`
	CORSOrigins     []string      `env:"KP_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	// Per-IP budget for all /api requests; 0 disables the limiter.
	APIRateLimit float64 `env:"KP_API_RATE_LIMIT" envDefault:"20"`
	APIRateBurst int     `env:"KP_API_RATE_BURST" envDefault:"40"`

	// Cache configuration
	RedisURL     string `env:"KP_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"KP_CACHE_PREFIX" envDefault:"kplus:"`  // Redis key prefix
	CacheTTL     int    `env:"KP_CACHE_TTL" envDefault:"300"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"KP_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog level. Unknown names mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case DriverSQLite, DriverBadger, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("KP_STORAGE_DRIVER: unknown driver %q", c.StorageDriver))
	}

	switch c.Backend {
	case BackendMock:
	case BackendRemote:
		if err := validateURL(c.APIURL); err != nil {
			errs = append(errs, fmt.Errorf("KP_API_URL: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("KP_BACKEND: unknown backend %q", c.Backend))
	}

	if c.LatencyScale < 0 {
		errs = append(errs, fmt.Errorf("KP_LATENCY_SCALE must not be negative, got %v", c.LatencyScale))
	}
	if c.APIRetries < 0 {
		errs = append(errs, fmt.Errorf("KP_API_RETRIES must not be negative, got %d", c.APIRetries))
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("KP_SERVER_PORT out of range: %d", c.ServerPort))
	}
	if c.SessionLifetime <= 0 {
		errs = append(errs, fmt.Errorf("KP_SESSION_LIFETIME must be positive"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("KP_MAX_UPLOAD_SIZE must be positive"))
	}
	if c.APIRateLimit < 0 || (c.APIRateLimit > 0 && c.APIRateBurst <= 0) {
		errs = append(errs, fmt.Errorf("KP_API_RATE_LIMIT and KP_API_RATE_BURST must be positive, got %v/%d", c.APIRateLimit, c.APIRateBurst))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("KP_CACHE_TTL must not be negative"))
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("required for the remote backend")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("only http and https URLs are allowed, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host, got %q", raw)
	}
	return nil
}

// Load parses environment variables and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
