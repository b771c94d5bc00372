// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads LaunchBio configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"LAUNCHBIO_DB_PATH" envDefault:"./data/launchbio.db"`
	SessionSecret string `env:"LAUNCHBIO_SESSION_SECRET,required"`
	ServerHost    string `env:"LAUNCHBIO_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"LAUNCHBIO_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"LAUNCHBIO_ENV" envDefault:"development"`
	LogLevel      string `env:"LAUNCHBIO_LOG_LEVEL" envDefault:"info"`
	BaseURL       string `env:"LAUNCHBIO_BASE_URL"` // Public origin used for checkout redirects; request origin when empty

	// Cache configuration
	RedisURL     string `env:"LAUNCHBIO_REDIS_URL"`                            // Optional Redis URL for the render cache
	CachePrefix  string `env:"LAUNCHBIO_CACHE_PREFIX" envDefault:"launchbio:"` // Redis key prefix
	CacheTTL     int    `env:"LAUNCHBIO_CACHE_TTL" envDefault:"300"`           // Render cache TTL in seconds
	CacheMaxSize int    `env:"LAUNCHBIO_CACHE_MAX_SIZE" envDefault:"10000"`    // Max memory cache entries

	// Stripe configuration
	StripeSecretKey     string `env:"LAUNCHBIO_STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"LAUNCHBIO_STRIPE_WEBHOOK_SECRET"`
	ProPriceCents       int64  `env:"LAUNCHBIO_PRO_PRICE_CENTS" envDefault:"900"`

	// Google sign-in
	GoogleClientID     string `env:"LAUNCHBIO_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"LAUNCHBIO_GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"LAUNCHBIO_GOOGLE_REDIRECT_URL"`

	// Session housekeeping
	SessionSweepSchedule      string  `env:"LAUNCHBIO_SESSION_SWEEP_SCHEDULE" envDefault:"@every 1h"`
	SessionCleanupProbability float64 `env:"LAUNCHBIO_SESSION_CLEANUP_PROBABILITY" envDefault:"0.01"`

	// Audit event retention
	EventRetentionDays     int    `env:"LAUNCHBIO_EVENT_RETENTION_DAYS" envDefault:"90"`
	EventRetentionSchedule string `env:"LAUNCHBIO_EVENT_RETENTION_SCHEDULE" envDefault:"@daily"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if the application is running in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// CacheTTLDuration returns the render cache TTL.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// EventRetention returns how long audit events are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// StripeEnabled returns true if Stripe checkout is configured.
func (c Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}

// StripeWebhookEnabled returns true if Stripe webhook verification is configured.
func (c Config) StripeWebhookEnabled() bool {
	return c.StripeWebhookSecret != ""
}

// GoogleEnabled returns true if Google sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("LAUNCHBIO_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("LAUNCHBIO_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if cfg.SessionCleanupProbability < 0 || cfg.SessionCleanupProbability > 1 {
		return nil, fmt.Errorf("LAUNCHBIO_SESSION_CLEANUP_PROBABILITY must be between 0 and 1, got %v",
			cfg.SessionCleanupProbability)
	}

	if cfg.EventRetentionDays <= 0 {
		return nil, fmt.Errorf("LAUNCHBIO_EVENT_RETENTION_DAYS must be positive, got %d", cfg.EventRetentionDays)
	}

	if cfg.ProPriceCents <= 0 {
		return nil, fmt.Errorf("LAUNCHBIO_PRO_PRICE_CENTS must be positive, got %d", cfg.ProPriceCents)
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("LAUNCHBIO_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.IsProduction() && cfg.StripeEnabled() && !cfg.StripeWebhookEnabled() {
		slog.Warn("Stripe checkout is enabled without LAUNCHBIO_STRIPE_WEBHOOK_SECRET; pages will only upgrade via the success page")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
