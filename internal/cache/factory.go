// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config holds configuration for cache creation.
type Config struct {
	// RedisURL selects the Redis backend when set.
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	// MaxSize bounds the memory backend (0 = unlimited).
	MaxSize int
}

// New creates a Redis cache when RedisURL is set and reachable, and a
// memory cache otherwise. The returned string names the backend in use.
func New(cfg Config, logger *slog.Logger) (Cache, string) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}

		rc, err := NewRedisCache(opts)
		if err == nil {
			return rc, "redis"
		}
		logger.Warn("redis unavailable, falling back to memory cache", "error", err, "category", "cache")
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	}), "memory"
}
