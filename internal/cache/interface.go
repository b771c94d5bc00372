// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides the byte-oriented cache backends (memory, Redis)
// and the render cache for public and edit page views.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache implementations.
// All implementations must be thread-safe.
type Cache interface {
	// Get returns the value, or ErrCacheMiss if absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero TTL uses the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Absent keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Clear removes all entries from the cache.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Stats holds per-process counters. Items and Evictions are only
// reported by backends that track them locally.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions,omitempty"`
	Items     int   `json:"items,omitempty"`
}

// StatsProvider is an optional interface for caches that provide statistics.
type StatsProvider interface {
	Stats() Stats
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
