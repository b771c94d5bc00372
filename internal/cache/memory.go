// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps rendered views in process. When MaxSize is reached the
// entry closest to expiry makes room for the new one.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	defaultTTL time.Duration
	maxSize    int // 0 = unlimited
	now        func() time.Time
	stop       chan struct{}
	closed     bool

	stats Stats
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt)
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int
	CleanupInterval time.Duration // 0 = expired entries are dropped lazily
}

// NewMemoryCache creates a memory cache and starts the sweeper when
// CleanupInterval is set.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	c := &MemoryCache{
		entries:    make(map[string]memoryEntry),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		go c.sweep(opts.CleanupInterval)
	}
	return c
}

// Get returns a copy of the cached value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrCacheClosed
	}

	e, ok := c.entries[key]
	if ok && e.expired(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return nil, ErrCacheMiss
	}
	c.stats.Hits++
	return append([]byte(nil), e.value...), nil
}

// Set stores a copy of value.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}

	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.makeRoom(now)
	}
	c.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	c.stats.Sets++
	return nil
}

// Delete removes keys from the cache.
func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			delete(c.entries, k)
			c.stats.Deletes++
		}
	}
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	clear(c.entries)
	return nil
}

// Close stops the sweeper. Further calls return ErrCacheClosed.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.stop)
	}
	return nil
}

// Stats returns current cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Items = len(c.entries)
	return s
}

// makeRoom drops expired entries, then the one closest to expiry if the
// cache is still full. Callers hold mu.
func (c *MemoryCache) makeRoom(now time.Time) {
	c.dropExpired(now)
	if len(c.entries) < c.maxSize {
		return
	}

	var victim string
	var soonest time.Time
	for k, e := range c.entries {
		if soonest.IsZero() || e.expiresAt.Before(soonest) {
			victim, soonest = k, e.expiresAt
		}
	}
	delete(c.entries, victim)
	c.stats.Evictions++
}

func (c *MemoryCache) dropExpired(now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.dropExpired(c.now())
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

var (
	_ Cache         = (*MemoryCache)(nil)
	_ StatsProvider = (*MemoryCache)(nil)
)
