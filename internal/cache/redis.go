// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// clearBatch is the SCAN page size used by Clear.
const clearBatch = 200

// RedisCache shares rendered views between instances. Keys carry a prefix
// so Clear never touches data owned by other applications.
type RedisCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool

	hits, misses, sets, deletes atomic.Int64
}

// RedisCacheOptions configures the Redis cache.
type RedisCacheOptions struct {
	// URL is the connection URL, e.g. redis://localhost:6379/0.
	URL string
	// Prefix namespaces every key, e.g. "launchbio:".
	Prefix         string
	DefaultTTL     time.Duration
	PoolSize       int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// DefaultRedisCacheOptions returns the options used when only a URL is set.
func DefaultRedisCacheOptions() RedisCacheOptions {
	return RedisCacheOptions{
		Prefix:         "launchbio:",
		DefaultTTL:     time.Hour,
		PoolSize:       10,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    3 * time.Second,
		WriteTimeout:   3 * time.Second,
	}
}

func (o RedisCacheOptions) clientOptions() (*redis.Options, error) {
	if o.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	ro, err := redis.ParseURL(o.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	setIfPositive(&ro.PoolSize, o.PoolSize)
	setIfPositive(&ro.DialTimeout, o.ConnectTimeout)
	setIfPositive(&ro.ReadTimeout, o.ReadTimeout)
	setIfPositive(&ro.WriteTimeout, o.WriteTimeout)
	return ro, nil
}

func setIfPositive[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

// NewRedisCache connects to Redis and fails unless the server answers PING
// within the connect timeout.
func NewRedisCache(opts RedisCacheOptions) (*RedisCache, error) {
	ro, err := opts.clientOptions()
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(ro)

	timeout := ro.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisCache{client: client, prefix: opts.Prefix, defaultTTL: opts.DefaultTTL}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get returns the stored value or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		return nil, ErrCacheMiss
	case err != nil:
		return nil, err
	}
	c.hits.Add(1)
	return val, nil
}

// Set stores value with ttl, or the default TTL when ttl is zero.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return err
	}
	c.sets.Add(1)
	return nil
}

// Delete unlinks all keys in one round trip.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	n, err := c.client.Unlink(ctx, prefixed...).Result()
	if err != nil {
		return err
	}
	c.deletes.Add(n)
	return nil
}

// Clear unlinks every key under the prefix, one SCAN page at a time.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", clearBatch).Iterator()
	batch := make([]string, 0, clearBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == clearBatch {
			if err := c.client.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Unlink(ctx, batch...).Err()
	}
	return nil
}

// Ping reports whether the server is reachable. Used by the health check.
func (c *RedisCache) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.Close()
}

// Stats returns this process's counters. Key counts live on the server.
func (c *RedisCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
	}
}

var (
	_ Cache         = (*RedisCache)(nil)
	_ StatsProvider = (*RedisCache)(nil)
)
