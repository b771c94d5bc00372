// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxLimiterEntries bounds the per-key limiter maps before they are reset.
const maxLimiterEntries = 10000

// limiterCache holds one token bucket per key.
type limiterCache[K comparable] struct {
	mu       sync.Mutex
	limiters map[K]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newLimiterCache[K comparable](rps float64, burst int) *limiterCache[K] {
	return &limiterCache[K]{
		limiters: make(map[K]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// get returns the limiter for key, creating it on first use. The map is
// reset once it outgrows maxLimiterEntries.
func (lc *limiterCache[K]) get(key K) *rate.Limiter {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if l, ok := lc.limiters[key]; ok {
		return l
	}
	if len(lc.limiters) >= maxLimiterEntries {
		clear(lc.limiters)
	}
	l := rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[key] = l
	return l
}

// take spends one token for key. A zero result means the request may
// proceed; otherwise it is how long the client should wait.
func (lc *limiterCache[K]) take(key K) time.Duration {
	res := lc.get(key).Reserve()
	if !res.OK() {
		return time.Minute
	}
	wait := res.Delay()
	if wait > 0 {
		res.Cancel()
	}
	return wait
}

func (lc *limiterCache[K]) len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.limiters)
}

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	cache *limiterCache[string]
}

// NewRateLimiter creates a per-IP limiter allowing rps requests per second
// with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{cache: newLimiterCache[string](rps, burst)}
}

// Middleware rejects throttled requests with a JSON error body, for the
// JSON endpoints.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return rl.limit(func(w http.ResponseWriter) {
		writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
	})
}

// FormMiddleware rejects throttled requests with a plain text body, for
// browser form routes.
func (rl *RateLimiter) FormMiddleware() func(http.Handler) http.Handler {
	return rl.limit(func(w http.ResponseWriter) {
		http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
	})
}

func (rl *RateLimiter) limit(reject func(http.ResponseWriter)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if wait := rl.cache.take(ip); wait > 0 {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "retry_after", wait)
				SetRetryAfter(w, wait)
				reject(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetRetryAfter sets the Retry-After header in whole seconds, rounding up.
func SetRetryAfter(w http.ResponseWriter, wait time.Duration) {
	secs := max(int(math.Ceil(wait.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

// ClientIP extracts the client IP, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
