// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxLockout caps the exponential lockout backoff.
const maxLockout = 24 * time.Hour

// LoginProtection guards password sign-in twice over: sign-in POSTs are
// rate limited per client IP, and an account is locked after repeated
// failures. Each further lockout of the same account doubles in length.
type LoginProtection struct {
	ips *limiterCache[string]

	mu       sync.Mutex
	accounts map[string]*accountFailures

	maxFailures int
	lockout     time.Duration
	window      time.Duration

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type accountFailures struct {
	count       int
	since       time.Time
	lockedUntil time.Time
	lockouts    int
}

// stale reports whether the entry no longer affects sign-in decisions.
func (a *accountFailures) stale(now time.Time, window time.Duration) bool {
	return !now.Before(a.lockedUntil) && now.Sub(a.since) > window
}

// LoginAttempt is the outcome of recording a failed sign-in.
type LoginAttempt struct {
	// Remaining is the number of failures left before the account locks.
	Remaining int
	// LockedFor is non-zero when this failure locked the account.
	LockedFor time.Duration
}

// Locked reports whether the failure locked the account.
func (a LoginAttempt) Locked() bool { return a.LockedFor > 0 }

// LoginProtectionConfig holds configuration for login protection.
// Zero fields take the values from DefaultLoginProtectionConfig.
type LoginProtectionConfig struct {
	IPRateLimit       float64       // sign-in POSTs per second per IP
	IPBurst           int           // burst per IP
	MaxFailedAttempts int           // failures within AttemptWindow before a lock
	LockoutDuration   time.Duration // first lock; doubled on each repeat
	AttemptWindow     time.Duration
	CleanupInterval   time.Duration
}

// DefaultLoginProtectionConfig returns the defaults used in production.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
		CleanupInterval:   10 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	def := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = def.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = def.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = def.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = def.LockoutDuration
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = def.AttemptWindow
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = def.CleanupInterval
	}
	return c
}

// NewLoginProtection creates a LoginProtection and starts its cleanup loop.
// Call Close to stop the loop.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		ips:         newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		accounts:    make(map[string]*accountFailures),
		maxFailures: cfg.MaxFailedAttempts,
		lockout:     cfg.LockoutDuration,
		window:      cfg.AttemptWindow,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go lp.cleanupLoop(cfg.CleanupInterval)
	return lp
}

// Close stops the cleanup loop.
func (lp *LoginProtection) Close() {
	lp.once.Do(func() { close(lp.stop) })
}

// LockedFor returns how much longer email stays locked, or zero.
func (lp *LoginProtection) LockedFor(email string) time.Duration {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	a, ok := lp.accounts[email]
	if !ok {
		return 0
	}
	return max(a.lockedUntil.Sub(lp.now()), 0)
}

// RecordFailure counts a failed sign-in for email.
func (lp *LoginProtection) RecordFailure(email string) LoginAttempt {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	a, ok := lp.accounts[email]
	if !ok {
		a = &accountFailures{since: now}
		lp.accounts[email] = a
	} else if now.Sub(a.since) > lp.window {
		a.count, a.since = 0, now
	}

	a.count++
	if a.count < lp.maxFailures {
		return LoginAttempt{Remaining: lp.maxFailures - a.count}
	}

	d := lp.lockout << a.lockouts
	if d <= 0 || d > maxLockout {
		d = maxLockout
	}
	a.lockedUntil = now.Add(d)
	a.lockouts++
	a.count = 0

	slog.Warn("account locked after failed sign-in attempts",
		"email", email, "lockouts", a.lockouts, "duration", d)
	return LoginAttempt{Remaining: 0, LockedFor: d}
}

// RecordSuccess forgets earlier failures for email.
func (lp *LoginProtection) RecordSuccess(email string) {
	lp.mu.Lock()
	delete(lp.accounts, email)
	lp.mu.Unlock()
}

func (lp *LoginProtection) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lp.dropStale()
		case <-lp.stop:
			return
		}
	}
}

func (lp *LoginProtection) dropStale() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	now := lp.now()
	for email, a := range lp.accounts {
		if a.stale(now, lp.window) {
			delete(lp.accounts, email)
		}
	}
}

// Middleware rate limits POST requests per client IP. Apply it to the
// sign-in and registration routes.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			if wait := lp.ips.take(ip); wait > 0 {
				slog.Warn("sign-in rate limit exceeded", "ip", ip, "path", r.URL.Path)
				SetRetryAfter(w, wait)
				http.Error(w, "Too many sign-in attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
