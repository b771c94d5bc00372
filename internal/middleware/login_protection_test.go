// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestLoginProtection returns a LoginProtection with a generous IP limit
// and a controllable clock.
func newTestLoginProtection(t *testing.T, maxAttempts int, lockout, window time.Duration) (*LoginProtection, *fakeClock) {
	t.Helper()
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       10,
		IPBurst:           100,
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   lockout,
		AttemptWindow:     window,
	})
	t.Cleanup(lp.Close)

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	lp.now = clock.now
	return lp, clock
}

func TestLoginProtectionConfigDefaults(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{})
	defer lp.Close()

	def := DefaultLoginProtectionConfig()
	if lp.maxFailures != def.MaxFailedAttempts || lp.maxFailures != 5 {
		t.Errorf("maxFailures = %d, want 5", lp.maxFailures)
	}
	if lp.lockout != 15*time.Minute {
		t.Errorf("lockout = %v, want 15m", lp.lockout)
	}
	if lp.window != 15*time.Minute {
		t.Errorf("window = %v, want 15m", lp.window)
	}

	// Close is idempotent.
	lp.Close()
}

func TestLoginProtectionLockout(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 3, time.Minute, 10*time.Minute)
	email := "owner@example.com"

	if d := lp.LockedFor(email); d != 0 {
		t.Fatalf("LockedFor() = %v before any failure", d)
	}

	for i, want := range []int{2, 1} {
		got := lp.RecordFailure(email)
		if got.Locked() || got.Remaining != want {
			t.Fatalf("failure %d = %+v, want %d remaining", i+1, got, want)
		}
	}

	got := lp.RecordFailure(email)
	if !got.Locked() || got.LockedFor != time.Minute || got.Remaining != 0 {
		t.Fatalf("third failure = %+v, want a 1m lock", got)
	}
	if d := lp.LockedFor(email); d != time.Minute {
		t.Errorf("LockedFor() = %v, want 1m", d)
	}

	clock.advance(30 * time.Second)
	if d := lp.LockedFor(email); d != 30*time.Second {
		t.Errorf("LockedFor() = %v, want 30s", d)
	}

	clock.advance(31 * time.Second)
	if d := lp.LockedFor(email); d != 0 {
		t.Errorf("LockedFor() = %v after the lock expired", d)
	}
}

func TestLoginProtectionExponentialBackoff(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 2, time.Minute, time.Hour)
	email := "owner@example.com"

	var locks []time.Duration
	for range 3 {
		lp.RecordFailure(email)
		d := lp.RecordFailure(email).LockedFor
		locks = append(locks, d)
		clock.advance(d + time.Second)
	}

	want := []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute}
	for i := range want {
		if locks[i] != want[i] {
			t.Errorf("lockout %d = %v, want %v", i+1, locks[i], want[i])
		}
	}
}

func TestLoginProtectionBackoffIsCapped(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 1, 10*time.Hour, 100*time.Hour)
	email := "owner@example.com"

	var last time.Duration
	for range 4 {
		last = lp.RecordFailure(email).LockedFor
		clock.advance(time.Second)
	}
	if last != maxLockout {
		t.Errorf("lockout = %v, want %v", last, maxLockout)
	}
}

func TestLoginProtectionWindowAndSuccessReset(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 5, time.Minute, 10*time.Minute)
	email := "owner@example.com"

	lp.RecordFailure(email)
	lp.RecordFailure(email)
	if got := lp.RecordFailure(email).Remaining; got != 2 {
		t.Errorf("Remaining = %d, want 2", got)
	}

	clock.advance(11 * time.Minute)
	if got := lp.RecordFailure(email).Remaining; got != 4 {
		t.Errorf("Remaining after window = %d, want 4", got)
	}

	lp.RecordSuccess(email)
	if got := lp.RecordFailure(email).Remaining; got != 4 {
		t.Errorf("Remaining after success = %d, want 4", got)
	}
}

func TestLoginProtectionDropStale(t *testing.T) {
	lp, clock := newTestLoginProtection(t, 2, time.Hour, 10*time.Minute)

	lp.RecordFailure("stale@example.com")
	lp.RecordFailure("locked@example.com")
	lp.RecordFailure("locked@example.com")
	clock.advance(11 * time.Minute)
	lp.RecordFailure("fresh@example.com")

	lp.dropStale()

	lp.mu.Lock()
	defer lp.mu.Unlock()
	if _, ok := lp.accounts["stale@example.com"]; ok {
		t.Error("stale entry should be removed")
	}
	if _, ok := lp.accounts["locked@example.com"]; !ok {
		t.Error("locked entry should be kept until the lock expires")
	}
	if _, ok := lp.accounts["fresh@example.com"]; !ok {
		t.Error("fresh entry should be kept")
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp := NewLoginProtection(LoginProtectionConfig{IPRateLimit: 0.001, IPBurst: 2})
	defer lp.Close()

	wrapped := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rr := httptest.NewRecorder()
		wrapped.ServeHTTP(rr, req)
		return rr
	}

	for i := range 2 {
		if rr := do(http.MethodPost); rr.Code != http.StatusOK {
			t.Errorf("POST %d = %d, want 200", i+1, rr.Code)
		}
	}
	rr := do(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("third POST = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After on throttled sign-in")
	}
	if rr := do(http.MethodGet); rr.Code != http.StatusOK {
		t.Errorf("GET = %d, want 200 (not limited)", rr.Code)
	}
}
