// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/testutil"
	"github.com/olegiv/launchbio/internal/version"
)

var testVersion = version.New("v1.2.3", "abc1234", "")

func newTestHealthHandler(t *testing.T) *HealthHandler {
	t.Helper()
	db := testutil.TestDB(t)
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = mc.Close() })
	return NewHealthHandler(db, mc, "memory", testVersion)
}

func TestHealth(t *testing.T) {
	h := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["version"] != "v1.2.3" {
		t.Errorf("version = %v, want v1.2.3", body["version"])
	}
	checks, ok := body["checks"].(map[string]any)
	if !ok {
		t.Fatalf("checks missing: %v", body)
	}
	for _, name := range []string{"database", "cache"} {
		c, ok := checks[name].(map[string]any)
		if !ok || c["status"] != "healthy" {
			t.Errorf("check %s = %v, want healthy", name, checks[name])
		}
	}
	if _, ok := body["system"]; ok {
		t.Error("system info should only appear with verbose=true")
	}
}

func TestHealthVerbose(t *testing.T) {
	h := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	body := decodeBody(t, w)
	sys, ok := body["system"].(map[string]any)
	if !ok {
		t.Fatalf("system missing: %v", body)
	}
	if sys["go_version"] == "" {
		t.Error("go_version should be set")
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	h := newTestHealthHandler(t)
	_ = h.db.Close()

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if body := decodeBody(t, w); body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestLivenessAndReadiness(t *testing.T) {
	h := newTestHealthHandler(t)

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if body := decodeBody(t, w); body["status"] != "alive" {
		t.Errorf("liveness = %v, want alive", body["status"])
	}

	w = httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("readiness status = %d, want %d", w.Code, http.StatusOK)
	}
	if body := decodeBody(t, w); body["status"] != "ready" {
		t.Errorf("readiness = %v, want ready", body["status"])
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
