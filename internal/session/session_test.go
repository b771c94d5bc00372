// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	// Create sessions table required by sqlite3store
	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewProviderSessions_DevMode(t *testing.T) {
	sm := NewProviderSessions(setupTestDB(t), true)

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name != "lb_auth" {
		t.Errorf("expected lb_auth cookie name in dev mode, got %q", sm.Cookie.Name)
	}
}

func TestNewProviderSessions_ProductionMode(t *testing.T) {
	sm := NewProviderSessions(setupTestDB(t), false)

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-lb_auth" {
		t.Errorf("expected __Host-lb_auth cookie name, got %q", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("expected Cookie.Path = '/', got %q", sm.Cookie.Path)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite Lax, got %v", sm.Cookie.SameSite)
	}
	if sm.Lifetime != DefaultLifetime {
		t.Errorf("expected Lifetime %v, got %v", DefaultLifetime, sm.Lifetime)
	}
}

func TestProviderUserID(t *testing.T) {
	sm := NewProviderSessions(setupTestDB(t), true)

	if got := ProviderUserID(t.Context(), nil); got != "" {
		t.Errorf("nil manager should yield empty id, got %q", got)
	}

	var got string
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), ProviderUserIDKey, "user-42")
		got = ProviderUserID(r.Context(), sm)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got != "user-42" {
		t.Errorf("ProviderUserID = %q, want user-42", got)
	}
}
