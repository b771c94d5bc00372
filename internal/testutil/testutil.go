// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for the LaunchBio project.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/olegiv/launchbio/internal/store"
)

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary test database with all migrations applied.
// The database is closed when the test finishes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "launchbio-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CookieByName returns the named cookie from a response, or nil.
func CookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
