// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements both session systems: the lb_session cookie
// table used by password sign-in and the scs-managed session used by
// Google sign-in.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Keys stored in the provider session.
const (
	ProviderUserIDKey = "user_id"
	OAuthStateKey     = "oauth_state"
	OAuthReturnToKey  = "oauth_return_to"
)

// NewProviderSessions creates the scs session manager used after Google
// sign-in, backed by the sessions table.
func NewProviderSessions(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Store = sqlite3store.New(db)

	sm.Lifetime = DefaultLifetime
	sm.IdleTimeout = 7 * 24 * time.Hour
	sm.Cookie.Name = "lb_auth"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev

	// __Host- prefix pins the cookie to this host over HTTPS
	if !isDev {
		sm.Cookie.Name = "__Host-lb_auth"
	}

	return sm
}

// ProviderUserID returns the user id stored by Google sign-in, or "".
func ProviderUserID(ctx context.Context, sm *scs.SessionManager) string {
	if sm == nil {
		return ""
	}
	return sm.GetString(ctx, ProviderUserIDKey)
}
