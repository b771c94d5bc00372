// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"net/http"
	"time"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/util"
)

const (
	// CookieName is the legacy password-login session cookie.
	CookieName = "lb_session"
	// DefaultLifetime is how long an issued session stays valid.
	DefaultLifetime = 30 * 24 * time.Hour
	// DefaultCleanupProbability is the chance a resolve also sweeps expired rows.
	DefaultCleanupProbability = 0.01

	tokenBytes = 32
)

// Store is the persistence the Manager needs.
type Store interface {
	CreateLegacySession(ctx context.Context, arg store.CreateLegacySessionParams) error
	GetLegacySessionWithUser(ctx context.Context, token string) (store.GetLegacySessionWithUserRow, error)
	DeleteLegacySession(ctx context.Context, token string) error
	DeleteExpiredLegacySessions(ctx context.Context, now time.Time) (int64, error)
}

// Options configures a Manager.
type Options struct {
	Lifetime           time.Duration
	Secure             bool
	CleanupProbability float64
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
	// Roll overrides the random source used for opportunistic cleanup.
	Roll func() float64
}

// Manager issues, resolves and revokes password-login sessions backed by
// the legacy_sessions table and the lb_session cookie.
type Manager struct {
	store  Store
	logger *slog.Logger
	opts   Options
}

// NewManager creates a session manager. A zero Lifetime or clock falls back to
// the default; a zero CleanupProbability disables opportunistic cleanup.
func NewManager(st Store, logger *slog.Logger, opts Options) *Manager {
	if opts.Lifetime <= 0 {
		opts.Lifetime = DefaultLifetime
	}
	if opts.CleanupProbability < 0 {
		opts.CleanupProbability = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Roll == nil {
		opts.Roll = mathrand.Float64
	}
	return &Manager{store: st, logger: logger, opts: opts}
}

// Issue creates a session for userID and sets the session cookie.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, userID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := m.opts.Now().UTC()
	if err := m.store.CreateLegacySession(ctx, store.CreateLegacySessionParams{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(m.opts.Lifetime),
		CreatedAt: now,
	}); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	http.SetCookie(w, m.cookie(token, int(m.opts.Lifetime.Seconds())))
	return token, nil
}

// Resolve returns the user owning token. Missing and expired sessions
// yield (nil, nil) and a clearing cookie; expired rows are deleted.
func (m *Manager) Resolve(ctx context.Context, w http.ResponseWriter, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	m.maybeSweep(ctx)

	row, err := m.store.GetLegacySessionWithUser(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		m.clearCookie(w)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if !row.Session.ExpiresAt.After(m.opts.Now()) {
		if err := m.store.DeleteLegacySession(ctx, token); err != nil {
			m.logger.Warn("failed to delete expired session", "error", err, "category", model.EventCategorySession)
		}
		m.clearCookie(w)
		return nil, nil
	}

	return &model.User{
		ID:           row.User.ID,
		Email:        row.User.Email,
		PasswordHash: util.StringFromNull(row.User.PasswordHash),
		CreatedAt:    row.User.CreatedAt,
		UpdatedAt:    row.User.UpdatedAt,
	}, nil
}

// Revoke deletes the session when token is set and always clears the cookie.
func (m *Manager) Revoke(ctx context.Context, w http.ResponseWriter, token string) error {
	m.clearCookie(w)
	if token == "" {
		return nil
	}
	if err := m.store.DeleteLegacySession(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// SweepExpired deletes every expired session row.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredLegacySessions(ctx, m.opts.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return n, nil
}

// TokenFromRequest returns the session cookie value, or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (m *Manager) maybeSweep(ctx context.Context) {
	if m.opts.CleanupProbability <= 0 || m.opts.Roll() >= m.opts.CleanupProbability {
		return
	}
	n, err := m.SweepExpired(ctx)
	if err != nil {
		m.logger.Warn("opportunistic session cleanup failed", "error", err, "category", model.EventCategorySession)
		return
	}
	if n > 0 {
		m.logger.Debug("expired sessions removed", "count", n)
	}
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		c.Expires = time.Unix(0, 0)
	}
	return c
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
