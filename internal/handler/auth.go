// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/auth"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/service"
	"github.com/olegiv/launchbio/internal/session"
	"github.com/olegiv/launchbio/internal/util"
)

// Auth route paths.
const (
	RouteLogin          = "/auth/login"
	RouteRegister       = "/auth/register"
	RouteLogout         = "/auth/logout"
	RouteGoogle         = "/auth/google"
	RouteGoogleCallback = "/auth/google/callback"
)

// AuthHandler handles registration, sign-in and sign-out.
type AuthHandler struct {
	auth            *auth.Service
	events          *service.EventService
	loginProtection *middleware.LoginProtection
	providerSession *scs.SessionManager
	google          *auth.GoogleProvider
	logger          *slog.Logger
}

// NewAuthHandler creates an AuthHandler. google and providerSessions may be
// nil when Google sign-in is not configured; events and lp may be nil too.
func NewAuthHandler(authSvc *auth.Service, events *service.EventService, lp *middleware.LoginProtection,
	providerSessions *scs.SessionManager, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:            authSvc,
		events:          events,
		loginProtection: lp,
		providerSession: providerSessions,
		google:          google,
		logger:          logger,
	}
}

// GoogleEnabled reports whether Google sign-in routes should be mounted.
func (h *AuthHandler) GoogleEnabled() bool {
	return h.google != nil && h.providerSession != nil
}

// loginOptions describes how a visitor can sign in.
type loginOptions struct {
	ReturnTo  string   `json:"returnTo"`
	Providers []string `json:"providers"`
	SignedIn  bool     `json:"signedIn"`
}

// LoginOptions handles GET /auth/login, the target of sign-in redirects.
func (h *AuthHandler) LoginOptions(w http.ResponseWriter, r *http.Request) {
	opts := loginOptions{
		ReturnTo:  util.SafeReturnTo(r.URL.Query().Get("returnTo")),
		Providers: []string{"password"},
		SignedIn:  middleware.GetUser(r) != nil,
	}
	if h.GoogleEnabled() {
		opts.Providers = append(opts.Providers, auth.ProviderGoogle)
	}
	writeJSON(w, http.StatusOK, opts)
}

// Register handles POST /auth/register. A new account is signed in at once.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	email := r.FormValue("email")
	password := r.FormValue("password")

	user, err := h.auth.Register(r.Context(), email, password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if _, err := h.auth.SignIn(r.Context(), w, email, password); err != nil {
		writeAppError(w, r, err)
		return
	}

	h.logAuthEvent(r, model.EventLevelInfo, "User registered", map[string]any{"user_id": user.ID})
	http.Redirect(w, r, util.SafeReturnTo(r.FormValue("returnTo")), http.StatusSeeOther)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	email := auth.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")

	if h.loginProtection != nil && email != "" {
		if wait := h.loginProtection.LockedFor(email); wait > 0 {
			h.logAuthEvent(r, model.EventLevelWarning, "Login attempt on locked account", map[string]any{"email": email})
			middleware.SetRetryAfter(w, wait)
			writeJSONError(w, http.StatusTooManyRequests, "Account temporarily locked. Try again in "+formatDuration(wait))
			return
		}
	}

	user, err := h.auth.SignIn(r.Context(), w, email, password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) && h.loginFailed(w, r, email) {
			return
		}
		writeAppError(w, r, err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccess(email)
	}
	h.logAuthEvent(r, model.EventLevelInfo, "User logged in", map[string]any{"user_id": user.ID})
	http.Redirect(w, r, util.SafeReturnTo(r.FormValue("returnTo")), http.StatusSeeOther)
}

// loginFailed records a wrong password and reports whether it locked the
// account, in which case the 429 response has been written.
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, email string) bool {
	metadata := map[string]any{"email": email}
	if h.loginProtection == nil {
		h.logAuthEvent(r, model.EventLevelWarning, "Login failed", metadata)
		return false
	}

	attempt := h.loginProtection.RecordFailure(email)
	metadata["remaining_attempts"] = attempt.Remaining
	h.logAuthEvent(r, model.EventLevelWarning, "Login failed", metadata)
	if !attempt.Locked() {
		return false
	}
	middleware.SetRetryAfter(w, attempt.LockedFor)
	writeJSONError(w, http.StatusTooManyRequests, "Too many failed attempts. Try again in "+formatDuration(attempt.LockedFor))
	return true
}

// Logout handles POST /auth/logout. Both session systems are ended and the
// session cookie is always cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		h.logAuthEvent(r, model.EventLevelInfo, "User logged out", map[string]any{"user_id": user.ID})
	}
	if err := h.auth.SignOut(w, r); err != nil {
		h.logger.Warn("sign-out incomplete", "error", err, "category", model.EventCategorySession)
	}

	target := "/"
	if rt := r.FormValue("returnTo"); rt != "" {
		target = util.SafeReturnTo(rt)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GoogleStart handles GET /auth/google.
func (h *AuthHandler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewOAuthState()
	if err != nil {
		logAndInternalError(w, "failed to create oauth state", "error", err)
		return
	}

	ctx := r.Context()
	h.providerSession.Put(ctx, session.OAuthStateKey, state)
	h.providerSession.Put(ctx, session.OAuthReturnToKey, util.SafeReturnTo(r.URL.Query().Get("returnTo")))

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	expected := h.providerSession.PopString(ctx, session.OAuthStateKey)
	returnTo := util.SafeReturnTo(h.providerSession.PopString(ctx, session.OAuthReturnToKey))

	if reason := q.Get("error"); reason != "" {
		h.logger.Info("google sign-in cancelled", "reason", reason, "category", model.EventCategoryAuth)
		writeJSONError(w, http.StatusUnauthorized, "Google sign-in was cancelled")
		return
	}
	if expected == "" || q.Get("state") != expected {
		h.logger.Warn("google sign-in state mismatch", "category", model.EventCategoryAuth)
		writeJSONError(w, http.StatusBadRequest, auth.ErrInvalidState.Error())
		return
	}

	profile, err := h.google.ResolveProfile(ctx, q.Get("code"))
	if err != nil {
		h.logger.Warn("google sign-in failed", "error", err, "category", model.EventCategoryAuth)
		writeJSONError(w, http.StatusUnauthorized, "Google sign-in failed")
		return
	}

	user, err := h.auth.SignInExternal(ctx, auth.ProviderGoogle, profile)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if err := h.providerSession.RenewToken(ctx); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.providerSession.Put(ctx, session.ProviderUserIDKey, user.ID)

	h.logAuthEvent(r, model.EventLevelInfo, "User logged in with Google", map[string]any{"user_id": user.ID})
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

func (h *AuthHandler) logAuthEvent(r *http.Request, level, message string, metadata map[string]any) {
	if h.events == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["ip"] = middleware.ClientIP(r)
	_ = h.events.LogAuthEvent(r.Context(), level, message, metadata)
}

// formatDuration renders a lockout duration for people.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
