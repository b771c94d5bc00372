// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for request identity,
// route protection and hardening.
package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/olegiv/launchbio/internal/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyUser holds the *model.User resolved for the request.
const ContextKeyUser ContextKey = "user"

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/auth/login"

// UserResolver resolves the signed-in user of a request. It never fails:
// a missing or expired session yields nil.
type UserResolver interface {
	CurrentUser(w http.ResponseWriter, r *http.Request) *model.User
}

// LoadUser resolves the current user once per request and stores it in the
// context. Requests without a valid session continue anonymously.
func LoadUser(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := resolver.CurrentUser(w, r)
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, _ := r.Context().Value(ContextKeyUser).(*model.User)
	return user
}

// GetUserID returns the current user's ID, or "" for anonymous requests.
func GetUserID(r *http.Request) string {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return ""
}

// RequireUser redirects anonymous requests to the login page, carrying the
// requested path as returnTo. It must run after LoadUser.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSessionCookie redirects to the login page when none of the named
// session cookies is present. It only checks presence; handlers still
// validate the session itself.
func RequireSessionCookie(cookieNames ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range cookieNames {
				if c, err := r.Cookie(name); err == nil && c.Value != "" {
					next.ServeHTTP(w, r)
					return
				}
			}
			redirectToLogin(w, r)
		})
	}
}

// LoginURL builds the login URL that returns to returnTo afterwards.
func LoginURL(returnTo string) string {
	return LoginPath + "?returnTo=" + url.QueryEscape(returnTo)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, LoginURL(r.URL.Path), http.StatusSeeOther)
}
