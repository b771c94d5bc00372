// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"filippo.io/csrf/gorilla"
)

// CSRFConfig holds configuration for CSRF protection. The protection relies
// on Fetch metadata and Origin headers, so no token cookie is involved.
type CSRFConfig struct {
	// AuthKey is a 32-byte key; the session secret is used.
	AuthKey []byte

	// ErrorHandler is called when validation fails. Defaults to a JSON 403.
	ErrorHandler http.Handler

	// TrustedOrigins lists hosts (host[:port], not URLs) allowed to submit
	// cross-origin requests.
	TrustedOrigins []string
}

// DefaultCSRFConfig trusts the public base URL's host and, in development,
// the local dev hosts.
func DefaultCSRFConfig(authKey []byte, baseURL string, isDev bool) CSRFConfig {
	cfg := CSRFConfig{AuthKey: authKey}

	if host := originHost(baseURL); host != "" {
		cfg.TrustedOrigins = append(cfg.TrustedOrigins, host)
	}
	if isDev {
		for _, h := range []string{"localhost:8080", "127.0.0.1:8080"} {
			if !containsString(cfg.TrustedOrigins, h) {
				cfg.TrustedOrigins = append(cfg.TrustedOrigins, h)
			}
		}
	}

	return cfg
}

// CSRF returns middleware rejecting cross-site state-changing requests.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	var opts []csrf.Option

	if cfg.ErrorHandler != nil {
		opts = append(opts, csrf.ErrorHandler(cfg.ErrorHandler))
	} else {
		opts = append(opts, csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)))
	}

	if len(cfg.TrustedOrigins) > 0 {
		opts = append(opts, csrf.TrustedOrigins(cfg.TrustedOrigins))
	}

	return csrf.Protect(cfg.AuthKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	reason := "unknown"
	if err := csrf.FailureReason(r); err != nil {
		reason = err.Error()
	}
	slog.Warn("CSRF validation failed",
		"reason", reason,
		"method", r.Method,
		"path", r.URL.Path,
		"origin", r.Header.Get("Origin"),
		"sec_fetch_site", r.Header.Get("Sec-Fetch-Site"),
	)
	writeJSONError(w, http.StatusForbidden, "Forbidden")
}

// SkipCSRF exempts matching requests from CSRF checks. A path ending in "/"
// matches as a prefix; other paths match exactly. The JSON endpoints and the
// payment webhook are exempt: they are called by scripts and by Stripe.
func SkipCSRF(paths ...string) func(http.Handler) http.Handler {
	exact := make(map[string]bool)
	var prefixes []string
	for _, p := range paths {
		if strings.HasSuffix(p, "/") {
			prefixes = append(prefixes, p)
			continue
		}
		exact[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath(r.URL.Path, exact, prefixes) {
				r = csrf.UnsafeSkipCheck(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func skipPath(path string, exact map[string]bool, prefixes []string) bool {
	if exact[path] {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func originHost(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
