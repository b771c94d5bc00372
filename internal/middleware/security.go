// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// directive is a single policy entry, kept ordered for stable header output.
type directive struct {
	name  string
	value string
}

// SecurityHeadersConfig holds configuration for security headers.
type SecurityHeadersConfig struct {
	// IsDevelopment disables HSTS and relaxes the CSP.
	IsDevelopment bool

	// ContentSecurityPolicy is the CSP header value; empty disables it.
	ContentSecurityPolicy string

	// HSTSMaxAge in seconds. Zero disables HSTS.
	HSTSMaxAge            int
	HSTSIncludeSubDomains bool
	HSTSPreload           bool

	// FrameOptions is "DENY", "SAMEORIGIN" or empty.
	FrameOptions string

	ReferrerPolicy    string
	PermissionsPolicy string

	// ExcludePaths are path prefixes that receive no security headers.
	ExcludePaths []string
}

// DefaultSecurityHeadersConfig returns the policy for launch pages and the
// JSON API. Pages may load Google Analytics when their owner configured a
// measurement ID, and the upgrade flow redirects to Stripe Checkout.
func DefaultSecurityHeadersConfig(isDev bool) SecurityHeadersConfig {
	cfg := SecurityHeadersConfig{
		IsDevelopment:  isDev,
		HSTSMaxAge:     31536000,
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}

	scriptSrc := "'self' https://www.googletagmanager.com"
	if isDev {
		scriptSrc += " 'unsafe-inline' 'unsafe-eval'"
	}

	cfg.ContentSecurityPolicy = buildCSP([]directive{
		{"default-src", "'self'"},
		{"script-src", scriptSrc},
		{"style-src", "'self' 'unsafe-inline'"},
		{"img-src", "'self' data: https:"},
		{"font-src", "'self' data:"},
		{"connect-src", "'self' https://www.google-analytics.com https://*.google-analytics.com"},
		{"object-src", "'none'"},
		{"base-uri", "'self'"},
		{"form-action", "'self' https://checkout.stripe.com"},
		{"frame-ancestors", "'none'"},
	})
	if !isDev {
		cfg.HSTSIncludeSubDomains = true
	}

	cfg.PermissionsPolicy = buildPermissionsPolicy([]directive{
		{"accelerometer", "()"},
		{"camera", "()"},
		{"geolocation", "()"},
		{"gyroscope", "()"},
		{"microphone", "()"},
		{"payment", "()"},
		{"usb", "()"},
		{"browsing-topics", "()"},
	})

	return cfg
}

func buildCSP(directives []directive) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d.name+" "+d.value)
	}
	return strings.Join(parts, "; ")
}

func buildPermissionsPolicy(policies []directive) string {
	parts := make([]string, 0, len(policies))
	for _, p := range policies {
		parts = append(parts, p.name+"="+p.value)
	}
	return strings.Join(parts, ", ")
}

// SecurityHeaders returns a middleware that adds security headers to responses.
func SecurityHeaders(cfg SecurityHeadersConfig) func(http.Handler) http.Handler {
	var hsts string
	if !cfg.IsDevelopment && cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
		if cfg.HSTSPreload {
			hsts += "; preload"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			h := w.Header()
			if cfg.ContentSecurityPolicy != "" {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if hsts != "" {
				h.Set("Strict-Transport-Security", hsts)
			}
			if cfg.FrameOptions != "" {
				h.Set("X-Frame-Options", cfg.FrameOptions)
			}
			h.Set("X-Content-Type-Options", "nosniff")
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			if cfg.PermissionsPolicy != "" {
				h.Set("Permissions-Policy", cfg.PermissionsPolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
