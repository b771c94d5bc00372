// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
)

// PublicCache marks responses as cacheable by browsers and shared caches.
// Used for public launch pages, which are identical for every visitor.
func PublicCache(maxAge int) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore forbids caching of per-user or secret-bearing responses such as
// edit views, the dashboard and auth forms.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}
