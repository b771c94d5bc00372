// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler provides the HTTP handlers and router for LaunchBio.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxJSONBody bounds JSON request bodies on the small RPC endpoints.
const maxJSONBody = 16 << 10

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"error": message})
}

// writeOK writes {"ok": ok} with the given status.
func writeOK(w http.ResponseWriter, statusCode int, ok bool) {
	writeJSON(w, statusCode, map[string]bool{"ok": ok})
}

// decodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}
