// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/launchbio/internal/apperr"
)

// logAndInternalError logs an error and writes a generic 500 JSON response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	writeJSONError(w, http.StatusInternalServerError, apperr.ErrPersistence.Error())
}

// writeAppError maps a service error onto its status and caller-facing
// message. Validation failures also carry their field messages. Server-side
// failures are logged; their internal text never reaches the caller.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.StatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}

	body := map[string]any{"error": apperr.PublicMessage(err)}
	var validationErr *apperr.ValidationError
	if errors.As(err, &validationErr) {
		body["fields"] = validationErr.Fields
	}
	writeJSON(w, status, body)
}
