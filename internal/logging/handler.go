// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that also persists WARN and ERROR
// records to the events table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
)

// redactedKeys never reach the events table: they carry credentials.
var redactedKeys = []string{"password", "token", "edittoken", "secret", "cookie"}

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler creates an EventLogHandler that persists WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates an EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   slices.Concat(h.attrs, attrs),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog uses a background context so the event survives a
// cancelled request.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	attrs := h.collectAttrs(r)

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     slogLevelToEventLevel(r.Level),
		Category:  extractCategory(r.Message, attrs),
		Message:   r.Message,
		Metadata:  extractMetadata(attrs),
		CreatedAt: r.Time.UTC(),
	})
}

func (h *EventLogHandler) collectAttrs(r slog.Record) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	return attrs
}

func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// extractCategory prefers an explicit "category" attribute and otherwise
// infers one from the message.
func extractCategory(msg string, attrs []slog.Attr) string {
	for _, a := range slices.Backward(attrs) {
		if a.Key == "category" {
			return a.Value.String()
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "checkout") || strings.Contains(msg, "webhook") || strings.Contains(msg, "stripe"):
		return model.EventCategoryBilling
	case strings.Contains(msg, "auth") || strings.Contains(msg, "login") || strings.Contains(msg, "sign"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "session"):
		return model.EventCategorySession
	case strings.Contains(msg, "page") || strings.Contains(msg, "slug"):
		return model.EventCategoryPage
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

// extractMetadata collects attributes into a JSON object, dropping the
// category and anything that looks like a credential.
func extractMetadata(attrs []slog.Attr) string {
	meta := make(map[string]string, len(attrs))
	for _, a := range attrs {
		if a.Key == "category" || isRedacted(a.Key) {
			continue
		}
		meta[a.Key] = a.Value.Resolve().String()
	}
	if len(meta) == 0 {
		return "{}"
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func isRedacted(key string) bool {
	key = strings.ToLower(key)
	for _, k := range redactedKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
