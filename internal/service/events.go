// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the launch page, billing and audit operations
// on top of the store.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
)

// EventService records audit events that are worth keeping below WARN level,
// such as sign-ups and Pro upgrades.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, logger *slog.Logger) *EventService {
	return &EventService{
		queries: store.New(db),
		logger:  logger,
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		Metadata:  metadataJSON,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to log event", "error", err, "message", message)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, metadata)
}

// LogPageEvent logs a page-related event.
func (s *EventService) LogPageEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryPage, message, metadata)
}

// LogBillingEvent logs a payment-related event.
func (s *EventService) LogBillingEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryBilling, message, metadata)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.queries.DeleteEventsBefore(ctx, cutoff)
}
