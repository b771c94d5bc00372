// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/launchbio/internal/model"
)

// Job names
const (
	JobSessionSweep   = "session-sweep"
	JobEventRetention = "event-retention"
)

// SessionSweeper deletes expired password sessions.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// EventPruner deletes audit events older than a cutoff.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionSweepJob removes expired sessions in bulk. Expiry is still enforced
// on every read, so this only reclaims storage.
func SessionSweepJob(sweeper SessionSweeper, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := sweeper.SweepExpired(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("expired sessions removed", "count", n, "category", model.EventCategorySession)
		}
		return nil
	}
}

// EventRetentionJob drops audit events older than retention.
func EventRetentionJob(pruner EventPruner, retention time.Duration, logger *slog.Logger) JobFunc {
	return func(ctx context.Context) error {
		n, err := pruner.DeleteOldEvents(ctx, retention)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("old events removed", "count", n, "retention", retention)
		}
		return nil
	}
}
