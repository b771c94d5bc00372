// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createEvent = `-- name: CreateEvent :one
INSERT INTO events (level, category, message, metadata, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id, level, category, message, metadata, created_at
`

type CreateEventParams struct {
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.Metadata,
		arg.CreatedAt,
	)
	var i Event
	err := row.Scan(
		&i.ID,
		&i.Level,
		&i.Category,
		&i.Message,
		&i.Metadata,
		&i.CreatedAt,
	)
	return i, err
}

const listEvents = `-- name: ListEvents :many
SELECT id, level, category, message, metadata, created_at
FROM events
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

type ListEventsParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Event
	for rows.Next() {
		var i Event
		if err := rows.Scan(
			&i.ID,
			&i.Level,
			&i.Category,
			&i.Message,
			&i.Metadata,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEventsBefore = `-- name: DeleteEventsBefore :execrows
DELETE FROM events WHERE created_at < ?
`

func (q *Queries) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEventsBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
