// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createLegacySession = `-- name: CreateLegacySession :exec
INSERT INTO legacy_sessions (token, user_id, expires_at, created_at)
VALUES (?, ?, ?, ?)
`

type CreateLegacySessionParams struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateLegacySession(ctx context.Context, arg CreateLegacySessionParams) error {
	_, err := q.db.ExecContext(ctx, createLegacySession,
		arg.Token,
		arg.UserID,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	return err
}

const getLegacySessionWithUser = `-- name: GetLegacySessionWithUser :one
SELECT s.token, s.user_id, s.expires_at, s.created_at,
       u.id, u.email, u.password_hash, u.created_at, u.updated_at
FROM legacy_sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token = ?
`

type GetLegacySessionWithUserRow struct {
	Session LegacySession `json:"session"`
	User    User          `json:"user"`
}

func (q *Queries) GetLegacySessionWithUser(ctx context.Context, token string) (GetLegacySessionWithUserRow, error) {
	row := q.db.QueryRowContext(ctx, getLegacySessionWithUser, token)
	var i GetLegacySessionWithUserRow
	err := row.Scan(
		&i.Session.Token,
		&i.Session.UserID,
		&i.Session.ExpiresAt,
		&i.Session.CreatedAt,
		&i.User.ID,
		&i.User.Email,
		&i.User.PasswordHash,
		&i.User.CreatedAt,
		&i.User.UpdatedAt,
	)
	return i, err
}

const deleteLegacySession = `-- name: DeleteLegacySession :exec
DELETE FROM legacy_sessions WHERE token = ?
`

func (q *Queries) DeleteLegacySession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteLegacySession, token)
	return err
}

const deleteExpiredLegacySessions = `-- name: DeleteExpiredLegacySessions :execrows
DELETE FROM legacy_sessions WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredLegacySessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredLegacySessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countLegacySessionsByUser = `-- name: CountLegacySessionsByUser :one
SELECT COUNT(*) FROM legacy_sessions WHERE user_id = ?
`

func (q *Queries) CountLegacySessionsByUser(ctx context.Context, userID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countLegacySessionsByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
