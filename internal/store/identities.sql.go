// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createUserIdentity = `-- name: CreateUserIdentity :exec
INSERT INTO user_identities (provider, provider_user_id, user_id, email, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (provider, provider_user_id) DO NOTHING
`

type CreateUserIdentityParams struct {
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

func (q *Queries) CreateUserIdentity(ctx context.Context, arg CreateUserIdentityParams) error {
	_, err := q.db.ExecContext(ctx, createUserIdentity,
		arg.Provider,
		arg.ProviderUserID,
		arg.UserID,
		arg.Email,
		arg.CreatedAt,
	)
	return err
}

const getUserByIdentity = `-- name: GetUserByIdentity :one
SELECT u.id, u.email, u.password_hash, u.created_at, u.updated_at
FROM user_identities i
JOIN users u ON u.id = i.user_id
WHERE i.provider = ? AND i.provider_user_id = ?
`

type GetUserByIdentityParams struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
}

func (q *Queries) GetUserByIdentity(ctx context.Context, arg GetUserByIdentityParams) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByIdentity, arg.Provider, arg.ProviderUserID)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.PasswordHash,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
