// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const pageColumns = `id, slug, edit_token, title, description, event_date_time, bg_type, buttons,
owner_email, owner_id, after_launch_text, analytics_id, show_branding, is_pro, views,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPage(row rowScanner) (Page, error) {
	var i Page
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.EditToken,
		&i.Title,
		&i.Description,
		&i.EventDateTime,
		&i.BgType,
		&i.Buttons,
		&i.OwnerEmail,
		&i.OwnerID,
		&i.AfterLaunchText,
		&i.AnalyticsID,
		&i.ShowBranding,
		&i.IsPro,
		&i.Views,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPage = `-- name: CreatePage :one
INSERT INTO pages (
    id, slug, edit_token, title, description, event_date_time, bg_type, buttons,
    owner_email, owner_id, after_launch_text, analytics_id, show_branding, is_pro, views,
    created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)
RETURNING ` + pageColumns

type CreatePageParams struct {
	ID              string         `json:"id"`
	Slug            string         `json:"slug"`
	EditToken       string         `json:"edit_token"`
	Title           string         `json:"title"`
	Description     sql.NullString `json:"description"`
	EventDateTime   time.Time      `json:"event_date_time"`
	BgType          string         `json:"bg_type"`
	Buttons         string         `json:"buttons"`
	OwnerEmail      sql.NullString `json:"owner_email"`
	OwnerID         sql.NullString `json:"owner_id"`
	AfterLaunchText sql.NullString `json:"after_launch_text"`
	AnalyticsID     sql.NullString `json:"analytics_id"`
	ShowBranding    bool           `json:"show_branding"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (q *Queries) CreatePage(ctx context.Context, arg CreatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, createPage,
		arg.ID,
		arg.Slug,
		arg.EditToken,
		arg.Title,
		arg.Description,
		arg.EventDateTime,
		arg.BgType,
		arg.Buttons,
		arg.OwnerEmail,
		arg.OwnerID,
		arg.AfterLaunchText,
		arg.AnalyticsID,
		arg.ShowBranding,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPage(row)
}

const getPageBySlug = `-- name: GetPageBySlug :one
SELECT ` + pageColumns + ` FROM pages WHERE slug = ?`

func (q *Queries) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	return scanPage(q.db.QueryRowContext(ctx, getPageBySlug, slug))
}

const getPageByEditToken = `-- name: GetPageByEditToken :one
SELECT ` + pageColumns + ` FROM pages WHERE edit_token = ?`

func (q *Queries) GetPageByEditToken(ctx context.Context, editToken string) (Page, error) {
	return scanPage(q.db.QueryRowContext(ctx, getPageByEditToken, editToken))
}

const updatePage = `-- name: UpdatePage :one
UPDATE pages SET
    title = ?,
    description = ?,
    event_date_time = ?,
    bg_type = ?,
    buttons = ?,
    owner_email = ?,
    after_launch_text = ?,
    analytics_id = ?,
    show_branding = ?,
    updated_at = ?
WHERE edit_token = ?
RETURNING ` + pageColumns

type UpdatePageParams struct {
	Title           string         `json:"title"`
	Description     sql.NullString `json:"description"`
	EventDateTime   time.Time      `json:"event_date_time"`
	BgType          string         `json:"bg_type"`
	Buttons         string         `json:"buttons"`
	OwnerEmail      sql.NullString `json:"owner_email"`
	AfterLaunchText sql.NullString `json:"after_launch_text"`
	AnalyticsID     sql.NullString `json:"analytics_id"`
	ShowBranding    bool           `json:"show_branding"`
	UpdatedAt       time.Time      `json:"updated_at"`
	EditToken       string         `json:"edit_token"`
}

func (q *Queries) UpdatePage(ctx context.Context, arg UpdatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, updatePage,
		arg.Title,
		arg.Description,
		arg.EventDateTime,
		arg.BgType,
		arg.Buttons,
		arg.OwnerEmail,
		arg.AfterLaunchText,
		arg.AnalyticsID,
		arg.ShowBranding,
		arg.UpdatedAt,
		arg.EditToken,
	)
	return scanPage(row)
}

const incrementPageViews = `-- name: IncrementPageViews :execrows
UPDATE pages SET views = views + 1 WHERE slug = ?
`

func (q *Queries) IncrementPageViews(ctx context.Context, slug string) (int64, error) {
	result, err := q.db.ExecContext(ctx, incrementPageViews, slug)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// The is_pro guard makes the transition a no-op for pages that are already Pro,
// so concurrent or repeated deliveries resolve to a single state change.
const markPagePro = `-- name: MarkPagePro :execrows
UPDATE pages SET is_pro = 1, show_branding = 0, updated_at = ?
WHERE edit_token = ? AND is_pro = 0
`

type MarkPageProParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	EditToken string    `json:"edit_token"`
}

func (q *Queries) MarkPagePro(ctx context.Context, arg MarkPageProParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, markPagePro, arg.UpdatedAt, arg.EditToken)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listPagesByOwner = `-- name: ListPagesByOwner :many
SELECT ` + pageColumns + ` FROM pages
WHERE owner_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?`

type ListPagesByOwnerParams struct {
	OwnerID sql.NullString `json:"owner_id"`
	Limit   int64          `json:"limit"`
	Offset  int64          `json:"offset"`
}

func (q *Queries) ListPagesByOwner(ctx context.Context, arg ListPagesByOwnerParams) ([]Page, error) {
	rows, err := q.db.QueryContext(ctx, listPagesByOwner, arg.OwnerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var items []Page
	for rows.Next() {
		i, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countPagesByOwner = `-- name: CountPagesByOwner :one
SELECT COUNT(*) FROM pages WHERE owner_id = ?
`

func (q *Queries) CountPagesByOwner(ctx context.Context, ownerID sql.NullString) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPagesByOwner, ownerID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
