// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash sql.NullString `json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type LegacySession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Page struct {
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
	IsPro           bool           `json:"is_pro"`
	Views           int64          `json:"views"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type UserIdentity struct {
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"provider_user_id"`
	UserID         string    `json:"user_id"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
}

type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
