// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the application
// including User, Page, Button, themes and event log constants.
package model

import "time"

// User represents a LaunchBio account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the account can sign in with a password.
// Accounts created through Google sign-in have no password hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
