// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import "database/sql"

// NullStringFromValue creates a sql.NullString from a string value.
// Returns a valid NullString if the string is non-empty, otherwise returns an invalid one.
func NullStringFromValue(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// StringFromNull returns the string value or "" when NULL.
func StringFromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
