// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/launchbio/internal/apperr"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// Password rule messages, in the order they are checked.
const (
	RuleLength    = "Password must be at least 8 characters long"
	RuleUppercase = "Password must contain at least one uppercase letter"
	RuleLowercase = "Password must contain at least one lowercase letter"
	RuleNumber    = "Password must contain at least one number"
)

// ValidatePassword returns a *apperr.WeakPasswordError naming the first
// violated rule, or nil when the password is acceptable.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return &apperr.WeakPasswordError{Rule: RuleLength}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return &apperr.WeakPasswordError{Rule: RuleUppercase}
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return &apperr.WeakPasswordError{Rule: RuleLowercase}
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return &apperr.WeakPasswordError{Rule: RuleNumber}
	}
	return nil
}

// emailRule is the validator tag every email address in the app is checked with.
const emailRule = "email,max=254"

var emailValidator = validator.New()

// IsValidEmail reports whether email is a plausible address of at most 254 bytes.
func IsValidEmail(email string) bool {
	return email != "" && emailValidator.Var(email, emailRule) == nil
}

// NormalizeEmail trims surrounding space and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
