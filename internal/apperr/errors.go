// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package apperr defines the domain error taxonomy shared by services and
// HTTP handlers, and maps it onto status codes and caller-facing messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrDuplicateUser is returned when registering an email that already exists.
	ErrDuplicateUser = errors.New("User already exists")
	// ErrInvalidCredentials is returned for any failed credential check.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrUnauthorized is returned when no session exists or it belongs to someone else.
	ErrUnauthorized = errors.New("Unauthorized")
	// ErrNotFound is returned when a page or session does not exist.
	ErrNotFound = errors.New("Not found")
	// ErrProUpgradeRequired is returned when a free page selects a Pro-only option.
	ErrProUpgradeRequired = errors.New("This option requires the Launch Pack upgrade")
	// ErrNotConfigured is returned when a required provider credential is missing.
	ErrNotConfigured = errors.New("Not configured")
	// ErrPersistence marks transient store failures.
	ErrPersistence = errors.New("Something went wrong. Please try again")
	// ErrSignatureInvalid is returned when a webhook signature does not verify.
	ErrSignatureInvalid = errors.New("Invalid signature")
	// ErrSlugConflict is returned when a generated slug is already taken.
	ErrSlugConflict = errors.New("slug already taken")
)

// Error attaches a caller-facing message to one of the sentinel kinds.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// WithMessage returns an error that matches kind under errors.Is but reads as msg.
func WithMessage(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Persistence wraps a store failure so it matches ErrPersistence and keeps the cause.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// ValidationError carries field-level messages for malformed input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "Invalid input"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// WeakPasswordError names the first password rule that was violated.
type WeakPasswordError struct {
	Rule string
}

func (e *WeakPasswordError) Error() string { return e.Rule }

// StatusCode maps an error onto the HTTP status the route layer should send.
func StatusCode(err error) int {
	var validationErr *ValidationError
	var weakErr *WeakPasswordError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr), errors.As(err, &weakErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateUser):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProUpgradeRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrSignatureInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text that is safe to show to the caller.
// Unclassified errors never leak their internal text.
func PublicMessage(err error) string {
	var appErr *Error
	var validationErr *ValidationError
	var weakErr *WeakPasswordError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &appErr):
		return appErr.Message
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &weakErr):
		return weakErr.Rule
	case errors.Is(err, ErrPersistence):
		return ErrPersistence.Error()
	}

	for _, kind := range []error{
		ErrDuplicateUser, ErrInvalidCredentials, ErrUnauthorized, ErrNotFound,
		ErrProUpgradeRequired, ErrNotConfigured, ErrSignatureInvalid,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrPersistence.Error()
}
