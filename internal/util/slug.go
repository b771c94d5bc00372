// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides general-purpose helpers: public slug generation,
// button link checks and return-path sanitizing.
package util

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

const (
	// SlugBaseMaxLength caps the title-derived part of a slug.
	SlugBaseMaxLength = 40
	// SlugSuffixLength is the number of random characters appended to a slug.
	SlugSuffixLength = 6
	// SlugFallbackBase is used when a title normalizes to nothing.
	SlugFallbackBase = "launch"

	slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// nonSlugRun matches every run of characters outside [a-z0-9]
	nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)
	// slugPattern matches a complete generated slug. A base cut at
	// SlugBaseMaxLength may end in a hyphen, doubling the separator.
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*-?-[a-z0-9]{6}$`)
)

// SlugBase derives the deterministic prefix of a slug from a page title.
// Every run outside [a-z0-9] collapses to a single hyphen; no characters are
// transliterated, so "Café" becomes "caf". The base is cut to 40 bytes after
// edge hyphens are trimmed and may therefore end in a hyphen. Titles that
// leave nothing yield "launch".
func SlugBase(title string) string {
	base := strings.ToLower(title)
	base = nonSlugRun.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if len(base) > SlugBaseMaxLength {
		base = base[:SlugBaseMaxLength]
	}
	if base == "" {
		return SlugFallbackBase
	}
	return base
}

// GenerateSlug returns SlugBase(title) followed by "-" and a random suffix.
// The suffix does not guarantee uniqueness; callers retry on conflict.
func GenerateSlug(title string) (string, error) {
	suffix, err := RandomString(SlugSuffixLength)
	if err != nil {
		return "", err
	}
	return SlugBase(title) + "-" + suffix, nil
}

// RandomString returns n characters drawn uniformly from [a-z0-9].
func RandomString(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	limit := big.NewInt(int64(len(slugAlphabet)))
	for range n {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(slugAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}

// IsValidSlug checks if a string has the shape produced by GenerateSlug.
func IsValidSlug(s string) bool {
	if !slugPattern.MatchString(s) {
		return false
	}
	// "--" only appears where a truncated base meets the separator
	i := strings.Index(s, "--")
	return i < 0 || i == SlugBaseMaxLength-1
}
