// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"fmt"
	"net/url"
	"strings"
)

// MaxLinkURLLength is the maximum allowed length for a button URL.
const MaxLinkURLLength = 2048

// DefaultReturnTo is where auth forms send the user when no target is given.
const DefaultReturnTo = "/dashboard"

// ValidateLinkURL checks that a call-to-action URL is an absolute http(s)
// URL with a host. Script and data schemes are rejected.
func ValidateLinkURL(rawURL string) error {
	if len(rawURL) > MaxLinkURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxLinkURLLength)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme")
	}

	if parsedURL.Hostname() == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	return nil
}

// SafeReturnTo returns target when it is a same-site absolute path and
// DefaultReturnTo otherwise. Protocol-relative and backslash forms are refused.
func SafeReturnTo(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") {
		return DefaultReturnTo
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return DefaultReturnTo
	}
	return target
}
