// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/olegiv/launchbio/internal/apperr"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantRule string
	}{
		{"Secret123", ""},
		{"Ab1", RuleLength},
		{"", RuleLength},
		{"lowercase123", RuleUppercase},
		{"UPPERCASE123", RuleLowercase},
		{"NoDigitsHere", RuleNumber},
		// Several rules broken at once: the first in order wins.
		{"short", RuleLength},
		{"alllowercase", RuleUppercase},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantRule == "" {
				if err != nil {
					t.Fatalf("ValidatePassword(%q) = %v, want nil", tt.password, err)
				}
				return
			}

			var weak *apperr.WeakPasswordError
			if !errors.As(err, &weak) {
				t.Fatalf("ValidatePassword(%q) = %v, want WeakPasswordError", tt.password, err)
			}
			if weak.Rule != tt.wantRule {
				t.Errorf("rule = %q, want %q", weak.Rule, tt.wantRule)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  User@Example.COM "); got != "user@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"owner@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"", false},
		{"not-an-email", false},
		{"Owner <owner@example.com>", false},
		{"owner@", false},
		{strings.Repeat("a", 250) + "@example.com", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
