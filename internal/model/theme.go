// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Free themes
const (
	ThemeDarkGradient = "dark-gradient"
	ThemePurpleGlow   = "purple-glow"
	ThemeLightClean   = "light-clean"
	ThemeSunset       = "sunset"
)

// Pro themes, unlocked by the Launch Pack
const (
	ThemeAurora       = "aurora"
	ThemeMidnightNeon = "midnight-neon"
	ThemeOceanDepth   = "ocean-depth"
	ThemeForestMist   = "forest-mist"
)

var (
	freeThemes = []string{ThemeDarkGradient, ThemePurpleGlow, ThemeLightClean, ThemeSunset}
	proThemes  = []string{ThemeAurora, ThemeMidnightNeon, ThemeOceanDepth, ThemeForestMist}
)

// IsKnownTheme reports whether name is any free or Pro theme.
func IsKnownTheme(name string) bool {
	return IsFreeTheme(name) || IsProTheme(name)
}

// IsFreeTheme reports whether name is available without the upgrade.
func IsFreeTheme(name string) bool {
	return slices.Contains(freeThemes, name)
}

// IsProTheme reports whether name requires the upgrade.
func IsProTheme(name string) bool {
	return slices.Contains(proThemes, name)
}

// AvailableThemes lists the themes a page may select.
func AvailableThemes(isPro bool) []string {
	if isPro {
		return slices.Concat(freeThemes, proThemes)
	}
	return slices.Clone(freeThemes)
}

// ThemeOption is a selectable theme as listed on the edit form.
type ThemeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Pro   bool   `json:"pro"`
}

// ThemeOptions lists the themes a page may select with display labels.
func ThemeOptions(isPro bool) []ThemeOption {
	names := AvailableThemes(isPro)
	opts := make([]ThemeOption, len(names))
	for i, name := range names {
		opts[i] = ThemeOption{Value: name, Label: ThemeLabel(name), Pro: IsProTheme(name)}
	}
	return opts
}

// ThemeLabel turns a theme name into sentence case: "midnight-neon"
// becomes "Midnight neon".
func ThemeLabel(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' })
	if len(words) == 0 {
		return ""
	}
	// A Caser carries state, so each call gets its own
	words[0] = cases.Title(language.English).String(words[0])
	return strings.Join(words, " ")
}
