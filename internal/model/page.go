// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Button is a call-to-action link shown on a launch page.
type Button struct {
	Label string `json:"label" validate:"required,max=60"`
	URL   string `json:"url" validate:"required,max=2048,linkurl"`
}

// Page is a launch page with its owner and upgrade state.
type Page struct {
	ID              string    `json:"id"`
	Slug            string    `json:"slug"`
	EditToken       string    `json:"-"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	EventDateTime   time.Time `json:"eventDateTime"`
	BgType          string    `json:"bgType"`
	Buttons         []Button  `json:"buttons"`
	OwnerEmail      string    `json:"-"`
	OwnerID         string    `json:"-"`
	AfterLaunchText string    `json:"afterLaunchText,omitempty"`
	AnalyticsID     string    `json:"analyticsId,omitempty"`
	ShowBranding    bool      `json:"showBranding"`
	IsPro           bool      `json:"isPro"`
	Views           int64     `json:"views"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// HasOwner reports whether the page is bound to a user account.
func (p *Page) HasOwner() bool {
	return p.OwnerID != ""
}

// IsOwnedBy reports whether userID owns the page.
func (p *Page) IsOwnedBy(userID string) bool {
	return p.OwnerID != "" && p.OwnerID == userID
}

// PublicView is the JSON shape served for /u/{slug}. It never includes
// the edit token or owner details.
type PublicView struct {
	Slug            string    `json:"slug"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	EventDateTime   time.Time `json:"eventDateTime"`
	BgType          string    `json:"bgType"`
	Buttons         []Button  `json:"buttons"`
	AfterLaunchText string    `json:"afterLaunchText,omitempty"`
	AnalyticsID     string    `json:"analyticsId,omitempty"`
	ShowBranding    bool      `json:"showBranding"`
	Views           int64     `json:"views"`
}

// EditView is the JSON shape served to whoever holds the edit token.
type EditView struct {
	PublicView
	EditToken  string   `json:"editToken"`
	OwnerEmail string   `json:"ownerEmail,omitempty"`
	IsPro      bool     `json:"isPro"`
	Owned      bool     `json:"owned"`
	Themes     []string `json:"themes"`
	// ThemeOptions carries the same themes with display labels.
	ThemeOptions []ThemeOption `json:"themeOptions"`
}

// Public builds the public view of the page.
func (p *Page) Public() PublicView {
	return PublicView{
		Slug:            p.Slug,
		Title:           p.Title,
		Description:     p.Description,
		EventDateTime:   p.EventDateTime,
		BgType:          p.BgType,
		Buttons:         p.Buttons,
		AfterLaunchText: p.AfterLaunchText,
		AnalyticsID:     p.AnalyticsID,
		ShowBranding:    p.ShowBranding,
		Views:           p.Views,
	}
}

// Edit builds the edit view, listing the themes the page may select.
func (p *Page) Edit() EditView {
	return EditView{
		PublicView: p.Public(),
		EditToken:  p.EditToken,
		OwnerEmail: p.OwnerEmail,
		IsPro:      p.IsPro,
		Owned:      p.HasOwner(),
		Themes:     AvailableThemes(p.IsPro),

		ThemeOptions: ThemeOptions(p.IsPro),
	}
}
