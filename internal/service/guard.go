// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
)

// MsgNotPageOwner is shown to anonymous callers and other users alike.
const MsgNotPageOwner = "You do not have permission to edit this page"

// Change is the Pro-relevant part of a page mutation.
type Change struct {
	Theme           string
	AfterLaunchText string
	AnalyticsID     string
	ShowBranding    *bool
}

// RequiresPro reports whether the change selects a Pro theme or a Pro-only field.
func (c Change) RequiresPro() bool {
	switch {
	case model.IsProTheme(c.Theme):
		return true
	case c.AfterLaunchText != "", c.AnalyticsID != "":
		return true
	case c.ShowBranding != nil && !*c.ShowBranding:
		return true
	}
	return false
}

// Guard authorizes page mutations identified by edit token.
type Guard struct {
	queries *store.Queries
}

// NewGuard creates a Guard over the given database handle.
func NewGuard(db store.DBTX) *Guard {
	return &Guard{queries: store.New(db)}
}

// Authorize loads the page behind editToken and checks that actor may apply
// change to it. A nil change only checks access. Owned pages require their
// owner; ownerless pages accept the token alone. The Pro check runs after
// the ownership check so non-owners never learn the page's tier.
func (g *Guard) Authorize(ctx context.Context, actor *model.User, editToken string, change *Change) (*model.Page, error) {
	if editToken == "" {
		return nil, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
	}

	row, err := g.queries.GetPageByEditToken(ctx, editToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
		}
		return nil, apperr.Persistence("loading page", err)
	}

	page, err := toModelPage(row)
	if err != nil {
		return nil, err
	}

	if page.HasOwner() && (actor == nil || !page.IsOwnedBy(actor.ID)) {
		return nil, apperr.WithMessage(apperr.ErrUnauthorized, MsgNotPageOwner)
	}

	if change != nil && !page.IsPro && change.RequiresPro() {
		return nil, apperr.ErrProUpgradeRequired
	}

	return page, nil
}
