// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/util"
)

// MaxSlugAttempts bounds slug regeneration when a generated slug collides.
const MaxSlugAttempts = 5

// DefaultDashboardPageSize is the number of pages listed per dashboard page.
const DefaultDashboardPageSize = 50

// CreateResult is returned by Create.
type CreateResult struct {
	Slug      string `json:"slug"`
	EditToken string `json:"editToken"`
}

// PageService creates, updates and serves launch pages.
type PageService struct {
	queries *store.Queries
	guard   *Guard
	views   *cache.Views
	logger  *slog.Logger

	newSlug  func(title string) (string, error)
	newToken func() string
	now      func() time.Time
}

// NewPageService creates a new PageService. views may be nil to disable caching.
func NewPageService(db *sql.DB, views *cache.Views, logger *slog.Logger) *PageService {
	return &PageService{
		queries:  store.New(db),
		guard:    NewGuard(db),
		views:    views,
		logger:   logger,
		newSlug:  util.GenerateSlug,
		newToken: uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Guard returns the authorization guard used for page mutations.
func (s *PageService) Guard() *Guard {
	return s.guard
}

// Create validates in and persists a new page owned by actor, if any.
// A new page is never Pro, so Pro-only options are rejected.
func (s *PageService) Create(ctx context.Context, actor *model.User, in PageInput) (*CreateResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Change().RequiresPro() {
		return nil, apperr.ErrProUpgradeRequired
	}

	eventAt, err := in.EventDateTime()
	if err != nil {
		return nil, err
	}
	buttons, err := encodeButtons(in.Buttons)
	if err != nil {
		return nil, err
	}

	var ownerID sql.NullString
	if actor != nil {
		ownerID = util.NullStringFromValue(actor.ID)
	}

	now := s.now()
	params := store.CreatePageParams{
		ID:            uuid.NewString(),
		Title:         in.Title,
		Description:   util.NullStringFromValue(in.Description),
		EventDateTime: eventAt,
		BgType:        in.BgType,
		Buttons:       buttons,
		OwnerEmail:    util.NullStringFromValue(in.OwnerEmail),
		OwnerID:       ownerID,
		ShowBranding:  true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for attempt := 1; attempt <= MaxSlugAttempts; attempt++ {
		slug, err := s.newSlug(in.Title)
		if err != nil {
			return nil, fmt.Errorf("generating slug: %w", err)
		}
		params.Slug = slug
		params.EditToken = s.newToken()

		page, err := s.queries.CreatePage(ctx, params)
		if err == nil {
			s.logger.Info("page created", "slug", page.Slug, "owned", ownerID.Valid, "category", model.EventCategoryPage)
			return &CreateResult{Slug: page.Slug, EditToken: page.EditToken}, nil
		}
		if store.IsUniqueViolation(err, "pages.slug") || store.IsUniqueViolation(err, "pages.edit_token") {
			s.logger.Info("slug collision, regenerating", "slug", slug, "attempt", attempt)
			continue
		}
		s.logger.Error("failed to create page", "error", err, "category", model.EventCategoryPage)
		return nil, apperr.Persistence("creating page", err)
	}

	s.logger.Error("giving up on slug generation", "title", in.Title, "attempts", MaxSlugAttempts, "category", model.EventCategoryPage)
	return nil, apperr.Persistence("creating page", apperr.ErrSlugConflict)
}

// Update applies in to the page behind editToken after authorization.
// Fields the form did not carry keep their stored value.
func (s *PageService) Update(ctx context.Context, actor *model.User, editToken string, in PageInput) (*model.Page, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	change := in.Change()
	current, err := s.guard.Authorize(ctx, actor, editToken, &change)
	if err != nil {
		return nil, err
	}

	eventAt, err := in.EventDateTime()
	if err != nil {
		return nil, err
	}
	buttons, err := encodeButtons(in.Buttons)
	if err != nil {
		return nil, err
	}

	showBranding := current.ShowBranding
	if in.ShowBranding != nil {
		showBranding = *in.ShowBranding
	}

	row, err := s.queries.UpdatePage(ctx, store.UpdatePageParams{
		Title:           in.Title,
		Description:     util.NullStringFromValue(in.Description),
		EventDateTime:   eventAt,
		BgType:          in.BgType,
		Buttons:         buttons,
		OwnerEmail:      util.NullStringFromValue(in.OwnerEmail),
		AfterLaunchText: util.NullStringFromValue(in.AfterLaunchText),
		AnalyticsID:     util.NullStringFromValue(in.AnalyticsID),
		ShowBranding:    showBranding,
		UpdatedAt:       s.now(),
		EditToken:       editToken,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
		}
		s.logger.Error("failed to update page", "error", err, "slug", current.Slug, "category", model.EventCategoryPage)
		return nil, apperr.Persistence("updating page", err)
	}

	s.invalidate(ctx, current.Slug, editToken)
	return toModelPage(row)
}

// PublicView returns the public view of slug, served from the render cache when possible.
func (s *PageService) PublicView(ctx context.Context, slug string) (model.PublicView, error) {
	if !util.IsValidSlug(slug) {
		return model.PublicView{}, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
	}
	if s.views != nil {
		if view, ok := s.views.GetPublic(ctx, slug); ok {
			return view, nil
		}
	}

	page, err := s.getBySlug(ctx, slug)
	if err != nil {
		return model.PublicView{}, err
	}

	view := page.Public()
	if s.views != nil {
		s.views.SetPublic(ctx, view)
	}
	return view, nil
}

// EditView returns the edit view behind editToken if actor may edit the page.
// Cached views are only trusted for ownerless pages; owned pages are
// re-authorized against the store on every call.
func (s *PageService) EditView(ctx context.Context, actor *model.User, editToken string) (model.EditView, error) {
	if s.views != nil {
		if view, ok := s.views.GetEdit(ctx, editToken); ok && !view.Owned {
			return view, nil
		}
	}

	page, err := s.guard.Authorize(ctx, actor, editToken, nil)
	if err != nil {
		return model.EditView{}, err
	}

	view := page.Edit()
	if s.views != nil {
		s.views.SetEdit(ctx, view)
	}
	return view, nil
}

// GetByEditToken loads a page without authorization checks.
func (s *PageService) GetByEditToken(ctx context.Context, editToken string) (*model.Page, error) {
	row, err := s.queries.GetPageByEditToken(ctx, editToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
		}
		return nil, apperr.Persistence("loading page", err)
	}
	return toModelPage(row)
}

// ListByOwner returns the user's pages, newest first, and the total count.
func (s *PageService) ListByOwner(ctx context.Context, user *model.User, limit, offset int64) ([]*model.Page, int64, error) {
	if user == nil {
		return nil, 0, apperr.ErrUnauthorized
	}
	if limit <= 0 {
		limit = DefaultDashboardPageSize
	}
	owner := util.NullStringFromValue(user.ID)

	total, err := s.queries.CountPagesByOwner(ctx, owner)
	if err != nil {
		return nil, 0, apperr.Persistence("counting pages", err)
	}

	rows, err := s.queries.ListPagesByOwner(ctx, store.ListPagesByOwnerParams{
		OwnerID: owner,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, 0, apperr.Persistence("listing pages", err)
	}

	pages := make([]*model.Page, 0, len(rows))
	for _, row := range rows {
		p, err := toModelPage(row)
		if err != nil {
			return nil, 0, err
		}
		pages = append(pages, p)
	}
	return pages, total, nil
}

// RecordView increments the view counter of slug by one.
func (s *PageService) RecordView(ctx context.Context, slug string) error {
	if !util.IsValidSlug(slug) {
		return apperr.WithMessage(apperr.ErrNotFound, "Page not found")
	}
	n, err := s.queries.IncrementPageViews(ctx, slug)
	if err != nil {
		s.logger.Error("failed to record view", "error", err, "slug", slug, "category", model.EventCategoryPage)
		return apperr.Persistence("recording view", err)
	}
	if n == 0 {
		return apperr.WithMessage(apperr.ErrNotFound, "Page not found")
	}
	return nil
}

// Revalidate drops cached views of the page behind editToken.
// An unknown token is silently ignored.
func (s *PageService) Revalidate(ctx context.Context, editToken string) error {
	row, err := s.queries.GetPageByEditToken(ctx, editToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return apperr.Persistence("loading page", err)
	}
	s.invalidate(ctx, row.Slug, editToken)
	return nil
}

// Upgrade moves the page behind editToken to Pro and hides branding.
// It reports false without error when the page was already Pro.
func (s *PageService) Upgrade(ctx context.Context, editToken string) (bool, error) {
	row, err := s.queries.GetPageByEditToken(ctx, editToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
		}
		return false, apperr.Persistence("loading page", err)
	}
	if row.IsPro {
		return false, nil
	}

	n, err := s.queries.MarkPagePro(ctx, store.MarkPageProParams{
		UpdatedAt: s.now(),
		EditToken: editToken,
	})
	if err != nil {
		return false, apperr.Persistence("upgrading page", err)
	}
	// A concurrent delivery may have won the conditional update
	if n == 0 {
		return false, nil
	}

	s.invalidate(ctx, row.Slug, editToken)
	return true, nil
}

func (s *PageService) getBySlug(ctx context.Context, slug string) (*model.Page, error) {
	row, err := s.queries.GetPageBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.WithMessage(apperr.ErrNotFound, "Page not found")
		}
		return nil, apperr.Persistence("loading page", err)
	}
	return toModelPage(row)
}

func (s *PageService) invalidate(ctx context.Context, slug, editToken string) {
	if s.views != nil {
		s.views.InvalidatePage(ctx, slug, editToken)
	}
}
