// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/olegiv/launchbio/internal/model"
)

const (
	publicKeyPrefix = "u:"
	editKeyPrefix   = "edit:"
)

// Views caches rendered public and edit views of launch pages.
// Backend failures degrade to cache misses and are logged.
type Views struct {
	backend Cache
	ttl     time.Duration
	logger  *slog.Logger
}

// NewViews wraps a cache backend.
func NewViews(backend Cache, ttl time.Duration, logger *slog.Logger) *Views {
	return &Views{backend: backend, ttl: ttl, logger: logger}
}

// PublicKey is the cache key of the public view at /u/{slug}.
func PublicKey(slug string) string { return publicKeyPrefix + slug }

// EditKey is the cache key of the edit view at /edit/{editToken}.
func EditKey(editToken string) string { return editKeyPrefix + editToken }

// GetPublic returns the cached public view of slug.
func (v *Views) GetPublic(ctx context.Context, slug string) (model.PublicView, bool) {
	var view model.PublicView
	return view, v.get(ctx, PublicKey(slug), &view)
}

// SetPublic caches the public view.
func (v *Views) SetPublic(ctx context.Context, view model.PublicView) {
	v.set(ctx, PublicKey(view.Slug), view)
}

// GetEdit returns the cached edit view for editToken.
func (v *Views) GetEdit(ctx context.Context, editToken string) (model.EditView, bool) {
	var view model.EditView
	return view, v.get(ctx, EditKey(editToken), &view)
}

// SetEdit caches the edit view.
func (v *Views) SetEdit(ctx context.Context, view model.EditView) {
	v.set(ctx, EditKey(view.EditToken), view)
}

// InvalidatePage drops both cached views of a page.
func (v *Views) InvalidatePage(ctx context.Context, slug, editToken string) {
	// The edit token is a credential and stays out of logs
	if err := v.backend.Delete(ctx, PublicKey(slug), EditKey(editToken)); err != nil {
		v.logger.Warn("cache invalidation failed", "slug", slug, "error", err, "category", model.EventCategoryCache)
	}
}

// Clear drops every cached view.
func (v *Views) Clear(ctx context.Context) error {
	return v.backend.Clear(ctx)
}

func (v *Views) get(ctx context.Context, key string, dst any) bool {
	data, err := v.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			v.logger.Warn("cache read failed", "error", err, "category", model.EventCategoryCache)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = v.backend.Delete(ctx, key)
		return false
	}
	return true
}

func (v *Views) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := v.backend.Set(ctx, key, data, v.ttl); err != nil {
		v.logger.Warn("cache write failed", "error", err, "category", model.EventCategoryCache)
	}
}
