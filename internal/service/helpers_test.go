// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/testutil"
)

type testEnv struct {
	db    *sql.DB
	pages *PageService
	views *cache.Views
	mem   *cache.MemoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.TestDB(t)
	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	views := cache.NewViews(mem, time.Minute, testutil.TestLoggerSilent())

	return &testEnv{
		db:    db,
		pages: NewPageService(db, views, testutil.TestLoggerSilent()),
		views: views,
		mem:   mem,
	}
}

func (e *testEnv) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	u, err := store.New(e.db).CreateUser(context.Background(), store.CreateUserParams{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return &model.User{ID: u.ID, Email: u.Email}
}

func validInput() PageInput {
	return PageInput{
		Title:     "Test Launch",
		EventDate: "2026-03-01",
		EventTime: "18:30",
		BgType:    model.ThemeDarkGradient,
		Buttons:   []model.Button{{Label: "Join", URL: "https://example.com/join"}},
	}
}

func boolPtr(b bool) *bool { return &b }
