// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/session"
	"github.com/olegiv/launchbio/internal/store"
)

// CurrentUserResolver looks up the user behind a request.
// A nil user with a nil error means the request is signed out.
type CurrentUserResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*model.User, error)
}

// UserLookup loads a user by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (store.User, error)
}

// ChainResolver tries each resolver in order and returns the first user found.
type ChainResolver []CurrentUserResolver

// Resolve implements CurrentUserResolver.
func (c ChainResolver) Resolve(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	var errs []error
	for _, res := range c {
		u, err := res.Resolve(w, r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if u != nil {
			return u, nil
		}
	}
	return nil, errors.Join(errs...)
}

// ProviderResolver reads the user id placed in the scs session by Google sign-in.
type ProviderResolver struct {
	Sessions *scs.SessionManager
	Users    UserLookup
}

// Resolve implements CurrentUserResolver.
func (p ProviderResolver) Resolve(_ http.ResponseWriter, r *http.Request) (*model.User, error) {
	id := session.ProviderUserID(r.Context(), p.Sessions)
	if id == "" {
		return nil, nil
	}

	u, err := p.Users.GetUserByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		p.Sessions.Remove(r.Context(), session.ProviderUserIDKey)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading provider user: %w", err)
	}
	return toModelUser(u), nil
}

// LegacyResolver reads the lb_session cookie.
type LegacyResolver struct {
	Sessions *session.Manager
}

// Resolve implements CurrentUserResolver.
func (l LegacyResolver) Resolve(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	token := session.TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	return l.Sessions.Resolve(r.Context(), w, token)
}

// DestroyProviderSession returns a sign-out hook that ends the scs session.
func DestroyProviderSession(sm *scs.SessionManager) func(http.ResponseWriter, *http.Request) error {
	return func(_ http.ResponseWriter, r *http.Request) error {
		if session.ProviderUserID(r.Context(), sm) == "" {
			return nil
		}
		return sm.Destroy(r.Context())
	}
}
