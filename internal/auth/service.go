// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/session"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/util"
)

// MsgExternalAccount is shown when a password sign-in targets a Google-only account.
const MsgExternalAccount = "This account uses Google sign-in"

// UserStore is the user persistence the auth service relies on.
type UserStore interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	UpdateUserPassword(ctx context.Context, arg store.UpdateUserPasswordParams) error
	GetUserByIdentity(ctx context.Context, arg store.GetUserByIdentityParams) (store.User, error)
	CreateUserIdentity(ctx context.Context, arg store.CreateUserIdentityParams) error
}

// Service registers and authenticates users and exposes the current user
// of a request regardless of which session system signed them in.
type Service struct {
	users    UserStore
	hasher   *PasswordHasher
	sessions *session.Manager
	resolver CurrentUserResolver
	signOuts []func(w http.ResponseWriter, r *http.Request) error
	logger   *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates an auth service. The resolver decides how the current
// user is looked up; signOuts run after the legacy session is revoked.
func NewService(users UserStore, hasher *PasswordHasher, sessions *session.Manager,
	resolver CurrentUserResolver, logger *slog.Logger, signOuts ...func(http.ResponseWriter, *http.Request) error) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		resolver: resolver,
		signOuts: signOuts,
		logger:   logger,
	}
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	if err := validateCredentialsInput(email, password); err != nil {
		return nil, err
	}
	if !IsValidEmail(email) {
		return nil, apperr.NewValidationError("email", "Enter a valid email address")
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperr.ErrDuplicateUser
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Persistence("looking up user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	u, err := s.users.CreateUser(ctx, store.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: util.NullStringFromValue(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueViolation(err, "users.email") {
			return nil, apperr.ErrDuplicateUser
		}
		return nil, apperr.Persistence("creating user", err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	return toModelUser(u), nil
}

// Authenticate checks email and password. Unknown email and wrong password
// produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	if err := validateCredentialsInput(email, password); err != nil {
		return nil, err
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		// Spend the same hashing time as a real check
		_, _ = s.hasher.Verify(password, s.fallbackHash())
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Persistence("looking up user", err)
	}

	user := toModelUser(u)
	if !user.HasPassword() {
		return nil, apperr.WithMessage(apperr.ErrInvalidCredentials, MsgExternalAccount)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "error", err, "user_id", u.ID, "category", model.EventCategoryAuth)
		return nil, apperr.ErrInvalidCredentials
	}
	if !ok {
		return nil, apperr.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	return user, nil
}

// SignIn authenticates and issues a session cookie.
func (s *Service) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*model.User, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Issue(ctx, w, u.ID); err != nil {
		return nil, apperr.Persistence("issuing session", err)
	}
	s.logger.Info("user signed in", "user_id", u.ID)
	return u, nil
}

// SignOut revokes the legacy session if present and ends any provider session.
// The session cookie is always cleared.
func (s *Service) SignOut(w http.ResponseWriter, r *http.Request) error {
	var errs []error
	if err := s.sessions.Revoke(r.Context(), w, session.TokenFromRequest(r)); err != nil {
		errs = append(errs, err)
	}
	for _, fn := range s.signOuts {
		if err := fn(w, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CurrentUser returns the signed-in user or nil. It never fails; lookup
// errors are logged and treated as signed out.
func (s *Service) CurrentUser(w http.ResponseWriter, r *http.Request) *model.User {
	u, err := s.resolver.Resolve(w, r)
	if err != nil {
		s.logger.Warn("resolving current user failed", "error", err, "category", model.EventCategorySession)
		return nil
	}
	return u
}

// RequireUser returns the signed-in user or apperr.ErrUnauthorized.
func (s *Service) RequireUser(w http.ResponseWriter, r *http.Request) (*model.User, error) {
	u := s.CurrentUser(w, r)
	if u == nil {
		return nil, apperr.ErrUnauthorized
	}
	return u, nil
}

func (s *Service) rehash(ctx context.Context, userID, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "error", err, "user_id", userID)
		return
	}
	if err := s.users.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: util.NullStringFromValue(hash),
		UpdatedAt:    time.Now().UTC(),
		ID:           userID,
	}); err != nil {
		s.logger.Warn("password rehash not saved", "error", err, "user_id", userID)
	}
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}

func validateCredentialsInput(email, password string) error {
	if email == "" || password == "" {
		return apperr.WithMessage(apperr.NewValidationError("email", "required"), "Email and password are required")
	}
	return nil
}

func toModelUser(u store.User) *model.User {
	return &model.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: util.StringFromNull(u.PasswordHash),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
