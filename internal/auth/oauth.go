// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/model"
	"github.com/olegiv/launchbio/internal/store"
)

// ProviderGoogle identifies Google in user_identities.
const ProviderGoogle = "google"

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuth errors
var (
	ErrInvalidState = errors.New("invalid OAuth state")
	ErrInvalidCode  = errors.New("invalid OAuth code")
	ErrNoEmail      = errors.New("no email from provider")
)

// GoogleConfig configures Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint and UserInfoURL default to Google's; tests point them elsewhere.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	HTTPClient  *http.Client
}

// ExternalProfile is the identity returned by a sign-in provider.
type ExternalProfile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
}

// GoogleProvider runs the OAuth authorization code flow against Google.
type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleProvider creates a Google sign-in provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  httpClient,
	}
}

// AuthURL builds the Google consent URL carrying state.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// ResolveProfile exchanges code for a token and fetches the user's profile.
func (g *GoogleProvider) ResolveProfile(ctx context.Context, code string) (ExternalProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return ExternalProfile{}, err
	}

	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return ExternalProfile{}, fmt.Errorf("fetching google user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return ExternalProfile{}, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var u struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return ExternalProfile{}, fmt.Errorf("decoding google user: %w", err)
	}
	if u.Email == "" {
		return ExternalProfile{}, ErrNoEmail
	}

	return ExternalProfile{
		ProviderUserID: u.ID,
		Email:          NormalizeEmail(u.Email),
		EmailVerified:  u.VerifiedEmail,
	}, nil
}

// NewOAuthState returns a random state value for the authorization request.
func NewOAuthState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SignInExternal maps a provider identity onto a local user. A linked
// identity wins; otherwise a verified email links to (or creates) the
// account with that email. Created accounts have no password.
func (s *Service) SignInExternal(ctx context.Context, provider string, p ExternalProfile) (*model.User, error) {
	u, err := s.users.GetUserByIdentity(ctx, store.GetUserByIdentityParams{
		Provider:       provider,
		ProviderUserID: p.ProviderUserID,
	})
	if err == nil {
		return toModelUser(u), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Persistence("looking up identity", err)
	}

	if !p.EmailVerified {
		return nil, apperr.WithMessage(apperr.ErrUnauthorized, "Your Google email address is not verified")
	}

	email := NormalizeEmail(p.Email)
	u, err = s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now().UTC()
		u, err = s.users.CreateUser(ctx, store.CreateUserParams{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if store.IsUniqueViolation(err, "users.email") {
			u, err = s.users.GetUserByEmail(ctx, email)
		}
		if err != nil {
			return nil, apperr.Persistence("creating external user", err)
		}
		s.logger.Info("user registered", "user_id", u.ID, "provider", provider)
	case err != nil:
		return nil, apperr.Persistence("looking up user", err)
	}

	if err := s.users.CreateUserIdentity(ctx, store.CreateUserIdentityParams{
		Provider:       provider,
		ProviderUserID: p.ProviderUserID,
		UserID:         u.ID,
		Email:          email,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, apperr.Persistence("linking identity", err)
	}

	return toModelUser(u), nil
}
