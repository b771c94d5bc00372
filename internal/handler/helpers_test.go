// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/launchbio/internal/apperr"
	"github.com/olegiv/launchbio/internal/auth"
	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/payment"
	"github.com/olegiv/launchbio/internal/service"
	"github.com/olegiv/launchbio/internal/session"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/testutil"
)

const (
	testPassword      = "Secret123"
	testWebhookSecret = "whsec_test_secret"
)

var fastArgon2 = auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

// fakeCheckout stands in for Stripe Checkout.
type fakeCheckout struct {
	created  []payment.CheckoutRequest
	sessions map[string]*payment.Session
	err      error
}

func (f *fakeCheckout) CreateSession(_ context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, req)
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1", EditToken: req.EditToken}, nil
}

func (f *fakeCheckout) GetSession(_ context.Context, id string) (*payment.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return s, nil
}

type testEnv struct {
	db       *sql.DB
	queries  *store.Queries
	sessions *scs.SessionManager
	auth     *auth.Service
	pages    *service.PageService
	billing  *service.BillingService
	checkout *fakeCheckout
	lp       *middleware.LoginProtection
	router   http.Handler
}

type envOption func(*Deps)

func withGoogle(g *auth.GoogleProvider) envOption {
	return func(d *Deps) { d.Google = g }
}

func withFormLimiter(rps float64, burst int) envOption {
	return func(d *Deps) { d.FormLimiter = middleware.NewRateLimiter(rps, burst) }
}

func withoutCheckout() envOption {
	return func(d *Deps) {
		d.Billing = service.NewBillingService(nil, d.Pages, d.Events, service.DefaultLaunchPack, d.Logger)
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db := testutil.TestDB(t)
	logger := testutil.TestLoggerSilent()
	q := store.New(db)

	sm := session.NewProviderSessions(db, true)
	legacy := session.NewManager(q, logger, session.Options{})
	authSvc := auth.NewService(q, auth.NewPasswordHasher(fastArgon2), legacy, auth.ChainResolver{
		auth.ProviderResolver{Sessions: sm, Users: q},
		auth.LegacyResolver{Sessions: legacy},
	}, logger, auth.DestroyProviderSession(sm))

	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mc.Close() })
	views := cache.NewViews(mc, time.Minute, logger)

	pages := service.NewPageService(db, views, logger)
	events := service.NewEventService(db, logger)
	checkout := &fakeCheckout{sessions: map[string]*payment.Session{}}
	billing := service.NewBillingService(checkout, pages, events, service.DefaultLaunchPack, logger)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 3,
	})
	t.Cleanup(lp.Close)

	d := Deps{
		Logger:           logger,
		IsDev:            true,
		BaseURL:          "http://localhost:8080",
		CSRFKey:          []byte("0123456789abcdef0123456789abcdef"),
		WebhookSecret:    testWebhookSecret,
		Auth:             authSvc,
		ProviderSessions: sm,
		Pages:            pages,
		Billing:          billing,
		Events:           events,
		LoginProtection:  lp,
		APILimiter:       middleware.NewRateLimiter(100, 100),
		Health:           NewHealthHandler(db, mc, "memory", testVersion),
	}
	for _, opt := range opts {
		opt(&d)
	}

	return &testEnv{
		db:       db,
		queries:  q,
		sessions: sm,
		auth:     authSvc,
		pages:    d.Pages,
		billing:  d.Billing,
		checkout: checkout,
		lp:       lp,
		router:   NewRouter(d),
	}
}

// do sends a request through the router with the given cookies.
func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func newFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func newJSONRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(newFormRequest(path, form), cookies...)
}

func (e *testEnv) postJSON(path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.do(newJSONRequest(path, body), cookies...)
}

// register creates an account through the router and returns its session cookie.
func (e *testEnv) register(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := e.postForm("/auth/register", url.Values{"email": {email}, "password": {testPassword}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("register status = %d, want %d; body: %s", w.Code, http.StatusSeeOther, w.Body.String())
	}
	c := testutil.CookieByName(w.Result().Cookies(), session.CookieName)
	if c == nil || c.Value == "" {
		t.Fatal("register did not set a session cookie")
	}
	return c
}

func pageForm(title string) url.Values {
	return url.Values{
		"title":     {title},
		"eventDate": {"2026-03-01"},
		"eventTime": {"18:30"},
		"bgType":    {"dark-gradient"},
		"buttons":   {`[{"label":"Join","url":"https://example.com/join"}]`},
	}
}

// createPage creates a page through the router and returns slug and edit token.
func (e *testEnv) createPage(t *testing.T, title string, cookies ...*http.Cookie) (string, string) {
	t.Helper()
	w := e.postForm("/create", pageForm(title), cookies...)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decodeBody(t, w)
	slug, _ := body["slug"].(string)
	token, _ := body["editToken"].(string)
	if slug == "" || token == "" {
		t.Fatalf("create response missing slug or editToken: %v", body)
	}
	return slug, token
}
