// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/launchbio/internal/auth"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/service"
	"github.com/olegiv/launchbio/internal/session"
)

// Default router settings.
const (
	DefaultRequestTimeout = 30 * time.Second
	publicPageMaxAge      = 60
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Logger *slog.Logger

	IsDev         bool
	BaseURL       string
	CSRFKey       []byte
	WebhookSecret string

	// RequestTimeout defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool

	Auth             *auth.Service
	ProviderSessions *scs.SessionManager
	Google           *auth.GoogleProvider // nil when Google sign-in is off

	Pages   *service.PageService
	Billing *service.BillingService
	Events  *service.EventService

	LoginProtection *middleware.LoginProtection
	APILimiter      *middleware.RateLimiter
	// FormLimiter throttles page create and update submissions.
	FormLimiter *middleware.RateLimiter
	Health      *HealthHandler
}

// NewRouter builds the HTTP routing tree.
func NewRouter(d Deps) chi.Router {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	pagesHandler := NewPagesHandler(d.Pages, d.Billing, d.Events, d.Logger)
	apiHandler := NewAPIHandler(d.Pages, d.Billing, d.BaseURL, d.Logger)
	webhookHandler := NewWebhookHandler(d.Billing, d.WebhookSecret, d.Logger)
	authHandler := NewAuthHandler(d.Auth, d.Events, d.LoginProtection, d.ProviderSessions, d.Google, d.Logger)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if d.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RedirectSlashes)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(d.IsDev)))

	// Health checks sit outside sessions so orchestrator checks never touch the store.
	if d.Health != nil {
		r.Get("/health", d.Health.Health)
		r.Get("/health/live", d.Health.Liveness)
		r.Get("/health/ready", d.Health.Readiness)
	}

	// Stripe calls the webhook server to server with no session.
	r.Group(func(r chi.Router) {
		r.Post("/webhook", webhookHandler.Stripe)
		r.Post("/api/webhook/stripe", webhookHandler.Stripe)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.ProviderSessions.LoadAndSave)
		r.Use(middleware.LoadUser(d.Auth))
		r.Use(middleware.SkipCSRF("/checkout", "/views", "/revalidate"))
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(d.CSRFKey, d.BaseURL, d.IsDev)))

		// JSON API
		r.Group(func(r chi.Router) {
			if d.APILimiter != nil {
				r.Use(d.APILimiter.Middleware())
			}
			r.Post("/checkout", apiHandler.Checkout)
			r.Post("/views", apiHandler.Views)
			r.Post("/revalidate", apiHandler.Revalidate)
		})

		r.With(middleware.PublicCache(publicPageMaxAge)).Get("/u/{slug}", pagesHandler.Public)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)

			requireCookie := middleware.RequireSessionCookie(session.CookieName, d.ProviderSessions.Cookie.Name)

			submit := r
			if d.FormLimiter != nil {
				submit = r.With(d.FormLimiter.FormMiddleware())
			}

			submit.Post("/create", pagesHandler.Create)
			r.Get("/edit/success", pagesHandler.CheckoutSuccess)
			r.With(requireCookie).Get("/edit/{editToken}", pagesHandler.Edit)
			submit.Post("/edit/{editToken}", pagesHandler.Update)
			r.With(requireCookie, middleware.RequireUser).Get("/dashboard", pagesHandler.Dashboard)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Get(RouteLogin, authHandler.LoginOptions)
			r.Post(RouteLogout, authHandler.Logout)

			r.Group(func(r chi.Router) {
				if d.LoginProtection != nil {
					r.Use(d.LoginProtection.Middleware())
				}
				r.Post(RouteLogin, authHandler.Login)
				r.Post(RouteRegister, authHandler.Register)
			})

			if authHandler.GoogleEnabled() {
				r.Get(RouteGoogle, authHandler.GoogleStart)
				r.Get(RouteGoogleCallback, authHandler.GoogleCallback)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
