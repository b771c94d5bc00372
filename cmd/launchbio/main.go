// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v81"

	"github.com/olegiv/launchbio/internal/auth"
	"github.com/olegiv/launchbio/internal/cache"
	"github.com/olegiv/launchbio/internal/config"
	"github.com/olegiv/launchbio/internal/handler"
	"github.com/olegiv/launchbio/internal/logging"
	"github.com/olegiv/launchbio/internal/middleware"
	"github.com/olegiv/launchbio/internal/payment"
	"github.com/olegiv/launchbio/internal/scheduler"
	"github.com/olegiv/launchbio/internal/service"
	"github.com/olegiv/launchbio/internal/session"
	"github.com/olegiv/launchbio/internal/store"
	"github.com/olegiv/launchbio/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "LaunchBio - countdown launch pages\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_SESSION_SECRET         Session and CSRF key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_DB_PATH                SQLite database path (default: ./data/launchbio.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_SERVER_PORT            Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_ENV                    Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_BASE_URL               Public origin for checkout return URLs (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_REDIS_URL              Redis URL for the render cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_STRIPE_SECRET_KEY      Stripe API key (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_STRIPE_WEBHOOK_SECRET  Stripe webhook signing secret (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  LAUNCHBIO_GOOGLE_CLIENT_ID       Google sign-in client (optional, with _SECRET and _REDIRECT_URL)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/launchbio\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.New(appVersion, appGitCommit, appBuildTime)

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Println(versionInfo.String())
		os.Exit(0)
	}

	if err := run(versionInfo); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info) error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	queries := store.New(db)

	// Both session systems share the database
	providerSessions := session.NewProviderSessions(db, cfg.IsDevelopment())
	legacySessions := session.NewManager(queries, logger, session.Options{
		Secure:             !cfg.IsDevelopment(),
		CleanupProbability: cfg.SessionCleanupProbability,
	})

	authService := auth.NewService(
		queries,
		auth.NewPasswordHasher(auth.DefaultArgon2Params),
		legacySessions,
		auth.ChainResolver{
			auth.ProviderResolver{Sessions: providerSessions, Users: queries},
			auth.LegacyResolver{Sessions: legacySessions},
		},
		logger,
		auth.DestroyProviderSession(providerSessions),
	)

	// Render cache: Redis when configured and reachable, memory otherwise
	cacheBackend, cacheName := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = cacheBackend.Close() }()
	slog.Info("render cache initialized", "backend", cacheName, "redis_configured", cfg.UseRedisCache())
	views := cache.NewViews(cacheBackend, cfg.CacheTTLDuration(), logger)

	pageService := service.NewPageService(db, views, logger)
	eventService := service.NewEventService(db, logger)

	var checkout payment.Checkout
	if cfg.StripeEnabled() {
		backends := stripe.NewBackends(&http.Client{Timeout: 30 * time.Second})
		checkout = payment.NewStripeCheckout(cfg.StripeSecretKey, backends)
		slog.Info("stripe checkout enabled", "webhook", cfg.StripeWebhookEnabled())
	} else {
		slog.Warn("stripe checkout disabled: LAUNCHBIO_STRIPE_SECRET_KEY not set")
	}
	pack := service.DefaultLaunchPack
	pack.AmountCents = cfg.ProPriceCents
	billingService := service.NewBillingService(checkout, pageService, eventService, pack, logger)

	var google *auth.GoogleProvider
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		slog.Info("google sign-in enabled")
	}

	// Background housekeeping
	sched := scheduler.New(logger)
	if err := sched.Register(scheduler.JobSessionSweep, cfg.SessionSweepSchedule,
		scheduler.SessionSweepJob(legacySessions, logger)); err != nil {
		return fmt.Errorf("registering session sweep: %w", err)
	}
	if err := sched.Register(scheduler.JobEventRetention, cfg.EventRetentionSchedule,
		scheduler.EventRetentionJob(eventService, cfg.EventRetention(), logger)); err != nil {
		return fmt.Errorf("registering event retention: %w", err)
	}
	// Clear sessions that expired while the server was down
	if err := sched.Trigger(scheduler.JobSessionSweep); err != nil {
		slog.Warn("initial session sweep failed", "error", err)
	}
	sched.Start()
	defer sched.Stop()
	for _, job := range sched.Jobs() {
		slog.Info("scheduled job", "name", job.Name, "schedule", job.Schedule, "next_run", job.NextRun)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()

	r := handler.NewRouter(handler.Deps{
		Logger:           logger,
		IsDev:            cfg.IsDevelopment(),
		BaseURL:          cfg.BaseURL,
		CSRFKey:          []byte(cfg.SessionSecret),
		WebhookSecret:    cfg.StripeWebhookSecret,
		AccessLog:        true,
		Auth:             authService,
		ProviderSessions: providerSessions,
		Google:           google,
		Pages:            pageService,
		Billing:          billingService,
		Events:           eventService,
		LoginProtection:  loginProtection,
		APILimiter:       middleware.NewRateLimiter(10, 20),
		FormLimiter:      middleware.NewRateLimiter(1, 10),
		Health:           handler.NewHealthHandler(db, cacheBackend, cacheName, versionInfo),
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second, // Mitigates slowloris
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", versionInfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
