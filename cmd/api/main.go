// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

// Command api is the entry point for the FilingDigest HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire rate limiters, OAuth providers, and HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filingdigest/filingdigest/internal/api"
	"github.com/filingdigest/filingdigest/internal/platform/config"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/platform/migration"
	pgstore "github.com/filingdigest/filingdigest/internal/platform/postgres"
	redisstore "github.com/filingdigest/filingdigest/internal/platform/redis"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
	"github.com/filingdigest/filingdigest/internal/ratelimit"
	"github.com/filingdigest/filingdigest/internal/users/auth"
	"github.com/filingdigest/filingdigest/internal/users/oauth"
)

// sessionPurgeInterval is how often fully expired sessions are physically
// deleted. Expired rows are already unusable; this only reclaims storage.
const sessionPurgeInterval = 1 * time.Hour

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// Lifetime context for background workers (bucket sweeper, session purge);
	// cancelled once the HTTP server has drained.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Token Service ──────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Rate Limiters ──────────────────────────────────────────────────
	bucket := ratelimit.NewTokenBucket(constants.GlobalBucketMax, constants.GlobalBucketRefillInterval)
	bucket.StartCleanup(appCtx)

	limits := api.Limiters{
		GlobalBucket:     bucket,
		GlobalWindow:     ratelimit.NewSlidingWindow(rdb, log, constants.SharedWindowLimit, constants.SharedWindowSize),
		CredentialWindow: ratelimit.NewSlidingWindow(rdb, log, constants.LoginWindowLimit, constants.SharedWindowSize),
	}

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	resetTokenRepository := auth.NewResetTokenRepository(rdb)
	verificationTokenRepository := auth.NewVerificationTokenRepository(rdb)

	authService := auth.NewService(
		userRepository,
		sessionRepository,
		resetTokenRepository,
		verificationTokenRepository,
		jwtSvc,
	)
	authHandler := auth.NewHandler(authService, cfg.IsProduction())

	var providers []oauth.Provider
	if github := oauth.NewGitHubProvider(cfg.GitHub); github != nil {
		providers = append(providers, github)
	}
	if cfg.Google.Configured() {
		google, gerr := oauth.NewGoogleProvider(startupCtx, cfg.Google)
		must(log, gerr, "initialize google oauth provider")
		providers = append(providers, google)
	}
	if x := oauth.NewXProvider(cfg.X); x != nil {
		providers = append(providers, x)
	}
	registry := oauth.NewRegistry(providers...)
	log.Info("oauth_providers_configured", slog.Int("count", len(registry)))

	resolver := oauth.NewResolver(registry, userRepository, authService, log)
	oauthHandler := oauth.NewHandler(resolver, authHandler, cfg.FrontendURL, cfg.IsProduction())

	// ── 10. Session Purge Worker ──────────────────────────────────────────
	go purgeExpiredSessions(appCtx, sessionRepository, log)

	// ── 11. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		OAuth:     oauthHandler,
	}

	server := api.NewServer(cfg, log, jwtSvc, limits, handlers)

	// ── 12. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// purgeExpiredSessions periodically removes dead session rows. Validation
// already treats expired sessions as absent, so a failed purge only delays
// storage reclamation.
func purgeExpiredSessions(ctx context.Context, sessions auth.SessionRepository, log *slog.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpired(ctx); err != nil {
				log.Error("session_purge_failed", slog.Any("error", err))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
