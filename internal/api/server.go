// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/filingdigest/filingdigest/internal/platform/config"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/platform/middleware"
	"github.com/filingdigest/filingdigest/internal/ratelimit"
	"github.com/filingdigest/filingdigest/internal/users/auth"
	"github.com/filingdigest/filingdigest/internal/users/oauth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Auth handles session, registration, and credential recovery routes.
	Auth *auth.Handler

	// OAuth handles the provider login and callback handshake routes.
	OAuth *oauth.Handler
}

// # Throttling Registry

// Limiters groups the rate limiters applied at the routing layer.
//
// The global pair throttles every request: a per-instance token bucket for
// cheap local backpressure, and a shared sliding window so a fleet of
// instances enforces one combined ceiling. The credential window is a much
// stricter shared budget wrapped only around endpoints that accept or
// recover credentials.
type Limiters struct {
	GlobalBucket     ratelimit.Limiter
	GlobalWindow     ratelimit.Limiter
	CredentialWindow ratelimit.Limiter
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, limits Limiters, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(ratelimit.Guard(limits.GlobalBucket, ratelimit.ByClientIP, ratelimit.CostByMethod))
	r.Use(ratelimit.Guard(limits.GlobalWindow, ratelimit.ScopedByClientIP("global"), ratelimit.FlatCost(1)))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # OAuth Handshake
	// Browser-facing redirects live outside the versioned API prefix.
	r.Mount("/login", h.OAuth.Routes())

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	credentialGuard := ratelimit.Guard(limits.CredentialWindow, ratelimit.ScopedByClientIP("credentials"), ratelimit.FlatCost(1))
	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/auth", h.Auth.Routes(credentialGuard))
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
