// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// OAuthProvider holds the client credentials for one external identity provider.
type OAuthProvider struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Configured reports whether the provider has usable credentials.
func (p OAuthProvider) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Config holds all runtime configuration for the FilingDigest API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Symmetric signing key for short-lived access tokens.
	// Must be at least 32 bytes of entropy.
	JWTSecret string `env:"JWT_SECRET,required"`

	// BaseURL is the externally reachable URL of this API, used to build
	// OAuth redirect URIs when per-provider overrides are absent.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// FrontendURL is where browsers land after a completed OAuth flow.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`

	// External identity providers
	GitHub OAuthProvider `envPrefix:"GITHUB_"`
	Google OAuthProvider `envPrefix:"GOOGLE_"`
	X      OAuthProvider `envPrefix:"X_"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("config: JWT_SECRET must be at least 32 bytes, got %d", len(cfg.JWTSecret))
	}

	// Providers without an explicit override get the conventional callback
	// path on this API's own base URL.
	base := strings.TrimRight(cfg.BaseURL, "/")
	defaultRedirect(&cfg.GitHub, base, "github")
	defaultRedirect(&cfg.Google, base, "google")
	defaultRedirect(&cfg.X, base, "x")

	return cfg, nil
}

// defaultRedirect fills the provider's redirect URL from the API base URL.
func defaultRedirect(provider *OAuthProvider, base, name string) {
	if provider.RedirectURL == "" {
		provider.RedirectURL = base + "/login/" + name + "/callback"
	}
}

// ExtraAllowedOrigins returns the comma-separated EXTRA_ORIGINS entries,
// trimmed, for the CORS allow-list.
func (c *Config) ExtraAllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}

	parts := strings.Split(c.ExtraOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
