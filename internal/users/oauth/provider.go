// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package oauth implements external identity resolution for FilingDigest.

Subscribers can sign in with GitHub, Google, or X. Each provider sits behind
one [Provider] interface built on golang.org/x/oauth2; Google additionally
verifies its ID token through go-oidc.

# Architecture

  - Provider: per-vendor authorization URL, code exchange, profile fetch.
  - Resolver: the callback state machine that turns a fetched profile into
    a logged-in account (returning user, linked account, or new signup).
  - Handler: the HTTP layer owning the handshake cookies and redirects.
*/
package oauth

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/filingdigest/filingdigest/internal/users/auth"
)

// Supported provider names. The set is closed; an unknown name on the login
// route is a 404, never a dynamic lookup.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
	ProviderX      = "x"
)

// Provider abstracts one external identity vendor.
type Provider interface {
	// Name returns the lowercase provider identifier used in routes and storage.
	Name() string

	// UsesPKCE reports whether the authorization flow carries a PKCE verifier.
	UsesPKCE() bool

	// AuthCodeURL builds the provider consent URL for the given handshake
	// state. For PKCE providers the verifier's S256 challenge is embedded.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the callback code (plus verifier, when PKCE) for a token.
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// FetchProfile resolves the token into the vendor's view of the user.
	FetchProfile(ctx context.Context, token *oauth2.Token) (auth.OAuthProfile, error)
}

// Registry is the closed set of configured providers.
type Registry map[string]Provider

// NewRegistry builds a registry from the given providers, skipping nils so
// unconfigured vendors simply don't exist.
func NewRegistry(providers ...Provider) Registry {
	registry := make(Registry, len(providers))
	for _, provider := range providers {
		if provider != nil {
			registry[provider.Name()] = provider
		}
	}
	return registry
}

// Lookup returns the named provider, or nil when unknown or unconfigured.
func (registry Registry) Lookup(name string) Provider {
	return registry[name]
}

// providerContext bounds every outbound call to the vendor with a deadline
// and a dedicated HTTP client, so a slow provider cannot pin a request.
func providerContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	return context.WithTimeout(ctx, timeout)
}
