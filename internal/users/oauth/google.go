// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/filingdigest/filingdigest/internal/platform/config"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/users/auth"
)

// GoogleProvider implements [Provider] for Google OAuth 2.0 / OIDC.
//
// The profile is taken from the cryptographically verified ID token rather
// than a userinfo call, so a tampered token can never impersonate a subject.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogleProvider builds the provider, or nil when unconfigured.
//
// # Parameters
//   - ctx: Context for the OIDC discovery document fetch.
//   - credentials: Client credentials from the environment.
func NewGoogleProvider(ctx context.Context, credentials config.OAuthProvider) (*GoogleProvider, error) {
	if !credentials.Configured() {
		return nil, nil
	}

	oidcProvider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("oauth_google_oidc_discovery_failed: %w", err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  credentials.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	return &GoogleProvider{
		oauthConfig: oauthConfig,
		verifier:    oidcProvider.Verifier(&oidc.Config{ClientID: credentials.ClientID}),
	}, nil
}

// Name implements [Provider].
func (provider *GoogleProvider) Name() string { return ProviderGoogle }

// UsesPKCE implements [Provider].
func (provider *GoogleProvider) UsesPKCE() bool { return true }

// AuthCodeURL implements [Provider].
func (provider *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return provider.oauthConfig.AuthCodeURL(
		state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange implements [Provider].
func (provider *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	token, err := provider.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("oauth_google_exchange_failed: %w", err)
	}

	return token, nil
}

// googleClaims mirrors the ID-token claims we read.
type googleClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

/*
FetchProfile verifies the ID token and extracts the subject's profile.

Parameters:
  - ctx: context.Context
  - token: *oauth2.Token (must carry an id_token extra)

Returns:
  - auth.OAuthProfile: Normalized profile
  - error: Missing, unverifiable, or malformed ID tokens
*/
func (provider *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (auth.OAuthProfile, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return auth.OAuthProfile{}, fmt.Errorf("oauth_google_missing_id_token")
	}

	idToken, err := provider.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return auth.OAuthProfile{}, fmt.Errorf("oauth_google_verify_failed: %w", err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return auth.OAuthProfile{}, fmt.Errorf("oauth_google_claims_failed: %w", err)
	}

	return auth.OAuthProfile{
		Provider:    ProviderGoogle,
		ProviderID:  claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhotoURL:    claims.Picture,
	}, nil
}
