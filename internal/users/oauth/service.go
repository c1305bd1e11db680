// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
	"github.com/filingdigest/filingdigest/internal/platform/dberr"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
	"github.com/filingdigest/filingdigest/internal/users/auth"
	"github.com/filingdigest/filingdigest/pkg/uuidv7"
)

// # Resolver

// SessionIssuer is the slice of the auth service the resolver needs: turning
// a resolved user into a live session.
type SessionIssuer interface {
	StartSession(ctx context.Context, userID string) (string, *auth.Session, error)
}

// Resolver drives the OAuth callback state machine.
//
// # Resolution Order
//
// For a fetched profile, first match wins:
//
//  1. An account already owns this exact (provider, providerid): returning
//     user, log in.
//  2. The profile email matches an account lacking this provider: link by
//     appending the profile, log in.
//  3. Otherwise: create a fresh account whose only credential is this
//     profile, log in.
//
// Concurrent first logins of the same identity are settled by the database
// unique constraint on (provider, providerid): the losing insert retries the
// resolution once and logs in against the winner's account.
type Resolver struct {
	providers     Registry
	userRepo      auth.UserRepository
	sessionIssuer SessionIssuer
	logger        *slog.Logger
}

// NewResolver constructs a [Resolver] with its dependencies.
func NewResolver(providers Registry, userRepo auth.UserRepository, sessionIssuer SessionIssuer, logger *slog.Logger) *Resolver {
	return &Resolver{
		providers:     providers,
		userRepo:      userRepo,
		sessionIssuer: sessionIssuer,
		logger:        logger,
	}
}

// Providers exposes the configured registry (used by the HTTP layer).
func (resolver *Resolver) Providers() Registry {
	return resolver.providers
}

// # Handshake

// Handshake is the one-time state bound to a single authorization redirect.
type Handshake struct {
	Provider    string
	State       string
	Verifier    string // empty for non-PKCE providers
	RedirectURL string
}

/*
Begin starts the authorization flow for the named provider.

Description: Generates the anti-CSRF state (and PKCE verifier where the
provider mandates one) and builds the consent redirect.

Parameters:
  - providerName: string

Returns:
  - *Handshake: State to bind into cookies plus the redirect target
  - error: apperr.NotFound for unknown or unconfigured providers
*/
func (resolver *Resolver) Begin(providerName string) (*Handshake, error) {
	provider := resolver.providers.Lookup(providerName)
	if provider == nil {
		return nil, apperr.NotFound("Provider")
	}

	state, err := sec.GenerateSecureToken(16)
	if err != nil {
		return nil, fmt.Errorf("oauth_resolver_state_failed: %w", err)
	}

	verifier := ""
	if provider.UsesPKCE() {
		verifier = oauth2.GenerateVerifier()
	}

	return &Handshake{
		Provider:    providerName,
		State:       state,
		Verifier:    verifier,
		RedirectURL: provider.AuthCodeURL(state, verifier),
	}, nil
}

// # Callback

// CallbackInput carries everything the callback route received.
type CallbackInput struct {
	Provider string

	// Query parameters from the provider redirect.
	Code  string
	State string

	// Values recovered from the handshake cookies.
	CookieState    string
	CookieVerifier string
}

// errInvalidParameters is the single fail-fast rejection for every
// parameter or state problem, deliberately unspecific to the caller.
func errInvalidParameters() *apperr.AppError {
	return apperr.BadRequest("Invalid OAuth parameters")
}

/*
Callback completes the authorization flow.

Description: Validates the handshake, exchanges the code, fetches the
profile, and resolves it to an account. Parameter and state mismatches are
rejected before any network or store call is made.

Parameters:
  - ctx: context.Context
  - input: CallbackInput

Returns:
  - *auth.LoginSession: The established session and resolved user
  - error: 400 for handshake or exchange failures, 500 for profile or
    store failures
*/
func (resolver *Resolver) Callback(ctx context.Context, input CallbackInput) (*auth.LoginSession, error) {

	// ── 1. Fail-fast parameter validation (zero network, zero store) ──────
	provider := resolver.providers.Lookup(input.Provider)
	if provider == nil {
		return nil, apperr.NotFound("Provider")
	}

	if input.Code == "" || input.State == "" || input.CookieState == "" {
		return nil, errInvalidParameters()
	}
	if input.State != input.CookieState {
		return nil, errInvalidParameters()
	}
	if provider.UsesPKCE() && input.CookieVerifier == "" {
		return nil, errInvalidParameters()
	}

	// ── 2. Code exchange ──────────────────────────────────────────────────
	token, err := provider.Exchange(ctx, input.Code, input.CookieVerifier)
	if err != nil {
		resolver.logger.Warn("oauth_exchange_failed",
			slog.String("provider", input.Provider),
			slog.Any("error", err),
		)
		return nil, apperr.BadRequest("OAuth code exchange failed")
	}

	// ── 3. Profile fetch ──────────────────────────────────────────────────
	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		resolver.logger.Error("oauth_profile_fetch_failed",
			slog.String("provider", input.Provider),
			slog.Any("error", err),
		)
		return nil, apperr.Internal(err)
	}

	// ── 4. Resolution ─────────────────────────────────────────────────────
	user, err := resolver.resolve(ctx, profile, true)
	if err != nil {
		return nil, err
	}

	// ── 5. Login ──────────────────────────────────────────────────────────
	sessionToken, session, err := resolver.sessionIssuer.StartSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &auth.LoginSession{
		SessionToken: sessionToken,
		Session:      session,
		User:         user,
	}, nil
}

// resolve walks the match order. mayRetry permits one constraint-race retry:
// when our insert loses to a concurrent identical login, the winner's row is
// simply looked up again.
func (resolver *Resolver) resolve(ctx context.Context, profile auth.OAuthProfile, mayRetry bool) (*auth.User, error) {

	// (a) Returning user: the identity pair is already linked somewhere.
	user, err := resolver.userRepo.FindByOAuthProfile(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		return user, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("oauth_resolver_profile_lookup_failed: %w", err)
	}

	// (b) Link: same email, account does not yet carry this provider.
	// Linking only appends; an account that already has this provider under
	// a different ID falls through to creation.
	if profile.Email != "" {
		user, err = resolver.userRepo.FindByEmail(ctx, profile.Email)
		if err == nil && !user.HasProvider(profile.Provider) {
			if appendErr := resolver.userRepo.AppendOAuthProfile(ctx, user.ID, profile); appendErr != nil {
				return resolver.retryOrFail(ctx, profile, mayRetry, appendErr)
			}
			user.Profiles = append(user.Profiles, profile)
			return user, nil
		}
		if err != nil && !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("oauth_resolver_email_lookup_failed: %w", err)
		}
	}

	// (c) Create: brand-new subscriber with this single profile.
	newUser := &auth.User{
		ID:          uuidv7.New(),
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		Role:        sec.RoleMember,
		IsVerified:  profile.Email != "", // The provider vouched for the address.
		IsActive:    true,
		Profiles:    []auth.OAuthProfile{profile},
	}

	if err := resolver.userRepo.Create(ctx, newUser); err != nil {
		return resolver.retryOrFail(ctx, profile, mayRetry, err)
	}

	return newUser, nil
}

// retryOrFail settles an insert that lost a creation race. Exactly one
// retry is allowed; a second miss means the violation wasn't a race.
func (resolver *Resolver) retryOrFail(ctx context.Context, profile auth.OAuthProfile, mayRetry bool, cause error) (*auth.User, error) {
	if mayRetry && dberr.IsUniqueViolation(cause) {
		resolver.logger.Info("oauth_create_race_lost",
			slog.String("provider", profile.Provider),
		)
		return resolver.resolve(ctx, profile, false)
	}
	return nil, apperr.Internal(cause)
}
