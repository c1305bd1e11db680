// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/filingdigest/filingdigest/internal/platform/config"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/users/auth"
)

// GitHubProvider implements [Provider] for GitHub OAuth 2.0.
//
// GitHub does not support PKCE for web application flows, so the handshake
// relies on state + client secret alone.
type GitHubProvider struct {
	oauthConfig *oauth2.Config
}

// NewGitHubProvider builds the provider, or nil when unconfigured.
func NewGitHubProvider(credentials config.OAuthProvider) *GitHubProvider {
	if !credentials.Configured() {
		return nil
	}

	return &GitHubProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     credentials.ClientID,
			ClientSecret: credentials.ClientSecret,
			RedirectURL:  credentials.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

// Name implements [Provider].
func (provider *GitHubProvider) Name() string { return ProviderGitHub }

// UsesPKCE implements [Provider].
func (provider *GitHubProvider) UsesPKCE() bool { return false }

// AuthCodeURL implements [Provider].
func (provider *GitHubProvider) AuthCodeURL(state, _ string) string {
	return provider.oauthConfig.AuthCodeURL(state)
}

// Exchange implements [Provider].
func (provider *GitHubProvider) Exchange(ctx context.Context, code, _ string) (*oauth2.Token, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	token, err := provider.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth_github_exchange_failed: %w", err)
	}

	return token, nil
}

// githubUser mirrors the fields we read from GET /user.
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// githubEmail mirrors one entry of GET /user/emails.
type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

/*
FetchProfile resolves the token into a normalized [auth.OAuthProfile].

Description: GitHub hides the email on GET /user for privacy-enabled
accounts; when absent, the primary verified address is read from
GET /user/emails (the reason for the user:email scope).

Parameters:
  - ctx: context.Context
  - token: *oauth2.Token

Returns:
  - auth.OAuthProfile: Normalized profile
  - error: Transport or decoding failures
*/
func (provider *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (auth.OAuthProfile, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	client := provider.oauthConfig.Client(ctx, token)

	var user githubUser
	if err := getJSON(ctx, client, "https://api.github.com/user", &user); err != nil {
		return auth.OAuthProfile{}, fmt.Errorf("oauth_github_profile_failed: %w", err)
	}

	email := user.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, candidate := range emails {
				if candidate.Primary && candidate.Verified {
					email = candidate.Email
					break
				}
			}
		}
	}

	displayName := user.Name
	if displayName == "" {
		displayName = user.Login
	}

	return auth.OAuthProfile{
		Provider:    ProviderGitHub,
		ProviderID:  strconv.FormatInt(user.ID, 10),
		Email:       email,
		DisplayName: displayName,
		PhotoURL:    user.AvatarURL,
	}, nil
}

// getJSON performs an authenticated GET and decodes the JSON body.
func getJSON(ctx context.Context, client *http.Client, url string, target any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return err
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", response.StatusCode, url)
	}

	return json.NewDecoder(response.Body).Decode(target)
}
