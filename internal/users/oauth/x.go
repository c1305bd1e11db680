// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/filingdigest/filingdigest/internal/platform/config"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/users/auth"
)

// xEndpoint is X's OAuth 2.0 endpoint pair. The x/oauth2 module ships no
// preset for X, so the URLs are pinned here.
var xEndpoint = oauth2.Endpoint{
	AuthURL:  "https://x.com/i/oauth2/authorize",
	TokenURL: "https://api.x.com/2/oauth2/token",
}

// XProvider implements [Provider] for X (formerly Twitter) OAuth 2.0.
//
// X mandates PKCE for every OAuth 2.0 client. Its user API never exposes an
// email address, so accounts resolved through X alone carry an empty profile
// email and can only ever match by (provider, providerid).
type XProvider struct {
	oauthConfig *oauth2.Config
}

// NewXProvider builds the provider, or nil when unconfigured.
func NewXProvider(credentials config.OAuthProvider) *XProvider {
	if !credentials.Configured() {
		return nil
	}

	return &XProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     credentials.ClientID,
			ClientSecret: credentials.ClientSecret,
			RedirectURL:  credentials.RedirectURL,
			Endpoint:     xEndpoint,
			Scopes:       []string{"tweet.read", "users.read"},
		},
	}
}

// Name implements [Provider].
func (provider *XProvider) Name() string { return ProviderX }

// UsesPKCE implements [Provider].
func (provider *XProvider) UsesPKCE() bool { return true }

// AuthCodeURL implements [Provider].
func (provider *XProvider) AuthCodeURL(state, verifier string) string {
	return provider.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange implements [Provider].
func (provider *XProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	token, err := provider.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("oauth_x_exchange_failed: %w", err)
	}

	return token, nil
}

// xUserResponse mirrors GET /2/users/me.
type xUserResponse struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

/*
FetchProfile resolves the token into a normalized [auth.OAuthProfile].

Parameters:
  - ctx: context.Context
  - token: *oauth2.Token

Returns:
  - auth.OAuthProfile: Normalized profile (Email always empty)
  - error: Transport or decoding failures
*/
func (provider *XProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (auth.OAuthProfile, error) {
	ctx, cancel := providerContext(ctx, constants.ProviderCallTimeout)
	defer cancel()

	client := provider.oauthConfig.Client(ctx, token)

	var response xUserResponse
	url := "https://api.x.com/2/users/me?user.fields=profile_image_url"
	if err := getJSON(ctx, client, url, &response); err != nil {
		return auth.OAuthProfile{}, fmt.Errorf("oauth_x_profile_failed: %w", err)
	}

	displayName := response.Data.Name
	if displayName == "" {
		displayName = response.Data.Username
	}

	return auth.OAuthProfile{
		Provider:    ProviderX,
		ProviderID:  response.Data.ID,
		DisplayName: displayName,
		PhotoURL:    response.Data.ProfileImageURL,
	}, nil
}
