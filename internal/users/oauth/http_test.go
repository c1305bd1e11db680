// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/users/auth"
)

func newHandlerHarness(provider *fakeProvider) (*resolverHarness, http.Handler) {
	harness := newResolverHarness(provider)
	handler := NewHandler(harness.resolver, auth.NewHandler(nil, false), "https://app.filingdigest.app", false)
	return harness, handler.Routes()
}

func cookieByName(response *http.Response, name string) *http.Cookie {
	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginRouteRedirectsWithHandshakeCookies(t *testing.T) {
	_, routes := newHandlerHarness(githubTestProvider())

	recorder := httptest.NewRecorder()
	routes.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/github", nil))
	response := recorder.Result()

	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Contains(t, response.Header.Get("Location"), "https://provider.example/authorize")

	state := cookieByName(response, "github_oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, handshakeCookieTTL, state.MaxAge)

	// GitHub does not use PKCE, so no verifier cookie is issued.
	assert.Nil(t, cookieByName(response, "github_code_verifier"))
}

func TestLoginRoutePKCESetsVerifierCookie(t *testing.T) {
	provider := githubTestProvider()
	provider.name = ProviderGoogle
	provider.pkce = true
	_, routes := newHandlerHarness(provider)

	recorder := httptest.NewRecorder()
	routes.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/google", nil))
	response := recorder.Result()

	assert.Equal(t, http.StatusFound, response.StatusCode)
	require.NotNil(t, cookieByName(response, "google_oauth_state"))
	require.NotNil(t, cookieByName(response, "google_code_verifier"))
}

func TestLoginRouteUnknownProvider(t *testing.T) {
	_, routes := newHandlerHarness(githubTestProvider())

	recorder := httptest.NewRecorder()
	routes.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/myspace", nil))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCallbackRouteEstablishesSession(t *testing.T) {
	harness, routes := newHandlerHarness(githubTestProvider())

	request := httptest.NewRequest(http.MethodGet, "/github/callback?code=auth-code&state=state-abc", nil)
	request.AddCookie(&http.Cookie{Name: "github_oauth_state", Value: "state-abc"})

	recorder := httptest.NewRecorder()
	routes.ServeHTTP(recorder, request)
	response := recorder.Result()

	assert.Equal(t, http.StatusFound, response.StatusCode)
	assert.Equal(t, "https://app.filingdigest.app/dashboard", response.Header.Get("Location"))
	assert.Equal(t, 1, harness.issuer.calls)

	session := cookieByName(response, constants.SessionCookieName)
	require.NotNil(t, session)
	assert.Equal(t, "session-token", session.Value)
	assert.True(t, session.HttpOnly)

	// The single-use handshake cookie is gone.
	state := cookieByName(response, "github_oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, -1, state.MaxAge)
}

func TestCallbackRouteStateMismatch(t *testing.T) {
	harness, routes := newHandlerHarness(githubTestProvider())

	request := httptest.NewRequest(http.MethodGet, "/github/callback?code=auth-code&state=forged", nil)
	request.AddCookie(&http.Cookie{Name: "github_oauth_state", Value: "state-abc"})

	recorder := httptest.NewRecorder()
	routes.ServeHTTP(recorder, request)
	response := recorder.Result()

	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Nil(t, cookieByName(response, constants.SessionCookieName))
	assert.Zero(t, harness.issuer.calls)

	// Even a rejected callback burns the handshake cookie.
	state := cookieByName(response, "github_oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, -1, state.MaxAge)
}
