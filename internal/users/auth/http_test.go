// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/platform/ctxutil"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
)

func newTestServer(t *testing.T) (*harness, http.Handler) {
	t.Helper()
	h := newHarness(t)
	handler := NewHandler(h.service, false)
	return h, handler.Routes()
}

func sessionCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range response.Cookies() {
		if cookie.Name == constants.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestSessionEndpoint_NoCookie(t *testing.T) {
	_, router := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/session", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			Session json.RawMessage `json:"session"`
			User    json.RawMessage `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Equal(t, "null", string(envelope.Data.Session))
	assert.Equal(t, "null", string(envelope.Data.User))
}

func TestLoginEndpoint_SetsSessionCookie(t *testing.T) {
	h, router := newTestServer(t)
	h.addUser(t, "ana@example.com", "hunter2hunter2")

	body := `{"email":"ana@example.com","password":"hunter2hunter2"}`
	request := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	cookie := sessionCookie(t, recorder.Result())
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, constants.SessionCookiePath, cookie.Path)
	assert.Equal(t, h.clock.Add(SessionTTL).Unix(), cookie.Expires.Unix())
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	h, router := newTestServer(t)
	h.addUser(t, "ana@example.com", "hunter2hunter2")

	body := `{"email":"ana@example.com","password":"wrong-password"}`
	request := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Nil(t, sessionCookie(t, recorder.Result()))
}

func TestSessionEndpoint_RoundTripThroughLogin(t *testing.T) {
	h, router := newTestServer(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	loginBody := `{"email":"ana@example.com","password":"hunter2hunter2"}`
	loginRequest := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(loginBody))
	loginRecorder := httptest.NewRecorder()
	router.ServeHTTP(loginRecorder, loginRequest)
	require.Equal(t, http.StatusOK, loginRecorder.Code)

	cookie := sessionCookie(t, loginRecorder.Result())
	require.NotNil(t, cookie)

	request := httptest.NewRequest(http.MethodGet, "/session", nil)
	request.AddCookie(cookie)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			User *User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.User)
	assert.Equal(t, user.ID, envelope.Data.User.ID)
}

func TestLogoutEndpoint_ClearsCookieAndIsIdempotent(t *testing.T) {
	h, router := newTestServer(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	token, _, err := h.service.StartSession(t.Context(), user.ID)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/logout", nil)
	request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	cleared := sessionCookie(t, recorder.Result())
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)

	// Logging out again with the now-dead cookie still succeeds.
	repeat := httptest.NewRequest(http.MethodPost, "/logout", nil)
	repeat.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
	repeatRecorder := httptest.NewRecorder()
	router.ServeHTTP(repeatRecorder, repeat)
	assert.Equal(t, http.StatusNoContent, repeatRecorder.Code)
}

func TestTokenEndpoint_ExchangesSessionForJWT(t *testing.T) {
	h, router := newTestServer(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	token, _, err := h.service.StartSession(t.Context(), user.ID)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/token", nil)
	request.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Data.AccessToken, user.ID)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)
}

func TestTokenEndpoint_RejectsAnonymous(t *testing.T) {
	_, router := newTestServer(t)

	request := httptest.NewRequest(http.MethodPost, "/token", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRegisterEndpoint_ValidationFailure(t *testing.T) {
	_, router := newTestServer(t)

	body := `{"email":"not-an-email","password":"short"}`
	request := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// asUser stamps the request with verified claims, standing in for the
// Bearer-token middleware that runs upstream of this router in the server.
func asUser(request *http.Request, user *User) *http.Request {
	claims := &sec.AuthClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     string(user.Role),
		Verified: user.IsVerified,
	}
	return request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))
}

func TestMeEndpoint_ReturnsTokenSubject(t *testing.T) {
	h, router := newTestServer(t)
	user := h.addUser(t, "ana@example.com", "hunter2hunter2")

	request := asUser(httptest.NewRequest(http.MethodGet, "/me", nil), user)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var envelope struct {
		Data struct {
			User *User `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.User)
	assert.Equal(t, user.ID, envelope.Data.User.ID)
	assert.Equal(t, user.Email, envelope.Data.User.Email)
}

func TestMeEndpoint_RejectsAnonymous(t *testing.T) {
	_, router := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/me", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestPurgeSessionsEndpoint_AdminOnly(t *testing.T) {
	h, router := newTestServer(t)
	member := h.addUser(t, "ana@example.com", "hunter2hunter2")
	admin := h.addUser(t, "ops@example.com", "hunter2hunter2")
	h.users.users[admin.ID].Role = sec.RoleAdmin
	admin.Role = sec.RoleAdmin

	// Seed one session that is already past its expiry.
	h.sessions.sessions["stale"] = &Session{
		ID:        "stale",
		UserID:    member.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	anonymous := httptest.NewRequest(http.MethodPost, "/admin/purge-sessions", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, anonymous)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	asMember := asUser(httptest.NewRequest(http.MethodPost, "/admin/purge-sessions", nil), member)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, asMember)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, h.sessions.sessions, "stale", "a member must not trigger the purge")

	asAdmin := asUser(httptest.NewRequest(http.MethodPost, "/admin/purge-sessions", nil), admin)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, asAdmin)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.NotContains(t, h.sessions.sessions, "stale")
}

func TestResendVerificationEndpoint_IsGenericForAnyEmail(t *testing.T) {
	h, router := newTestServer(t)
	h.addUser(t, "ana@example.com", "hunter2hunter2")

	for _, email := range []string{"ana@example.com", "ghost@example.com"} {
		body := `{"email":"` + email + `"}`
		request := httptest.NewRequest(http.MethodPost, "/resend-verification", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.NotContains(t, recorder.Body.String(), "token", "the raw token never leaves the server")
	}

	// Only the registered, unverified address got a token staged.
	assert.Len(t, h.verifies.values, 1)
}
