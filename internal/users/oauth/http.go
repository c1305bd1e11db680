// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package oauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filingdigest/filingdigest/internal/platform/respond"
	"github.com/filingdigest/filingdigest/internal/users/auth"
)

// handshakeCookieTTL bounds how long an authorization redirect may stay
// outstanding before its state cookies expire.
const handshakeCookieTTL = 600 // seconds

// Handler exposes the OAuth login and callback routes.
type Handler struct {
	resolver      *Resolver
	authHandler   *auth.Handler
	frontendURL   string
	secureCookies bool
}

// NewHandler constructs an OAuth [Handler].
func NewHandler(resolver *Resolver, authHandler *auth.Handler, frontendURL string, secureCookies bool) *Handler {
	return &Handler{
		resolver:      resolver,
		authHandler:   authHandler,
		frontendURL:   frontendURL,
		secureCookies: secureCookies,
	}
}

// Routes mounts the provider handshake endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{provider}", handler.login)
	router.Get("/{provider}/callback", handler.callback)

	return router
}

// # Handshake cookies

func stateCookieName(provider string) string {
	return provider + "_oauth_state"
}

func verifierCookieName(provider string) string {
	return provider + "_code_verifier"
}

func (handler *Handler) setHandshakeCookie(writer http.ResponseWriter, name, value string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   handshakeCookieTTL,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (handler *Handler) clearHandshakeCookie(writer http.ResponseWriter, name string) {
	http.SetCookie(writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// # Routes

// login kicks off the consent redirect for GET /login/{provider}.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	providerName := chi.URLParam(request, "provider")

	handshake, err := handler.resolver.Begin(providerName)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setHandshakeCookie(writer, stateCookieName(providerName), handshake.State)
	if handshake.Verifier != "" {
		handler.setHandshakeCookie(writer, verifierCookieName(providerName), handshake.Verifier)
	}

	respond.Redirect(writer, handshake.RedirectURL)
}

// callback completes the consent flow for GET /login/{provider}/callback.
func (handler *Handler) callback(writer http.ResponseWriter, request *http.Request) {
	providerName := chi.URLParam(request, "provider")

	input := CallbackInput{
		Provider: providerName,
		Code:     request.URL.Query().Get("code"),
		State:    request.URL.Query().Get("state"),
	}
	if cookie, err := request.Cookie(stateCookieName(providerName)); err == nil {
		input.CookieState = cookie.Value
	}
	if cookie, err := request.Cookie(verifierCookieName(providerName)); err == nil {
		input.CookieVerifier = cookie.Value
	}

	// The handshake cookies are single-use whatever the outcome.
	handler.clearHandshakeCookie(writer, stateCookieName(providerName))
	handler.clearHandshakeCookie(writer, verifierCookieName(providerName))

	login, err := handler.resolver.Callback(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.authHandler.SetSessionCookie(writer, login.SessionToken, login.Session.ExpiresAt)
	respond.Redirect(writer, handler.frontendURL+"/dashboard")
}
