// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package auth provides the HTTP delivery layer for user identity management.

It implements the gateway for the authentication lifecycle, from account
creation to session management and recovery.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Security: Handles the opaque session cookie and JWT orchestration.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/platform/middleware"
	requestutil "github.com/filingdigest/filingdigest/internal/platform/request"
	"github.com/filingdigest/filingdigest/internal/platform/respond"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
	"github.com/filingdigest/filingdigest/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages everything related to the user lifecycle entry points
// (Registration, Login, Session introspection, Password Reset callbacks).
type Handler struct {
	authService *Service

	// secureCookies marks the session cookie Secure; enabled in production.
	secureCookies bool
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, secureCookies bool) *Handler {
	return &Handler{
		authService:   service,
		secureCookies: secureCookies,
	}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// The optional credentialGuards middlewares wrap only the endpoints that
// accept or recover credentials, so brute-force throttling never slows the
// read-only session introspection path.
//
// # Endpoints
//   - GET  /session  : Introspects the current session cookie.
//   - POST /register : Creates a new account.
//   - POST /login    : Authenticates and issues a session cookie.
//   - POST /token    : Exchanges the session cookie for a JWT.
func (handler *Handler) Routes(credentialGuards ...func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Get("/session", handler.session)
	router.Post("/logout", handler.logout)
	router.Post("/token", handler.token)
	router.Post("/verify-email", handler.verifyEmail)

	// JWT-authenticated surface; [middleware.Authenticate] upstream has
	// already resolved the Bearer token into claims.
	router.With(middleware.RequireAuth).Get("/me", handler.me)
	router.With(middleware.RequireRole(sec.RoleAdmin)).
		Post("/admin/purge-sessions", handler.purgeSessions)

	guarded := router.With(credentialGuards...)
	guarded.Post("/register", handler.register)
	guarded.Post("/login", handler.login)
	guarded.Post("/forgot-password", handler.forgotPassword)
	guarded.Post("/reset-password", handler.resetPassword)
	guarded.Post("/resend-verification", handler.resendVerification)

	return router
}

// # Cookie Management

// SetSessionCookie writes the session cookie with the session's own expiry,
// so the browser drops it exactly when the server would.
func (handler *Handler) SetSessionCookie(writer http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    token,
		Path:     constants.SessionCookiePath,
		Expires:  expiresAt,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie instructs the browser to discard the session cookie.
func (handler *Handler) ClearSessionCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    "",
		Path:     constants.SessionCookiePath,
		MaxAge:   -1,
		Secure:   handler.secureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionTokenFromCookie reads the raw session token, empty when absent.
func sessionTokenFromCookie(request *http.Request) string {
	cookie, err := request.Cookie(constants.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// # Request Payloads

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// # Handlers

/*
Session introspects the caller's session cookie.

GET /api/v1/auth/session

Description: Resolves the cookie into the active session and user. An
absent, unknown, or expired cookie is NOT an error; the response simply
carries nulls, mirroring "who am I" semantics for the frontend.

Response:
  - 200: {session, user} or {null, null}
  - 500: Storage failure (the caller must not treat this as logged-out)
*/
func (handler *Handler) session(writer http.ResponseWriter, request *http.Request) {
	token := sessionTokenFromCookie(request)

	session, user, err := handler.authService.ValidateSessionToken(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if session == nil {
		respond.OK(writer, map[string]any{
			FieldSession: nil,
			FieldUser:    nil,
		})
		return
	}

	// Renewal may have advanced the expiry; refresh the cookie alongside.
	handler.SetSessionCookie(writer, token, session.ExpiresAt)

	respond.OK(writer, map[string]any{
		FieldSession: session,
		FieldUser:    user,
	})
}

/*
Register handles the creation of a new user account.

POST /api/v1/auth/register

Description: Validates input, checks for identity conflicts, and persists
a new user profile to the database.

Request:
  - Body: registerRequest (Email, Password, DisplayName)

Response:
  - 201: User: Created user profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:       input.Email,
		Password:    input.Password,
		DisplayName: input.DisplayName,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Description: Verifies credentials and injects the httpOnly session cookie
into the response.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: User profile
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Account temporarily locked
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	loginSession, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.SetSessionCookie(writer, loginSession.SessionToken, loginSession.Session.ExpiresAt)

	respond.OK(writer, map[string]any{
		FieldUser: loginSession.User,
	})
}

/*
Logout terminates the current user session.

POST /api/v1/auth/logout

Description: Invalidates the session (if present) and clears the cookie
from the client. Idempotent: a stale cookie still logs out cleanly.

Response:
  - 204: No Content: Session terminated
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token := sessionTokenFromCookie(request)
	if token != "" {
		_ = handler.authService.Logout(request.Context(), token)
	}

	handler.ClearSessionCookie(writer)
	respond.NoContent(writer)
}

/*
Token exchanges a valid session cookie for a signed access token.

POST /api/v1/auth/token

Description: Programmatic clients (CLI, mobile) call this once and present
the JWT on subsequent /api/v1 requests instead of the cookie.

Response:
  - 200: TokenResponse: Bearer credentials
  - 401: ErrUnauthorized: Missing or invalid session
*/
func (handler *Handler) token(writer http.ResponseWriter, request *http.Request) {
	token := sessionTokenFromCookie(request)

	accessToken, _, err := handler.authService.IssueAccessToken(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldAccessToken: accessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   AccessTokenTTL / time.Second,
	})
}

/*
VerifyEmail confirms a user's email ownership.

POST /api/v1/auth/verify-email

Description: Validates an email verification token and marks the account as verified.

Request:
  - Body: verifyEmailRequest (Token)

Response:
  - 200: Success: Email verified
  - 400: ErrInvalidJSON: Missing or invalid token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Email verified successfully",
	})
}

/*
ForgotPassword initiates the password recovery flow.

POST /api/v1/auth/forgot-password

Description: Issues a reset token for the provided email if the account exists.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Generic security message
  - 400: ErrInvalidJSON: Invalid email format
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	_, err := handler.authService.RequestPasswordReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered, a reset link has been sent.",
	})
}

/*
ResetPassword completes the password recovery flow.

POST /api/v1/auth/reset-password

Description: Validates the reset token and updates the user's password.
Every existing session for the account is destroyed.

Request:
  - Body: resetPasswordRequest (Token, Password)

Response:
  - 200: Success: Password updated
  - 400: ErrInvalidJSON: Bad token or weak password
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldToken, input.Token).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.Password); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "Password updated successfully",
	})
}

/*
ResendVerification stages a fresh verification email token.

POST /api/v1/auth/resend-verification

Description: For subscribers whose original verification email never
arrived. Always answers generically so the endpoint reveals nothing about
which addresses exist.

Request:
  - Body: forgotPasswordRequest (Email)

Response:
  - 200: Success: Generic security message
  - 400: ErrInvalidJSON: Invalid email format
*/
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)

	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if _, err := handler.authService.ResendVerification(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		FieldMessage: "If this email is registered and unverified, a new verification link has been sent.",
	})
}

/*
Me returns the account behind the presented access token.

GET /api/v1/auth/me

Description: The JWT counterpart of /session for programmatic clients.
Requires a Bearer token resolved by the authentication middleware.

Response:
  - 200: User profile
  - 401: ErrUnauthorized: Missing or invalid token
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims := middleware.GetUser(request.Context())

	user, err := handler.authService.GetUser(request.Context(), claims.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldUser: user,
	})
}

/*
PurgeSessions removes every expired session row on demand.

POST /api/v1/auth/admin/purge-sessions

Description: Operational endpoint for administrators; the hourly background
sweep does the same work on a schedule.

Response:
  - 204: No Content: Purge completed
  - 403: ErrForbidden: Caller is not an administrator
*/
func (handler *Handler) purgeSessions(writer http.ResponseWriter, request *http.Request) {
	if err := handler.authService.PurgeExpiredSessions(request.Context()); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
