// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
	"github.com/filingdigest/filingdigest/internal/platform/sec"
	"github.com/filingdigest/filingdigest/pkg/uuidv7"
)

// # Contracts & Types

// TokenProvider defines the contract for generating access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - email: The email of the account.
	//   - role: The role of the account.
	//   - verified: Whether the account's email is verified.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, email, role string, verified bool, timeToLive time.Duration) (string, error)
}

// Service implements identity and session use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, session
// renewal, or login logic must be reviewed by the security team.
type Service struct {
	userRepository              UserRepository
	sessionRepository           SessionRepository
	resetTokenRepository        ResetTokenRepository
	verificationTokenRepository VerificationTokenRepository
	tokenProvider               TokenProvider

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	sessionRepo SessionRepository,
	resetRepo ResetTokenRepository,
	verifyRepo VerificationTokenRepository,
	tokenProv TokenProvider,
) *Service {
	return &Service{
		userRepository:              userRepo,
		sessionRepository:           sessionRepo,
		resetTokenRepository:        resetRepo,
		verificationTokenRepository: verifyRepo,
		tokenProvider:               tokenProv,
		now:                         time.Now,
	}
}

// # Session Lifecycle

/*
GenerateSessionToken returns a fresh opaque session token.

Description: 20 bytes of OS entropy encoded as 32 lowercase base32
characters. The token is the client's only credential; storage works
exclusively with its SHA-256 digest.

Returns:
  - string: Plaintext token for the cookie
  - err: Entropy failures
*/
func (service *Service) GenerateSessionToken() (string, error) {
	token, err := sec.GenerateSecureToken(SessionTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_session_token_failed: %w", err)
	}
	return token, nil
}

/*
CreateSession persists a session for the given token and user.

Description: The session ID is the token's digest, so possession of the
database never yields a replayable cookie value.

Parameters:
  - context: context.Context
  - token: string (Plaintext session token)
  - userID: string

Returns:
  - *Session: Persisted session
  - err: Storage failures
*/
func (service *Service) CreateSession(context context.Context, token, userID string) (*Session, error) {
	now := service.now()
	session := &Session{
		ID:        sec.HashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
	}

	if err := service.sessionRepository.Create(context, session); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return session, nil
}

/*
StartSession generates a token and persists its session in one step.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - string: Plaintext token for the cookie
  - *Session: Persisted session
  - err: Entropy or storage failures
*/
func (service *Service) StartSession(context context.Context, userID string) (string, *Session, error) {
	token, err := service.GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}

	session, err := service.CreateSession(context, token, userID)
	if err != nil {
		return "", nil, err
	}

	return token, session, nil
}

/*
ValidateSessionToken resolves a session cookie into its session and user.

Description: The authentication decision for every request carrying a
session cookie.

  - Unknown or empty token: (nil, nil, nil). Absence of a session is not
    an error condition.
  - Expired session: the row is deleted lazily and the result is
    (nil, nil, nil).
  - Fewer than [SessionRenewalThreshold] remaining: the expiry slides
    forward to a full [SessionTTL] from now before returning.
  - Storage failures: returned as errors so callers fail closed rather
    than treating an outage as "not logged in".

Parameters:
  - context: context.Context
  - token: string (Plaintext cookie value)

Returns:
  - *Session: Active session, or nil when unauthenticated
  - *User: Owning account, or nil when unauthenticated
  - err: Storage failures only
*/
func (service *Service) ValidateSessionToken(context context.Context, token string) (*Session, *User, error) {
	if token == "" {
		return nil, nil, nil
	}

	sessionID := sec.HashToken(token)
	session, user, err := service.sessionRepository.FindWithUser(context, sessionID)
	if err != nil {
		if apperr.IsNotFound(err) {
			// Not found: plain unauthenticated, not a failure.
			return nil, nil, nil
		}
		return nil, nil, err
	}

	now := service.now()

	// Lazy expiry: the row outlived its welcome, remove it on sight.
	if !session.ExpiresAt.After(now) {
		if err := service.sessionRepository.Delete(context, sessionID); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}

	// Sliding renewal keeps active subscribers logged in indefinitely.
	if session.ExpiresAt.Sub(now) < SessionRenewalThreshold {
		session.ExpiresAt = now.Add(SessionTTL)
		if err := service.sessionRepository.UpdateExpiry(context, sessionID, session.ExpiresAt); err != nil {
			return nil, nil, err
		}
	}

	return session, user, nil
}

/*
InvalidateSession removes the session behind a cookie value.

Description: Idempotent; invalidating an unknown or already-removed token
succeeds silently.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: Storage failures
*/
func (service *Service) InvalidateSession(context context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := service.sessionRepository.Delete(context, sec.HashToken(token)); err != nil {
		return fmt.Errorf("auth_service_invalidate_failed: %w", err)
	}

	return nil
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new subscriber.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

/*
Register validates, hashes, and persists a brand new user account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Verify email uniqueness. Return a client-safe Conflict err. A store
	// outage must surface as a failure, not as "email free".
	_, err := service.userRepository.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}
	if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuidv7.New(),
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleMember,
		IsVerified:   false,
		IsActive:     true,
	}

	// Persist the user to the database
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	// Generate and store a verification token in Redis as an async-ready side effect
	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err == nil {
		_ = service.verificationTokenRepository.Set(context, token, user.ID, VerificationTokenTTL)
		// TODO: hand the token to the digest mailer once its queue lands
	}

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	SessionToken string
	Session      *Session
	User         *User
}

/*
Login validates user credentials and establishes a browser session.

Description: Verifies identity, performs constant-time password comparison,
applies the failed-attempt lockout, and issues a fresh session token.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: Unauthorized, Forbidden (lockout), or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// If the user does not exist: generic message to prevent enumeration.
	// Only NotFound means "no such account"; anything else is a store
	// failure and must not masquerade as bad credentials.
	user, err := service.userRepository.FindByEmail(context, input.Email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("Invalid login credentials")
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// Deactivated accounts cannot log in regardless of credentials.
	if !user.IsActive {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Enforce the lockout window before touching the password hash.
	now := service.now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		return nil, apperr.Forbidden("Account temporarily locked due to failed login attempts")
	}

	// Accounts created purely through OAuth carry no password credential.
	if user.PasswordHash == "" {
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Verify password hash using constant-time comparison in bcrypt to prevent timing attacks
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		if _, recordErr := service.userRepository.RecordLoginFailure(context, user.ID, MaxFailedLogins, LockoutDuration); recordErr != nil {
			return nil, fmt.Errorf("auth_service_record_failure_failed: %w", recordErr)
		}
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// Success clears the counter and stamps lastlogin.
	if err := service.userRepository.RecordLoginSuccess(context, user.ID); err != nil {
		return nil, fmt.Errorf("auth_service_record_success_failed: %w", err)
	}

	// Establish the browser session
	token, session, err := service.StartSession(context, user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginSession{
		SessionToken: token,
		Session:      session,
		User:         user,
	}, nil
}

/*
Logout invalidates the user's active session.

Description: Idempotent; a stale or unknown cookie still logs out cleanly.

Parameters:
  - context: context.Context
  - sessionToken: string

Returns:
  - err: Storage failures
*/
func (service *Service) Logout(context context.Context, sessionToken string) error {
	return service.InvalidateSession(context, sessionToken)
}

// # Access Tokens

/*
IssueAccessToken exchanges a valid session for a signed JWT.

Description: Programmatic API clients present the short-lived JWT instead of
the session cookie on /api/v1 routes.

Parameters:
  - context: context.Context
  - sessionToken: string

Returns:
  - string: Signed JWT
  - *User: Token subject
  - err: Unauthorized or signing failures
*/
func (service *Service) IssueAccessToken(context context.Context, sessionToken string) (string, *User, error) {
	_, user, err := service.ValidateSessionToken(context, sessionToken)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, apperr.Unauthorized("Authentication required")
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, string(user.Role), user.IsVerified, AccessTokenTTL,
	)
	if err != nil {
		return "", nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	return accessToken, user, nil
}

// # Password Recovery

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a secure token and saves it to Redis.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Discovery token
  - err: Generation errors
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {
	// Look up user.
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	// Generate reset token
	token, err := sec.GenerateSecureToken(ResetTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	// Save to Redis
	if err := service.resetTokenRepository.Set(context, token, user.ID, ResetTokenTTL); err != nil {
		return "", fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	return token, nil
}

/*
ResetPassword completes the forgot-password flow.

Description: Verifies the token, hashes the new password, updates the DB,
and deletes all active sessions for security cleanup.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: Validation or update failures
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) error {

	// Retrieve the userID associated with the reset token from Redis
	userID, err := service.resetTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Hash the new password securely
	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	// Update the user's password in persistent storage
	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	// Security Cleanup: every existing session dies with the old password
	_ = service.sessionRepository.DeleteAllForUser(context, userID)

	// Delete the used token from Redis
	_ = service.resetTokenRepository.Delete(context, token)

	return nil
}

/*
GetUser loads the account behind an authenticated identity.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *User: Hydrated entity
  - err: NotFound or storage failures
*/
func (service *Service) GetUser(context context.Context, userID string) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

/*
PurgeExpiredSessions physically removes every session past its expiry.

Description: Validation already treats expired sessions as absent; this is
the storage-reclamation sweep behind the admin endpoint and the background
worker.

Parameters:
  - context: context.Context

Returns:
  - err: Storage failures
*/
func (service *Service) PurgeExpiredSessions(context context.Context) error {
	if err := service.sessionRepository.DeleteExpired(context); err != nil {
		return fmt.Errorf("auth_service_session_purge_failed: %w", err)
	}
	return nil
}

/*
ResendVerification stages a fresh email verification token.

Description: Mirrors the enrollment side effect for users whose original
verification email never arrived. Unknown addresses and already-verified
accounts succeed silently so the endpoint cannot be used for enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - string: Staged token, empty when nothing was staged
  - err: Generation or storage failures
*/
func (service *Service) ResendVerification(context context.Context, email string) (string, error) {
	user, err := service.userRepository.FindByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("auth_service_resend_lookup_failed: %w", err)
	}

	if user.IsVerified {
		return "", nil
	}

	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_verification_token_failed: %w", err)
	}

	if err := service.verificationTokenRepository.Set(context, token, user.ID, VerificationTokenTTL); err != nil {
		return "", fmt.Errorf("auth_service_save_verification_token_failed: %w", err)
	}
	// TODO: hand the token to the digest mailer once its queue lands

	return token, nil
}

/*
VerifyEmail confirms a user's email address using a secure token.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - err: Database or resolution errors
*/
func (service *Service) VerifyEmail(context context.Context, token string) error {

	// Retrieve the user ID associated with the verification token from Redis
	userID, err := service.verificationTokenRepository.Get(context, token)
	if err != nil {
		return err
	}

	// Update the user's status to verified in persistent storage
	if err := service.userRepository.MarkVerified(context, userID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	// Cleanup the used verification token from Redis
	_ = service.verificationTokenRepository.Delete(context, token)

	return nil
}
