// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import (
	"context"
	"time"
)

// # User Data Access

// LoginFailure is the post-increment lockout state after a failed attempt.
type LoginFailure struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID, including its linked
		OAuth profiles.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email, including its
		linked OAuth profiles.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByOAuthProfile returns the account owning the (provider, providerID)
		identity pair.

		Parameters:
		  - context: context.Context
		  - provider: string
		  - providerID: string

		Returns:
		  - *User: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByOAuthProfile(context context.Context, provider, providerID string) (*User, error)

	/*
		Create persists a brand-new user account together with any OAuth
		profiles it carries, atomically.

		A unique violation on (provider, providerid) or email surfaces as an
		error the caller can detect with dberr.IsUniqueViolation.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		AppendOAuthProfile links one more external identity to an existing
		account. It never overwrites a profile already owned elsewhere; a
		conflicting pair surfaces as a unique-violation error.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - profile: OAuthProfile

		Returns:
		  - error: Persistence failures
	*/
	AppendOAuthProfile(context context.Context, userID string, profile OAuthProfile) error

	/*
		UpdatePassword replaces only the user's password hash.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID, newHash string) error

	/*
		MarkVerified updates the user's status to isverified = true.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID string) error

	/*
		RecordLoginSuccess clears the failure counter, unlocks the account,
		and stamps lastlogin.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	RecordLoginSuccess(context context.Context, userID string) error

	/*
		RecordLoginFailure atomically increments the failure counter and locks
		the account for lockFor once the counter reaches maxAttempts.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - maxAttempts: int
		  - lockFor: time.Duration

		Returns:
		  - LoginFailure: Post-increment counter and lock state
		  - error: Persistence failures
	*/
	RecordLoginFailure(context context.Context, userID string, maxAttempts int, lockFor time.Duration) (LoginFailure, error)
}

// # Session Data Access

// SessionRepository defines the data access contract for browser sessions.
type SessionRepository interface {

	/*
		Create persists a new session row.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindWithUser resolves a session ID into the session and its owning
		account in one indexed join.

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - *Session: Hydrated session
		  - *User: Owning account
		  - error: Database retrieval failures
	*/
	FindWithUser(context context.Context, sessionID string) (*Session, *User, error)

	/*
		UpdateExpiry moves a session's expiration forward (sliding renewal).

		Parameters:
		  - context: context.Context
		  - sessionID: string
		  - expiresAt: time.Time

		Returns:
		  - error: Persistence failures
	*/
	UpdateExpiry(context context.Context, sessionID string, expiresAt time.Time) error

	/*
		Delete removes a session row. Deleting an absent session is not an
		error (idempotent logout).

		Parameters:
		  - context: context.Context
		  - sessionID: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, sessionID string) error

	/*
		DeleteAllForUser removes every session belonging to the userID.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteAllForUser(context context.Context, userID string) error

	/*
		DeleteExpired physically removes sessions whose ExpiresAt is in the past.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Persistence failures
	*/
	DeleteExpired(context context.Context) error
}

// # Volatile Data Access

// ResetTokenRepository defines the contract for storing volatile password reset tokens.
type ResetTokenRepository interface {

	/*
		Set stores a reset token associated with a userID for a limited duration.

		Parameters:
		  - context: context.Context
		  - token: string
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	/*
		Get retrieves the userID associated with a given reset token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: Retrieval failures
	*/
	Get(context context.Context, token string) (string, error)

	/*
		Delete removes a reset token after successful use.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, token string) error
}

// VerificationTokenRepository defines the contract for storing volatile email verification tokens.
type VerificationTokenRepository interface {

	/*
		Set stores a verification token associated with a userID.

		Parameters:
		  - context: context.Context
		  - token: string
		  - userID: string
		  - ttl: time.Duration

		Returns:
		  - error: Persistence failures
	*/
	Set(context context.Context, token string, userID string, ttl time.Duration) error

	/*
		Get retrieves the userID associated with a given verification token.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - string: UserID
		  - error: Retrieval failures
	*/
	Get(context context.Context, token string) (string, error)

	/*
		Delete removes a verification token after successful use.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - error: Persistence failures
	*/
	Delete(context context.Context, token string) error
}
