// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
//
// # err Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
// Unique violations are passed through wrapped so callers can detect insert
// races with dberr.IsUniqueViolation.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, email, passwordhash, displayname, photourl, role,
	isverified, isactive, failedattempts, lockeduntil, lastlogin,
	createdat, updatedat`

// scanUser hydrates one account row.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.PhotoURL,
		&user.Role,
		&user.IsVerified,
		&user.IsActive,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// loadProfiles attaches every linked OAuth profile to the user.
func (repository *PostgresUserRepository) loadProfiles(context context.Context, user *User) error {
	const query = `
		SELECT provider, providerid, email, displayname, photourl, linkedat
		FROM users.oauth_profile
		WHERE userid = $1
		ORDER BY linkedat`

	rows, err := repository.pool.Query(context, query, user.ID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_load_profiles_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		profile := OAuthProfile{}
		if err := rows.Scan(
			&profile.Provider,
			&profile.ProviderID,
			&profile.Email,
			&profile.DisplayName,
			&profile.PhotoURL,
			&profile.LinkedAt,
		); err != nil {
			return fmt.Errorf("postgres_user_repo_scan_profile_failed: %w", err)
		}
		user.Profiles = append(user.Profiles, profile)
	}

	return rows.Err()
}

/*
FindByID retrieves a user record by their unique ID.

Description: Primary key resolution for user accounts, profiles included.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: Not found or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE id = $1"

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	if err := repository.loadProfiles(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users.account WHERE email = $1"

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found with this email")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	if err := repository.loadProfiles(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
FindByOAuthProfile resolves an external (provider, providerID) identity pair
into its owning account.

Description: Single indexed lookup through the oauth_profile table joined to
the account row.

Parameters:
  - context: context.Context
  - provider: string
  - providerID: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresUserRepository) FindByOAuthProfile(context context.Context, provider, providerID string) (*User, error) {
	const query = `
		SELECT
			account.id, account.email, account.passwordhash, account.displayname,
			account.photourl, account.role, account.isverified, account.isactive,
			account.failedattempts, account.lockeduntil, account.lastlogin,
			account.createdat, account.updatedat
		FROM users.oauth_profile AS profile
		JOIN users.account AS account ON account.id = profile.userid
		WHERE profile.provider = $1 AND profile.providerid = $2`

	user, err := scanUser(repository.pool.QueryRow(context, query, provider, providerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User not found for this identity")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_oauth_failed: %w", err)
	}

	if err := repository.loadProfiles(context, user); err != nil {
		return nil, err
	}

	return user, nil
}

/*
Create persists a new user record and its OAuth profiles atomically.

Description: Wraps the account insert and profile inserts in one transaction
so a unique violation on any profile rolls back the whole account.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const accountQuery = `
		INSERT INTO users.account (
			id, email, passwordhash, displayname, photourl, role,
			isverified, isactive, failedattempts, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	const profileQuery = `
		INSERT INTO users.oauth_profile (
			userid, provider, providerid, email, displayname, photourl, linkedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	_, err = transaction.Exec(context, accountQuery,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.PhotoURL,
		user.Role,
		user.IsVerified,
		user.IsActive,
		user.FailedAttempts,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	for index := range user.Profiles {
		profile := &user.Profiles[index]
		if profile.LinkedAt.IsZero() {
			profile.LinkedAt = now
		}

		_, err = transaction.Exec(context, profileQuery,
			user.ID,
			profile.Provider,
			profile.ProviderID,
			profile.Email,
			profile.DisplayName,
			profile.PhotoURL,
			profile.LinkedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres_user_repo_create_profile_failed: %w", err)
		}
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_user_repo_create_commit_failed: %w", err)
	}

	return nil
}

/*
AppendOAuthProfile links one more external identity to an existing account.

Parameters:
  - context: context.Context
  - userID: string
  - profile: OAuthProfile

Returns:
  - error: Unique violations or connectivity errors
*/
func (repository *PostgresUserRepository) AppendOAuthProfile(context context.Context, userID string, profile OAuthProfile) error {
	const query = `
		INSERT INTO users.oauth_profile (
			userid, provider, providerid, email, displayname, photourl, linkedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if profile.LinkedAt.IsZero() {
		profile.LinkedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		userID,
		profile.Provider,
		profile.ProviderID,
		profile.Email,
		profile.DisplayName,
		profile.PhotoURL,
		profile.LinkedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_append_profile_failed: %w", err)
	}

	return nil
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
MarkVerified updates the user's status to isverified = true.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Database errors
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID string) error {
	const query = "UPDATE users.account SET isverified = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	return nil
}

/*
RecordLoginSuccess clears lockout state and stamps the login time.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) RecordLoginSuccess(context context.Context, userID string) error {
	const query = `
		UPDATE users.account
		SET failedattempts = 0, lockeduntil = NULL, lastlogin = $2, updatedat = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_record_success_failed: %w", err)
	}
	return nil
}

/*
RecordLoginFailure increments the failure counter and applies the lockout
threshold in a single statement, so concurrent bad attempts cannot lose
increments.

Parameters:
  - context: context.Context
  - userID: string
  - maxAttempts: int
  - lockFor: time.Duration

Returns:
  - LoginFailure: Post-increment counter and lock state
  - error: Execution errors
*/
func (repository *PostgresUserRepository) RecordLoginFailure(context context.Context, userID string, maxAttempts int, lockFor time.Duration) (LoginFailure, error) {
	const query = `
		UPDATE users.account
		SET failedattempts = failedattempts + 1,
		    lockeduntil = CASE
		        WHEN failedattempts + 1 >= $2 THEN $3::timestamptz
		        ELSE lockeduntil
		    END,
		    updatedat = NOW()
		WHERE id = $1
		RETURNING failedattempts, lockeduntil`

	lockUntil := time.Now().Add(lockFor)

	failure := LoginFailure{}
	err := repository.pool.QueryRow(context, query, userID, maxAttempts, lockUntil).Scan(
		&failure.FailedAttempts,
		&failure.LockedUntil,
	)
	if err != nil {
		return LoginFailure{}, fmt.Errorf("postgres_user_repo_record_failure_failed: %w", err)
	}

	return failure, nil
}

// # Session Repository

// PostgresSessionRepository implements the SessionRepository interface.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PostgreSQL implementation of SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

/*
Create persists a new session record into the users.session table.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Storage failures
*/
func (repository *PostgresSessionRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO users.session (id, userid, expiresat, createdat)
		VALUES ($1, $2, $3, $4)`

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindWithUser resolves a session ID into the session and its owning account.

Description: One indexed join; validation must not pay two round trips.
The expiry check stays in the service so expired rows can be lazily deleted.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *Session: Hydrated session metadata
  - *User: Owning account
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresSessionRepository) FindWithUser(context context.Context, sessionID string) (*Session, *User, error) {
	const query = `
		SELECT
			session.id, session.userid, session.expiresat, session.createdat,
			account.id, account.email, account.passwordhash, account.displayname,
			account.photourl, account.role, account.isverified, account.isactive,
			account.failedattempts, account.lockeduntil, account.lastlogin,
			account.createdat, account.updatedat
		FROM users.session AS session
		JOIN users.account AS account ON account.id = session.userid
		WHERE session.id = $1`

	session := &Session{}
	user := &User{}
	err := repository.pool.QueryRow(context, query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.PhotoURL,
		&user.Role,
		&user.IsVerified,
		&user.IsActive,
		&user.FailedAttempts,
		&user.LockedUntil,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperr.NotFound("Session not found")
		}
		return nil, nil, fmt.Errorf("postgres_session_repo_find_failed: %w", err)
	}

	return session, user, nil
}

/*
UpdateExpiry moves a session's expiration forward.

Parameters:
  - context: context.Context
  - sessionID: string
  - expiresAt: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) UpdateExpiry(context context.Context, sessionID string, expiresAt time.Time) error {
	const query = "UPDATE users.session SET expiresat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, sessionID, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_update_expiry_failed: %w", err)
	}
	return nil
}

/*
Delete removes a session row. A missing row is treated as success.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresSessionRepository) Delete(context context.Context, sessionID string) error {
	const query = "DELETE FROM users.session WHERE id = $1"
	_, err := repository.pool.Exec(context, query, sessionID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteAllForUser removes every session belonging to a user.

Description: Security nuking of all active sessions, used after password reset.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Batch deletion failures
*/
func (repository *PostgresSessionRepository) DeleteAllForUser(context context.Context, userID string) error {
	const query = "DELETE FROM users.session WHERE userid = $1"
	_, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_all_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes all sessions that have passed their expiration.

Description: Cleanup task to reclaim storage from stale sessions.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresSessionRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM users.session WHERE expiresat <= NOW()"
	_, err := repository.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_session_repo_delete_expired_failed: %w", err)
	}
	return nil
}
