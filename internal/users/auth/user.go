// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package auth implements the user identity and session management layer.

It defines the core domain entities (User, OAuthProfile, Session) and logic
for authentication, authorization, and account lifecycle.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to user identity.
*/
package auth

import (
	"time"

	"github.com/filingdigest/filingdigest/internal/platform/sec"
)

// # Domain Entities

// User represents a registered subscriber of the FilingDigest platform.
//
// An account always carries at least one credential: a password hash, one or
// more linked OAuth profiles, or both. Accounts created through an OAuth
// login start with an empty PasswordHash.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string         `json:"display_name"`
	PhotoURL     string         `json:"photo_url,omitempty"`
	Role         sec.UserRole   `json:"role"`
	IsVerified   bool           `json:"is_verified"`
	IsActive     bool           `json:"is_active"`
	Profiles     []OAuthProfile `json:"profiles,omitempty"`

	// Lockout bookkeeping. LockedUntil is nil while the account is unlocked.
	FailedAttempts int        `json:"-"`
	LockedUntil    *time.Time `json:"-"`
	LastLogin      *time.Time `json:"last_login,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasProvider reports whether the user already carries a profile from the
// named provider.
func (user *User) HasProvider(provider string) bool {
	for _, profile := range user.Profiles {
		if profile.Provider == provider {
			return true
		}
	}
	return false
}

// OAuthProfile is one external identity linked to a user account.
//
// The (Provider, ProviderID) pair is globally unique across all accounts,
// enforced by a database constraint rather than application lookups.
type OAuthProfile struct {
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	LinkedAt    time.Time `json:"linked_at"`
}

// Session represents an active browser session.
//
// The ID is the SHA-256 hex digest of the opaque client token; the plaintext
// token itself is never persisted anywhere.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldDisplayName = "display_name"
	FieldToken       = "token"
	FieldNewPassword = "new_password"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldUser        = "user"
	FieldSession     = "session"
	FieldMessage     = "message"
	FieldProvider    = "provider"
)
