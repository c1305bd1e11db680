// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package auth

import "time"

// # Authentication Constraints

const (
	// SessionTTL is the total lifetime of a browser session.
	SessionTTL = 30 * 24 * time.Hour

	// SessionRenewalThreshold triggers sliding renewal: when a validated
	// session has less than this much lifetime left, it is extended to a
	// fresh SessionTTL from now.
	SessionRenewalThreshold = 15 * 24 * time.Hour

	// SessionTokenLength is the byte length of the random session token.
	// 20 bytes encode to a 32-character base32 cookie value.
	SessionTokenLength = 20

	// AccessTokenTTL is the duration a JWT access token remains valid.
	// Earnings-digest API clients exchange their session for one of these.
	AccessTokenTTL = 24 * time.Hour

	// ResetTokenTTL is the duration a password reset token remains valid.
	// Short-lived (1 hour) for security.
	ResetTokenTTL = 1 * time.Hour

	// ResetTokenLength is the byte length of the random password reset token.
	ResetTokenLength = 32

	// VerificationTokenTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32

	// MaxFailedLogins is the number of consecutive bad passwords before the
	// account is temporarily locked.
	MaxFailedLogins = 5

	// LockoutDuration is how long a locked account rejects logins.
	LockoutDuration = 15 * time.Minute
)
