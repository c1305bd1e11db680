// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Bucket capacities, window sizes, and per-call costs.
  - Security: JWT issuers and cookie configuration.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "filingdigest-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// ProviderCallTimeout bounds outbound OAuth token-exchange and profile-fetch calls.
	ProviderCallTimeout = 10 * time.Second
)

// # Rate Limiting

const (
	// GlobalBucketMax is the capacity of the per-client in-process token bucket.
	GlobalBucketMax = 100

	// GlobalBucketRefillInterval is the duration after which one token is restored.
	GlobalBucketRefillInterval = 1 * time.Second

	// GlobalGETCost and GlobalPOSTCost weight reads and writes against the bucket.
	GlobalGETCost  = 1
	GlobalPOSTCost = 3

	// SharedWindowLimit and SharedWindowSize bound the distributed sliding window.
	SharedWindowLimit = 100
	SharedWindowSize  = 60 * time.Second

	// LoginWindowLimit caps authentication attempts per client across instances.
	LoginWindowLimit = 10

	// RateLimitCleanupInterval is how often idle bucket entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its bucket is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the standard 'iss' claim in JWTs.
	AuthIssuer = "filingdigest.app"

	// SessionCookieName is the cookie that carries the opaque session token.
	SessionCookieName = "session"

	// SessionCookiePath is the scope of the session cookie.
	SessionCookiePath = "/"
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixResetToken  = "auth:reset_token:"
	RedisPrefixVerifyToken = "auth:verify_token:"
	RedisPrefixRateLimit   = "ratelimit:"
)
