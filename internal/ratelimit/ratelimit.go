// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

/*
Package ratelimit provides request throttling for the FilingDigest API.

Two limiter implementations share one contract:

  - TokenBucket: a per-process, per-client bucket with weighted request
    costs. Cheap, synchronous, and survives Redis outages.
  - SlidingWindow: a Redis-backed window shared by every API instance,
    used where the limit must hold fleet-wide (login, password reset).

Both are mounted through [Guard], which translates a denial into an
HTTP 429 with a Retry-After header.
*/
package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a limiter decision.
type Result struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the capacity left for this key after the decision.
	Remaining int

	// RetryAfter is the wait before the next request of the same cost can
	// succeed. Zero when Allowed is true.
	RetryAfter time.Duration
}

// Limiter is the shared throttling contract.
//
// # Check vs Consume
//
// Check is a non-mutating preview: it answers "would a request of this cost
// pass right now" without spending capacity. Consume is the real decision
// and deducts capacity when it allows. A denied Consume never mutates state.
type Limiter interface {
	Check(ctx context.Context, key string, cost int) (Result, error)
	Consume(ctx context.Context, key string, cost int) (Result, error)
}
