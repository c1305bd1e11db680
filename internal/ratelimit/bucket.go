// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/filingdigest/filingdigest/internal/platform/constants"
)

// bucketState is the stored view of one client's bucket.
type bucketState struct {
	count      int
	lastRefill time.Time
	lastSeen   time.Time
}

// TokenBucket is an in-process weighted token bucket keyed by client.
//
// # Semantics
//
// Each key owns up to maxTokens tokens. One token is restored per full
// refillInterval elapsed since the last refill, never exceeding maxTokens.
// Consume deducts the request cost if enough tokens are available and
// leaves the state untouched otherwise. All read-modify-write sequences
// hold the bucket mutex, so concurrent requests for the same key can
// never both spend the last token.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucketState

	maxTokens      int
	refillInterval time.Duration

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewTokenBucket builds a bucket limiter with the given capacity and refill rate.
func NewTokenBucket(maxTokens int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		buckets:        make(map[string]*bucketState),
		maxTokens:      maxTokens,
		refillInterval: refillInterval,
		now:            time.Now,
	}
}

// StartCleanup launches the background sweep that drops idle keys so the
// bucket map doesn't grow without bound. It stops when ctx is cancelled.
func (bucket *TokenBucket) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(constants.RateLimitCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bucket.sweep()
			case <-ctx.Done():
				// Stop the goroutine when the application shuts down
				return
			}
		}
	}()
}

// sweep removes keys that have been idle longer than RateLimitClientTTL.
func (bucket *TokenBucket) sweep() {
	deadline := bucket.now().Add(-constants.RateLimitClientTTL)

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	for key, state := range bucket.buckets {
		if state.lastSeen.Before(deadline) {
			delete(bucket.buckets, key)
		}
	}
}

// effectiveTokens computes the refilled token count for a state at instant now.
// It does not mutate the state.
func (bucket *TokenBucket) effectiveTokens(state *bucketState, now time.Time) int {
	elapsed := now.Sub(state.lastRefill)
	if elapsed <= 0 {
		return state.count
	}

	refilled := state.count + int(elapsed/bucket.refillInterval)
	if refilled > bucket.maxTokens {
		return bucket.maxTokens
	}
	return refilled
}

// retryAfter computes how long the caller must wait until a request of the
// given cost could pass, assuming no other traffic on the key.
func (bucket *TokenBucket) retryAfter(state *bucketState, effective, cost int, now time.Time) time.Duration {
	missing := cost - effective
	if missing <= 0 {
		return 0
	}

	// Time until the next whole refill tick, then one interval per further token.
	sinceRefill := now.Sub(state.lastRefill) % bucket.refillInterval
	wait := bucket.refillInterval - sinceRefill
	wait += time.Duration(missing-1) * bucket.refillInterval
	return wait
}

// Check previews a decision without spending tokens.
func (bucket *TokenBucket) Check(_ context.Context, key string, cost int) (Result, error) {
	now := bucket.now()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	state, found := bucket.buckets[key]
	if !found {
		// A fresh key starts with a full bucket.
		allowed := cost <= bucket.maxTokens
		return Result{Allowed: allowed, Remaining: bucket.maxTokens}, nil
	}

	effective := bucket.effectiveTokens(state, now)
	if effective < cost {
		return Result{
			Allowed:    false,
			Remaining:  effective,
			RetryAfter: bucket.retryAfter(state, effective, cost, now),
		}, nil
	}

	return Result{Allowed: true, Remaining: effective}, nil
}

// Consume attempts to spend cost tokens for key.
//
// On success the state is persisted as {effective - cost, now}. On denial
// the stored state is left exactly as it was, apart from the idle tracker.
func (bucket *TokenBucket) Consume(_ context.Context, key string, cost int) (Result, error) {
	now := bucket.now()

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	state, found := bucket.buckets[key]
	if !found {
		state = &bucketState{count: bucket.maxTokens, lastRefill: now}
		bucket.buckets[key] = state
	}
	state.lastSeen = now

	effective := bucket.effectiveTokens(state, now)
	if effective < cost {
		return Result{
			Allowed:    false,
			Remaining:  effective,
			RetryAfter: bucket.retryAfter(state, effective, cost, now),
		}, nil
	}

	state.count = effective - cost
	state.lastRefill = now

	return Result{Allowed: true, Remaining: state.count}, nil
}

// compile-time contract check
var _ Limiter = (*TokenBucket)(nil)
