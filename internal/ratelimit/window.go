// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/pkg/uuidv7"
)

// SlidingWindow is a Redis-backed limiter shared by every API instance.
//
// # Storage model
//
// Each key maps to a sorted set whose members are individual request slots
// scored by their arrival time in Unix milliseconds. A request is admitted
// while the set holds at most `limit` members younger than `window`.
//
// # Failure policy
//
// The window protects against abuse, not against correctness violations.
// When Redis is unreachable the limiter FAILS OPEN: the request is admitted
// and the incident is logged at Error level. Availability of login and
// password-reset must not hinge on the cache tier.
type SlidingWindow struct {
	client *redis.Client
	logger *slog.Logger

	limit  int
	window time.Duration

	// now is injected for tests; defaults to time.Now.
	now func() time.Time
}

// NewSlidingWindow builds a distributed window limiter.
func NewSlidingWindow(client *redis.Client, logger *slog.Logger, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		client: client,
		logger: logger,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// redisKey namespaces the caller's key under the shared rate-limit prefix.
func (sliding *SlidingWindow) redisKey(key string) string {
	return constants.RedisPrefixRateLimit + key
}

// failOpen logs a Redis failure and admits the request.
func (sliding *SlidingWindow) failOpen(operation string, err error) Result {
	sliding.logger.Error("ratelimit_window_unavailable",
		slog.String("operation", operation),
		slog.Any("error", err),
	)
	return Result{Allowed: true, Remaining: sliding.limit}
}

// Check previews a decision without reserving a slot.
//
// Pruning expired members is not considered a mutation: it only discards
// state that has already aged out of every decision.
func (sliding *SlidingWindow) Check(ctx context.Context, key string, cost int) (Result, error) {
	now := sliding.now()
	redisKey := sliding.redisKey(key)
	windowStart := now.Add(-sliding.window).UnixMilli()

	pipeline := sliding.client.TxPipeline()
	pipeline.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart, 10))
	cardCmd := pipeline.ZCard(ctx, redisKey)

	if _, err := pipeline.Exec(ctx); err != nil {
		return sliding.failOpen("check", err), nil
	}

	count := int(cardCmd.Val())
	if count+cost > sliding.limit {
		return Result{
			Allowed:    false,
			Remaining:  sliding.remaining(count),
			RetryAfter: sliding.retryAfter(ctx, redisKey, now),
		}, nil
	}

	return Result{Allowed: true, Remaining: sliding.remaining(count)}, nil
}

// Consume reserves cost slots for key.
func (sliding *SlidingWindow) Consume(ctx context.Context, key string, cost int) (Result, error) {
	now := sliding.now()
	redisKey := sliding.redisKey(key)
	windowStart := now.Add(-sliding.window).UnixMilli()
	score := float64(now.UnixMilli())

	// Each slot needs a unique member so simultaneous requests never collapse
	// into one sorted-set entry.
	members := make([]redis.Z, cost)
	memberIDs := make([]interface{}, cost)
	for i := 0; i < cost; i++ {
		id := uuidv7.New()
		members[i] = redis.Z{Score: score, Member: id}
		memberIDs[i] = id
	}

	// 1. Prune expired slots, reserve ours, count survivors, refresh the TTL.
	pipeline := sliding.client.TxPipeline()
	pipeline.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(windowStart, 10))
	pipeline.ZAdd(ctx, redisKey, members...)
	cardCmd := pipeline.ZCard(ctx, redisKey)
	pipeline.Expire(ctx, redisKey, sliding.window)

	if _, err := pipeline.Exec(ctx); err != nil {
		return sliding.failOpen("consume", err), nil
	}

	count := int(cardCmd.Val())
	if count > sliding.limit {
		// 2. Roll back our reservation so a denied request spends nothing.
		if err := sliding.client.ZRem(ctx, redisKey, memberIDs...).Err(); err != nil {
			sliding.logger.Error("ratelimit_window_rollback_failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}

		return Result{
			Allowed:    false,
			Remaining:  sliding.remaining(count - cost),
			RetryAfter: sliding.retryAfter(ctx, redisKey, now),
		}, nil
	}

	return Result{Allowed: true, Remaining: sliding.remaining(count)}, nil
}

// remaining clamps leftover capacity at zero.
func (sliding *SlidingWindow) remaining(count int) int {
	left := sliding.limit - count
	if left < 0 {
		return 0
	}
	return left
}

// retryAfter derives the wait from the oldest surviving slot: the window
// frees capacity exactly when that slot ages out.
func (sliding *SlidingWindow) retryAfter(ctx context.Context, redisKey string, now time.Time) time.Duration {
	oldest, err := sliding.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		return sliding.window
	}

	oldestAt := time.UnixMilli(int64(oldest[0].Score))
	wait := oldestAt.Add(sliding.window).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// compile-time contract check
var _ Limiter = (*SlidingWindow)(nil)

// WindowKey builds the canonical per-scope window key, e.g. "login:1.2.3.4".
func WindowKey(scope, client string) string {
	return fmt.Sprintf("%s:%s", scope, client)
}
