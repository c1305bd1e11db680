// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLimiter returns canned decisions and records what it was asked.
type scriptedLimiter struct {
	result   Result
	lastKey  string
	lastCost int
}

func (limiter *scriptedLimiter) Check(_ context.Context, key string, cost int) (Result, error) {
	limiter.lastKey = key
	limiter.lastCost = cost
	return limiter.result, nil
}

func (limiter *scriptedLimiter) Consume(_ context.Context, key string, cost int) (Result, error) {
	limiter.lastKey = key
	limiter.lastCost = cost
	return limiter.result, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
}

func TestGuard_AllowsUnderLimit(t *testing.T) {
	limiter := &scriptedLimiter{result: Result{Allowed: true, Remaining: 42}}
	handler := Guard(limiter, ByClientIP, CostByMethod)(okHandler())

	request := httptest.NewRequest(http.MethodGet, "/api/v1/filings", nil)
	request.RemoteAddr = "203.0.113.9:4821"
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "203.0.113.9", limiter.lastKey)
	assert.Equal(t, 1, limiter.lastCost)
}

func TestGuard_WeightsWritesHeavier(t *testing.T) {
	limiter := &scriptedLimiter{result: Result{Allowed: true, Remaining: 42}}
	handler := Guard(limiter, ByClientIP, CostByMethod)(okHandler())

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	request.RemoteAddr = "203.0.113.9:4821"
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 3, limiter.lastCost)
}

func TestGuard_RejectsWithRetryAfter(t *testing.T) {
	limiter := &scriptedLimiter{result: Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: 2500 * time.Millisecond,
	}}
	handler := Guard(limiter, ByClientIP, CostByMethod)(okHandler())

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	// 2.5s rounds up so the client never retries too early.
	assert.Equal(t, "3", recorder.Header().Get("Retry-After"))
}

func TestGuard_RetryAfterNeverBelowOneSecond(t *testing.T) {
	limiter := &scriptedLimiter{result: Result{Allowed: false, RetryAfter: 50 * time.Millisecond}}
	handler := Guard(limiter, ByClientIP, CostByMethod)(okHandler())

	request := httptest.NewRequest(http.MethodGet, "/api/v1/filings", nil)
	recorder := httptest.NewRecorder()

	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
	assert.Equal(t, "1", recorder.Header().Get("Retry-After"))
}

func TestScopedByClientIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	request.Header.Set("X-Real-IP", "198.51.100.7")

	key := ScopedByClientIP("login")(request)
	assert.Equal(t, "login:198.51.100.7", key)
}
