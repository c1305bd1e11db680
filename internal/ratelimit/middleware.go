// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package ratelimit

import (
	"math"
	"net/http"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
	"github.com/filingdigest/filingdigest/internal/platform/constants"
	"github.com/filingdigest/filingdigest/internal/platform/middleware"
	"github.com/filingdigest/filingdigest/internal/platform/respond"
)

// KeyFunc derives the limiter key from the incoming request.
type KeyFunc func(*http.Request) string

// CostFunc derives the request cost from the incoming request.
type CostFunc func(*http.Request) int

// ByClientIP keys the limiter on the caller's IP address.
func ByClientIP(request *http.Request) string {
	return middleware.RealIP(request)
}

// ScopedByClientIP prefixes the client IP with a route scope so separate
// endpoints never share a window.
func ScopedByClientIP(scope string) KeyFunc {
	return func(request *http.Request) string {
		return WindowKey(scope, middleware.RealIP(request))
	}
}

// CostByMethod weights mutating requests heavier than reads.
func CostByMethod(request *http.Request) int {
	switch request.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return constants.GlobalGETCost
	default:
		return constants.GlobalPOSTCost
	}
}

// FlatCost charges every request the same amount.
func FlatCost(cost int) CostFunc {
	return func(*http.Request) int {
		return cost
	}
}

/*
Guard wraps a handler chain with a limiter decision.

Parameters:
  - limiter: The limiter making the decision.
  - keyFn: Maps a request to its limiter key.
  - costFn: Maps a request to its cost.

Returns:
  - A middleware that rejects over-limit requests with HTTP 429 and a
    Retry-After header, and forwards everything else untouched.
*/
func Guard(limiter Limiter, keyFn KeyFunc, costFn CostFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			result, err := limiter.Consume(request.Context(), keyFn(request), costFn(request))
			if err != nil {
				respond.Error(writer, request, apperr.Internal(err))
				return
			}

			if !result.Allowed {
				retrySeconds := int(math.Ceil(result.RetryAfter.Seconds()))
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				respond.Error(writer, request, apperr.RateLimited(retrySeconds))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
