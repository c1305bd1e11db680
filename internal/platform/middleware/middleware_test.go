// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filingdigest/filingdigest/internal/platform/middleware"
)

// fakeAppConfig satisfies middleware.AppConfig for CORS tests.
type fakeAppConfig struct {
	development  bool
	extraOrigins []string
}

func (cfg fakeAppConfig) IsDevelopment() bool           { return cfg.development }
func (cfg fakeAppConfig) ExtraAllowedOrigins() []string { return cfg.extraOrigins }

func corsResponse(t *testing.T, cfg fakeAppConfig, origin string) *httptest.ResponseRecorder {
	t.Helper()

	handler := middleware.CORS(cfg)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	if origin != "" {
		request.Header.Set("Origin", origin)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestCORS_DevelopmentAllowsAnyOrigin(t *testing.T) {
	recorder := corsResponse(t, fakeAppConfig{development: true}, "http://localhost:5173")

	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionAllowsAppDomain(t *testing.T) {
	recorder := corsResponse(t, fakeAppConfig{}, "https://app.filingdigest.app")

	assert.Equal(t, "https://app.filingdigest.app", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionHonorsExtraOrigins(t *testing.T) {
	cfg := fakeAppConfig{extraOrigins: []string{"https://preview.filingdigest.dev"}}

	recorder := corsResponse(t, cfg, "https://preview.filingdigest.dev")

	assert.Equal(t, "https://preview.filingdigest.dev", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionRejectsUnknownOrigin(t *testing.T) {
	cfg := fakeAppConfig{extraOrigins: []string{"https://preview.filingdigest.dev"}}

	recorder := corsResponse(t, cfg, "https://evil.example.com")

	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	handler := middleware.CORS(fakeAppConfig{development: true})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the next handler")
	}))

	request := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	request.Header.Set("Origin", "http://localhost:5173")

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
}
