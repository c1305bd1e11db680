// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

package validate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
	"github.com/filingdigest/filingdigest/internal/platform/validate"
)

/*
TestValidator_Success verifies that a fully valid chain produces no error.
*/
func TestValidator_Success(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "reader@example.com").
		Email("email", "reader@example.com").
		MinLen("password", "correct-horse", 8)

	assert.NoError(t, v.Err())
	assert.False(t, v.HasErrors())
}

/*
TestValidator_CollectsAllFailures verifies that failures accumulate instead of
short-circuiting at the first broken rule.
*/
func TestValidator_CollectsAllFailures(t *testing.T) {
	v := &validate.Validator{}
	v.Required("email", "  ").
		Email("email", "not-an-email").
		MinLen("password", "short", 8)

	err := v.Err()
	require.Error(t, err)

	var appError *apperr.AppError
	require.True(t, errors.As(err, &appError))
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
	assert.Len(t, appError.Details, 3)
}

/*
TestValidator_UUID checks acceptance of v4/v7 UUIDs and rejection of junk.
*/
func TestValidator_UUID(t *testing.T) {
	valid := &validate.Validator{}
	valid.UUID("id", "0190a6a4-2f84-7cde-a3bf-0242ac120002")
	assert.NoError(t, valid.Err())

	invalid := &validate.Validator{}
	invalid.UUID("id", "not-a-uuid")
	assert.Error(t, invalid.Err())
}

/*
TestValidator_OneOf verifies membership checks against a closed set.
*/
func TestValidator_OneOf(t *testing.T) {
	ok := &validate.Validator{}
	ok.OneOf("provider", "github", "github", "google", "x")
	assert.NoError(t, ok.Err())

	bad := &validate.Validator{}
	bad.OneOf("provider", "facebook", "github", "google", "x")
	assert.Error(t, bad.Err())
}
