// Copyright (c) 2026 FilingDigest. All rights reserved.
// Author: dev@filingdigest.app

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/filingdigest/filingdigest/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

/*
Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
It hides internal database details from the client while classifying the error type.

Parameters:
  - err: The raw error returned by the database driver.
  - action: A short label of the failing operation, included in conflict messages.

Returns:
  - error: A classified [apperr.AppError], or nil when err is nil.
*/
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations map to client-facing conflicts
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return apperr.Conflict(action + ": resource already exists")
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(err)
}

/*
IsUniqueViolation reports whether err is a Postgres unique constraint
violation (SQLSTATE 23505). Callers that resolve insert races by retrying
the lookup use this to distinguish losers from genuine failures.
*/
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
