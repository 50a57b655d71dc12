// Package storage is the pgx persistence layer for the booking service.
package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrCapacityReached means a worker activation would exceed the location's
// active-worker cap.
var ErrCapacityReached = errors.New("active worker capacity reached")

// Postgres error codes the service reacts to.
const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

// IsConflict reports whether err is the calendar exclusion constraint firing:
// two committed intervals for the same worker and day would overlap. Under
// concurrent booking this is an expected outcome, not a system failure.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeExclusionViolation
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
