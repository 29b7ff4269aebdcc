// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
//
// Row structs mirror the table columns; each repo converts between its row
// type and the core model. Uniqueness constraints are the concurrency
// mechanism: a duplicate insert surfaces as a pq unique_violation which the
// repos map to the matching domain error.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a pq unique_violation, optionally
// on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(errors.Cause(err), &pqErr) {
		return false
	}
	if pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// trapNoRows maps sql.ErrNoRows to the given domain error.
func trapNoRows(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
