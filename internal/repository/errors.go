package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrUniqueViolation is wrapped into the error returned by a write that hit
// a unique index.
var ErrUniqueViolation = errors.New("unique constraint violated")

// ErrStaleStatus is returned when a status transition finds the row no
// longer in the expected state.
var ErrStaleStatus = errors.New("row is not in the expected status")

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
