package database

import (
	"errors"

	"github.com/lib/pq"
)

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err stems from a PostgreSQL unique
// constraint rejection. The constraint is the authoritative guard against
// concurrent duplicate inserts; callers translate this into domain errors.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
