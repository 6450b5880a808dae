package services

import (
	"errors"

	"github.com/lib/pq"
)

// pgCondition returns the Postgres condition name of err, e.g.
// "unique_violation", or "" when err did not come from the server.
func pgCondition(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Name()
	}
	return ""
}

func isDuplicateKeyError(err error) bool {
	return pgCondition(err) == "unique_violation"
}

func isForeignKeyError(err error) bool {
	return pgCondition(err) == "foreign_key_violation"
}
