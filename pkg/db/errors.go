package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks for
// the constraint text. The sqlite test driver phrases the violation
// differently from Postgres, so the message spellings are checked too.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraintName == "" || string(pqErr.Constraint) == constraintName
	}

	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
