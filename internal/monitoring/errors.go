package monitoring

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// isUniqueViolation reports whether the error is a Postgres
// unique-constraint violation (SQLSTATE 23505), covering both GORM's
// translated error and the raw driver error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
