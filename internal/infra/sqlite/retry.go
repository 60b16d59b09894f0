package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/boddenberg/fintrack-go/internal/infra/resilience"
)

// isRetryableError reports lock contention errors worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// exec runs a write statement, retrying only on lock contention.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res       sql.Result
		permanent error
	)
	err := resilience.RetryWithBackoff(ctx, s.retry, func() error {
		r, err := s.db.ExecContext(ctx, query, args...)
		if err != nil && !isRetryableError(err) {
			permanent = err
			return nil
		}
		res = r
		return err
	})
	if permanent != nil {
		return nil, permanent
	}
	return res, err
}

// affectedOne reports whether exactly one row changed.
func affectedOne(res sql.Result) bool {
	n, err := res.RowsAffected()
	return err == nil && n == 1
}
