// Package postgres implements the persistent stores of the service on top of
// PostgreSQL. Short code uniqueness is enforced by a unique index on
// urls.short_code, which is what makes concurrent allocations safe.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}
