package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/equisy/equisy-api/internal/domain"
)

const (
	sqlStateUniqueViolation = "23505"
	sqlStateDuplicateSchema = "42P06"
)

// wrapErr prefixes err with op and maps constraint violations to
// domain.ErrConflict.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateDuplicateSchema:
			return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pgErr.Detail)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
