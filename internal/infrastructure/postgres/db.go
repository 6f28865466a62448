package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// errNoRows is reported by updates and deletes that matched nothing.
var errNoRows = pgx.ErrNoRows

// Postgres error codes we translate into domain kinds.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidTextRepr     = "22P02"
)

// mapErr converts driver errors into apperr kinds. what names the entity
// for the error message.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s already exists (%s)", apperr.ErrConflict, what, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s is still referenced (%s)", apperr.ErrConflict, what, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s violates %s", apperr.ErrConflict, what, pgErr.ConstraintName)
		case codeInvalidTextRepr:
			// malformed uuid: nothing can match it
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, what)
		}
	}
	return err
}
