package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/internal/infrastructure/postgres"
)

// failingDB answers every statement with err.
type failingDB struct{ err error }

func (f failingDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

func (f failingDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.err
}

func (f failingDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return failingRow(f)
}

type failingRow struct{ err error }

func (r failingRow) Scan(...any) error { return r.err }

func TestListQueriesMapDriverErrors(t *testing.T) {
	db := failingDB{err: &pgconn.PgError{Code: "23514", ConstraintName: "books_available_bounds"}}
	ctx := context.Background()
	page := repository.Page{Page: 1, Limit: 10}

	books := postgres.NewBookRepository(db)
	readers := postgres.NewReaderRepository(db)
	borrows := postgres.NewBorrowRepository(db)

	calls := map[string]func() error{
		"books.List": func() error {
			_, err := books.List(ctx, page)
			return err
		},
		"readers.List": func() error {
			_, err := readers.List(ctx, page)
			return err
		},
		"borrows.List": func() error {
			_, err := borrows.List(ctx, repository.BorrowFilter{}, page)
			return err
		},
		"borrows.ListOverdue": func() error {
			_, err := borrows.ListOverdue(ctx, time.Now(), 10)
			return err
		},
		"borrows.ListOpenByReader": func() error {
			_, err := borrows.ListOpenByReader(ctx, "00000000-0000-0000-0000-000000000000")
			return err
		},
	}
	for name, call := range calls {
		assert.ErrorIs(t, call(), apperr.ErrConflict, name)
	}
}
