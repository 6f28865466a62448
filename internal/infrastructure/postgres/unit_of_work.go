package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

// UnitOfWork opens one READ COMMITTED transaction per Do call. Row locks
// (SELECT ... FOR UPDATE) and conditional updates inside the repositories
// provide the per-book and per-record atomicity the lending rules need.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	return pgx.BeginTxFunc(ctx, u.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, StoresFor(tx))
	})
}

// StoresFor binds every repository to the same connection or transaction.
func StoresFor(db DBTX) repository.Stores {
	return repository.Stores{
		Accounts: NewAccountRepository(db),
		Books:    NewBookRepository(db),
		Readers:  NewReaderRepository(db),
		Borrows:  NewBorrowRepository(db),
	}
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)
