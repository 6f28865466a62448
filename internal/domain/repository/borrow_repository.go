package repository

import (
	"context"
	"time"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

// BorrowFilter narrows List. Empty fields match everything.
type BorrowFilter struct {
	ReaderID string
	BookID   string
	OpenOnly bool
}

// BorrowRepository is the borrow ledger. Records are never deleted.
type BorrowRepository interface {
	Create(ctx context.Context, b *entity.BorrowRecord) error
	GetByID(ctx context.Context, id string) (*entity.BorrowRecord, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.BorrowRecord, error)
	// MarkReturned closes an open record. It reports false when the record
	// is not open (or does not exist) and leaves it untouched.
	MarkReturned(ctx context.Context, id string, at time.Time) (bool, error)

	// ListOpenByReader returns open records ordered by due date, soonest first.
	ListOpenByReader(ctx context.Context, readerID string) ([]entity.BorrowRecord, error)
	CountOpenByReader(ctx context.Context, readerID string) (int, error)
	CountOpenByBook(ctx context.Context, bookID string) (int, error)
	CountByBook(ctx context.Context, bookID string) (int, error)
	CountByReader(ctx context.Context, readerID string) (int, error)
	List(ctx context.Context, f BorrowFilter, p Page) ([]entity.BorrowRecord, error)
	// ListOverdue returns open records due before now, most overdue first.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]entity.BorrowRecord, error)
}
