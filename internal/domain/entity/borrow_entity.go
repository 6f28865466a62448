package entity

import "time"

// BorrowStatus is the lifecycle state of a BorrowRecord.
// The only transition is Open -> Returned.
type BorrowStatus string

const (
	BorrowOpen     BorrowStatus = "open"
	BorrowReturned BorrowStatus = "returned"
)

// BorrowRecord is a single loan of one copy of a book to a reader.
// It is created open, closed exactly once by a return and never deleted.
type BorrowRecord struct {
	ID         string
	ReaderID   string
	BookID     string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
}

func (b *BorrowRecord) IsOpen() bool { return b.ReturnedAt == nil }

func (b *BorrowRecord) Status() BorrowStatus {
	if b.IsOpen() {
		return BorrowOpen
	}
	return BorrowReturned
}

// IsOverdue is derived, never stored: open and past its due date.
func (b *BorrowRecord) IsOverdue(now time.Time) bool {
	return b.IsOpen() && b.DueAt.Before(now)
}
