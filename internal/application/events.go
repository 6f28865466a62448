package application

import (
	"context"
	"time"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

// Event names published on the borrow events queue.
const (
	EventBorrowCreated  = "borrow.created"
	EventBorrowReturned = "borrow.returned"
)

// Publisher puts JSON messages on a named queue. *helpers.RabbitPublisher
// satisfies it.
type Publisher interface {
	PublishJSONTo(ctx context.Context, queue string, body any) error
}

// BorrowEvent is emitted after a borrow or return has been committed. It
// carries enough of the reader and book for consumers to send receipts
// without reading the database.
type BorrowEvent struct {
	Type       string     `json:"type"`
	BorrowID   string     `json:"borrow_id"`
	ReaderID   string     `json:"reader_id"`
	ReaderName string     `json:"reader_name"`
	ReaderMail string     `json:"reader_email,omitempty"`
	BookID     string     `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func newBorrowEvent(typ string, rec entity.BorrowRecord, reader entity.Reader, book entity.Book, at time.Time) BorrowEvent {
	ev := BorrowEvent{
		Type:       typ,
		BorrowID:   rec.ID,
		ReaderID:   rec.ReaderID,
		ReaderName: reader.FullName(),
		BookID:     rec.BookID,
		BookTitle:  book.Title,
		BorrowedAt: rec.BorrowedAt,
		DueAt:      rec.DueAt,
		ReturnedAt: rec.ReturnedAt,
		OccurredAt: at,
	}
	if reader.Email != nil {
		ev.ReaderMail = *reader.Email
	}
	return ev
}
