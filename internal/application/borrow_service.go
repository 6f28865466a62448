package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

// DefaultLoanPeriod applies when neither the caller nor the policy sets one.
const DefaultLoanPeriod = 14 * 24 * time.Hour

// LendingPolicy holds the configurable lending rules.
type LendingPolicy struct {
	LoanPeriod time.Duration
	// MaxOpenBorrows caps open borrows per reader; 0 means unlimited.
	MaxOpenBorrows     int
	OverdueNotifyLimit int
}

// BorrowService owns the borrow lifecycle. It is the only writer of
// borrow records and, together with CatalogService.UpdateBook, of a
// book's available copies.
type BorrowService struct {
	UoW    repo.UnitOfWork
	Policy LendingPolicy
	Logger *logrus.Logger

	// Optional collaborators; nil disables them.
	Cache       *BookCache
	Index       *BookIndex
	Publisher   Publisher
	EventsQueue string
	EmailQueue  string
	Branding    templates.Branding

	Now func() time.Time
}

func NewBorrowService(uow repo.UnitOfWork, policy LendingPolicy, logger *logrus.Logger) *BorrowService {
	return &BorrowService{
		UoW:    uow,
		Policy: policy,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *BorrowService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *BorrowService) loanPeriod(requested time.Duration) time.Duration {
	if requested > 0 {
		return requested
	}
	if s.Policy.LoanPeriod > 0 {
		return s.Policy.LoanPeriod
	}
	return DefaultLoanPeriod
}

// CreateBorrow lends one copy of bookID to readerID. The reader row is
// locked first so concurrent borrows by one reader see each other's count;
// the copy is taken with a conditional decrement so the last copy goes to
// exactly one caller.
func (s *BorrowService) CreateBorrow(ctx context.Context, readerID, bookID string, loanPeriod time.Duration) (*entity.BorrowRecord, error) {
	period := s.loanPeriod(loanPeriod)

	var (
		rec    entity.BorrowRecord
		reader entity.Reader
		book   entity.Book
	)
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		r, err := st.Readers.GetByIDForUpdate(ctx, readerID)
		if err != nil {
			return err
		}
		if limit := s.Policy.MaxOpenBorrows; limit > 0 {
			n, err := st.Borrows.CountOpenByReader(ctx, readerID)
			if err != nil {
				return err
			}
			if n >= limit {
				return fmt.Errorf("%w: reader already has %d open borrows (limit %d)", apperr.ErrPolicyViolation, n, limit)
			}
		}
		b, err := st.Books.GetByID(ctx, bookID)
		if err != nil {
			return err
		}
		ok, err := st.Books.DecrementAvailable(ctx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: no copies of %q available", apperr.ErrConflict, b.Title)
		}

		now := s.now()
		rec = entity.BorrowRecord{
			ReaderID:   readerID,
			BookID:     bookID,
			BorrowedAt: now,
			DueAt:      now.Add(period),
		}
		if err := st.Borrows.Create(ctx, &rec); err != nil {
			return err
		}
		if b, err = st.Books.GetByID(ctx, bookID); err != nil {
			return err
		}
		reader, book = *r, *b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, EventBorrowCreated, rec, reader, book)
	return &rec, nil
}

// ReturnBorrow closes an open record and puts the copy back on the shelf.
// Returning twice is a Conflict, never a silent no-op.
func (s *BorrowService) ReturnBorrow(ctx context.Context, borrowID string) (*entity.BorrowRecord, error) {
	var (
		rec    entity.BorrowRecord
		reader entity.Reader
		book   entity.Book
	)
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		b, err := st.Borrows.GetByIDForUpdate(ctx, borrowID)
		if err != nil {
			return err
		}
		if !b.IsOpen() {
			return fmt.Errorf("%w: borrow %s was already returned", apperr.ErrConflict, borrowID)
		}

		now := s.now()
		ok, err := st.Borrows.MarkReturned(ctx, borrowID, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: borrow %s was already returned", apperr.ErrConflict, borrowID)
		}
		ok, err = st.Books.IncrementAvailable(ctx, b.BookID)
		if err != nil {
			return err
		}
		if !ok {
			// counter already at total: the ledger and the counter disagree
			return fmt.Errorf("%w: book %s has no copy on loan to return", apperr.ErrConflict, b.BookID)
		}

		r, err := st.Readers.GetByID(ctx, b.ReaderID)
		if err != nil {
			return err
		}
		bk, err := st.Books.GetByID(ctx, b.BookID)
		if err != nil {
			return err
		}
		returned := now
		b.ReturnedAt = &returned
		rec, reader, book = *b, *r, *bk
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, EventBorrowReturned, rec, reader, book)
	return &rec, nil
}

// ListOpenBorrows returns the reader's open records, soonest due first.
func (s *BorrowService) ListOpenBorrows(ctx context.Context, readerID string) ([]entity.BorrowRecord, error) {
	var out []entity.BorrowRecord
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		if _, err := st.Readers.GetByID(ctx, readerID); err != nil {
			return err
		}
		var err error
		out, err = st.Borrows.ListOpenByReader(ctx, readerID)
		return err
	})
	return out, err
}

func (s *BorrowService) GetBorrow(ctx context.Context, borrowID string) (*entity.BorrowRecord, error) {
	var out *entity.BorrowRecord
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Borrows.GetByID(ctx, borrowID)
		return err
	})
	return out, err
}

func (s *BorrowService) ListBorrows(ctx context.Context, f repo.BorrowFilter, p repo.Page) ([]entity.BorrowRecord, error) {
	var out []entity.BorrowRecord
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Borrows.List(ctx, f, p.Normalize())
		return err
	})
	return out, err
}

// ListOverdue returns open records past their due date, most overdue first.
func (s *BorrowService) ListOverdue(ctx context.Context, limit int) ([]entity.BorrowRecord, error) {
	now := s.now()
	var out []entity.BorrowRecord
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Borrows.ListOverdue(ctx, now, limit)
		return err
	})
	return out, err
}

type overdueNotice struct {
	rec    entity.BorrowRecord
	reader entity.Reader
	book   entity.Book
}

// NotifyOverdue queues one reminder email per overdue borrow whose reader
// has an email address. It returns how many were queued.
func (s *BorrowService) NotifyOverdue(ctx context.Context) (int, error) {
	if s.Publisher == nil || s.EmailQueue == "" {
		return 0, fmt.Errorf("%w: email queue is not configured", apperr.ErrUnavailable)
	}
	now := s.now()

	var notices []overdueNotice
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		recs, err := st.Borrows.ListOverdue(ctx, now, s.Policy.OverdueNotifyLimit)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			r, err := st.Readers.GetByID(ctx, rec.ReaderID)
			if err != nil {
				return err
			}
			if r.Email == nil || *r.Email == "" {
				continue
			}
			b, err := st.Books.GetByID(ctx, rec.BookID)
			if err != nil {
				return err
			}
			notices = append(notices, overdueNotice{rec: rec, reader: *r, book: *b})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range notices {
		job := mailer.EmailJob{
			To:       *n.reader.Email,
			Template: templates.OverdueReminder,
			Data: templates.NewOverdueReminderData(s.Branding, n.reader.FullName(), *n.reader.Email,
				n.book.Title, n.rec.ID, n.rec.BorrowedAt, n.rec.DueAt, now),
		}
		if err := s.Publisher.PublishJSONTo(ctx, s.EmailQueue, job); err != nil {
			s.log().WithError(err).WithField("borrow_id", n.rec.ID).Warn("enqueue overdue reminder failed")
			continue
		}
		sent++
	}
	s.log().WithFields(logrus.Fields{"overdue": len(notices), "queued": sent}).Info("overdue reminders queued")
	return sent, nil
}

// afterCommit runs side effects that must not undo a committed change.
func (s *BorrowService) afterCommit(ctx context.Context, typ string, rec entity.BorrowRecord, reader entity.Reader, book entity.Book) {
	s.Cache.Invalidate(ctx, rec.BookID)
	s.Index.Put(ctx, &book)

	fields := logrus.Fields{"event": typ, "borrow_id": rec.ID, "reader_id": rec.ReaderID, "book_id": rec.BookID}
	s.log().WithFields(fields).Info("borrow lifecycle")

	if s.Publisher == nil || s.EventsQueue == "" {
		return
	}
	ev := newBorrowEvent(typ, rec, reader, book, s.now())
	if err := s.Publisher.PublishJSONTo(ctx, s.EventsQueue, ev); err != nil {
		s.log().WithError(err).WithFields(fields).Warn("publish borrow event failed")
	}
}

func (s *BorrowService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
