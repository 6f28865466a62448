package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

// paginate slices an already ordered list.
func paginate[T any](items []T, p repository.Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---- accounts ----

type accountRepo struct{ st *state }

func (r *accountRepo) Create(_ context.Context, a *entity.Account) error {
	for _, existing := range r.st.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return conflict("account already exists (email)")
		}
	}
	now := r.st.now()
	a.ID = uuid.NewString()
	a.CreatedAt, a.UpdatedAt = now, now
	r.st.accounts[a.ID] = *a
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id string) (*entity.Account, error) {
	a, ok := r.st.accounts[id]
	if !ok {
		return nil, notFound("account")
	}
	return &a, nil
}

func (r *accountRepo) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	for _, a := range r.st.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, notFound("account")
}

func (r *accountRepo) Update(_ context.Context, a *entity.Account) error {
	if _, ok := r.st.accounts[a.ID]; !ok {
		return notFound("account")
	}
	for id, existing := range r.st.accounts {
		if id != a.ID && strings.EqualFold(existing.Email, a.Email) {
			return conflict("account already exists (email)")
		}
	}
	a.UpdatedAt = r.st.now()
	r.st.accounts[a.ID] = *a
	return nil
}

// ---- books ----

type bookRepo struct{ st *state }

func (r *bookRepo) checkBook(b *entity.Book) error {
	if b.TotalCopies < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
		return conflict("book violates books_available_copies_bounds")
	}
	if b.ISBN == nil {
		return nil
	}
	for id, existing := range r.st.books {
		if id != b.ID && existing.ISBN != nil && *existing.ISBN == *b.ISBN {
			return conflict("book already exists (isbn)")
		}
	}
	return nil
}

func (r *bookRepo) Create(_ context.Context, b *entity.Book) error {
	if err := r.checkBook(b); err != nil {
		return err
	}
	now := r.st.now()
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	r.st.books[b.ID] = *b
	return nil
}

func (r *bookRepo) GetByID(_ context.Context, id string) (*entity.Book, error) {
	b, ok := r.st.books[id]
	if !ok {
		return nil, notFound("book")
	}
	return &b, nil
}

// GetByIDForUpdate needs no extra locking: the whole unit of work holds the store mutex.
func (r *bookRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Book, error) {
	return r.GetByID(ctx, id)
}

func (r *bookRepo) List(_ context.Context, p repository.Page) ([]entity.Book, error) {
	out := make([]entity.Book, 0, len(r.st.books))
	for _, b := range r.st.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, p), nil
}

func (r *bookRepo) Update(_ context.Context, b *entity.Book) error {
	if _, ok := r.st.books[b.ID]; !ok {
		return notFound("book")
	}
	if err := r.checkBook(b); err != nil {
		return err
	}
	b.UpdatedAt = r.st.now()
	r.st.books[b.ID] = *b
	return nil
}

func (r *bookRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.books[id]; !ok {
		return notFound("book")
	}
	for _, br := range r.st.borrows {
		if br.BookID == id {
			return conflict("book is still referenced (borrows_book_id_fkey)")
		}
	}
	delete(r.st.books, id)
	return nil
}

func (r *bookRepo) DecrementAvailable(_ context.Context, id string) (bool, error) {
	b, ok := r.st.books[id]
	if !ok || b.AvailableCopies <= 0 {
		return false, nil
	}
	b.AvailableCopies--
	b.UpdatedAt = r.st.now()
	r.st.books[id] = b
	return true, nil
}

func (r *bookRepo) IncrementAvailable(_ context.Context, id string) (bool, error) {
	b, ok := r.st.books[id]
	if !ok || b.AvailableCopies >= b.TotalCopies {
		return false, nil
	}
	b.AvailableCopies++
	b.UpdatedAt = r.st.now()
	r.st.books[id] = b
	return true, nil
}

// ---- readers ----

type readerRepo struct{ st *state }

func (r *readerRepo) checkUnique(rd *entity.Reader) error {
	for id, existing := range r.st.readers {
		if id == rd.ID {
			continue
		}
		if rd.AccountID != nil && existing.AccountID != nil && *existing.AccountID == *rd.AccountID {
			return conflict("reader already exists (account_id)")
		}
		if rd.Email != nil && existing.Email != nil && strings.EqualFold(*existing.Email, *rd.Email) {
			return conflict("reader already exists (email)")
		}
	}
	if rd.AccountID != nil {
		if _, ok := r.st.accounts[*rd.AccountID]; !ok {
			return conflict("reader is still referenced (readers_account_id_fkey)")
		}
	}
	return nil
}

func (r *readerRepo) Create(_ context.Context, rd *entity.Reader) error {
	if err := r.checkUnique(rd); err != nil {
		return err
	}
	now := r.st.now()
	rd.ID = uuid.NewString()
	rd.CreatedAt, rd.UpdatedAt = now, now
	r.st.readers[rd.ID] = *rd
	return nil
}

func (r *readerRepo) GetByID(_ context.Context, id string) (*entity.Reader, error) {
	rd, ok := r.st.readers[id]
	if !ok {
		return nil, notFound("reader")
	}
	return &rd, nil
}

func (r *readerRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Reader, error) {
	return r.GetByID(ctx, id)
}

func (r *readerRepo) GetByAccountID(_ context.Context, accountID string) (*entity.Reader, error) {
	for _, rd := range r.st.readers {
		if rd.OwnedBy(accountID) {
			return &rd, nil
		}
	}
	return nil, notFound("reader")
}

func (r *readerRepo) List(_ context.Context, p repository.Page) ([]entity.Reader, error) {
	out := make([]entity.Reader, 0, len(r.st.readers))
	for _, rd := range r.st.readers {
		out = append(out, rd)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, p), nil
}

func (r *readerRepo) Update(_ context.Context, rd *entity.Reader) error {
	if _, ok := r.st.readers[rd.ID]; !ok {
		return notFound("reader")
	}
	if err := r.checkUnique(rd); err != nil {
		return err
	}
	rd.UpdatedAt = r.st.now()
	r.st.readers[rd.ID] = *rd
	return nil
}

func (r *readerRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.readers[id]; !ok {
		return notFound("reader")
	}
	for _, br := range r.st.borrows {
		if br.ReaderID == id {
			return conflict("reader is still referenced (borrows_reader_id_fkey)")
		}
	}
	delete(r.st.readers, id)
	return nil
}

// ---- borrows ----

type borrowRepo struct{ st *state }

func (r *borrowRepo) Create(_ context.Context, b *entity.BorrowRecord) error {
	if _, ok := r.st.readers[b.ReaderID]; !ok {
		return conflict("borrow references a missing reader (borrows_reader_id_fkey)")
	}
	if _, ok := r.st.books[b.BookID]; !ok {
		return conflict("borrow references a missing book (borrows_book_id_fkey)")
	}
	if b.DueAt.Before(b.BorrowedAt) {
		return conflict("borrow violates borrows_due_after_borrow")
	}
	b.ID = uuid.NewString()
	b.ReturnedAt = nil
	r.st.borrows[b.ID] = *b
	return nil
}

func (r *borrowRepo) GetByID(_ context.Context, id string) (*entity.BorrowRecord, error) {
	b, ok := r.st.borrows[id]
	if !ok {
		return nil, notFound("borrow")
	}
	return &b, nil
}

func (r *borrowRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.BorrowRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *borrowRepo) MarkReturned(_ context.Context, id string, at time.Time) (bool, error) {
	b, ok := r.st.borrows[id]
	if !ok || !b.IsOpen() {
		return false, nil
	}
	if at.Before(b.BorrowedAt) {
		return false, conflict("borrow violates borrows_return_after_borrow")
	}
	returned := at
	b.ReturnedAt = &returned
	r.st.borrows[id] = b
	return true, nil
}

func (r *borrowRepo) filter(keep func(b entity.BorrowRecord) bool) []entity.BorrowRecord {
	out := []entity.BorrowRecord{}
	for _, b := range r.st.borrows {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func byDueDate(out []entity.BorrowRecord) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		if !out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowedAt.Before(out[j].BorrowedAt)
		}
		return out[i].ID < out[j].ID
	})
}

func (r *borrowRepo) ListOpenByReader(_ context.Context, readerID string) ([]entity.BorrowRecord, error) {
	out := r.filter(func(b entity.BorrowRecord) bool { return b.ReaderID == readerID && b.IsOpen() })
	byDueDate(out)
	return out, nil
}

func (r *borrowRepo) CountOpenByReader(_ context.Context, readerID string) (int, error) {
	return len(r.filter(func(b entity.BorrowRecord) bool { return b.ReaderID == readerID && b.IsOpen() })), nil
}

func (r *borrowRepo) CountOpenByBook(_ context.Context, bookID string) (int, error) {
	return len(r.filter(func(b entity.BorrowRecord) bool { return b.BookID == bookID && b.IsOpen() })), nil
}

func (r *borrowRepo) CountByBook(_ context.Context, bookID string) (int, error) {
	return len(r.filter(func(b entity.BorrowRecord) bool { return b.BookID == bookID })), nil
}

func (r *borrowRepo) CountByReader(_ context.Context, readerID string) (int, error) {
	return len(r.filter(func(b entity.BorrowRecord) bool { return b.ReaderID == readerID })), nil
}

func (r *borrowRepo) List(_ context.Context, f repository.BorrowFilter, p repository.Page) ([]entity.BorrowRecord, error) {
	out := r.filter(func(b entity.BorrowRecord) bool {
		if f.ReaderID != "" && b.ReaderID != f.ReaderID {
			return false
		}
		if f.BookID != "" && b.BookID != f.BookID {
			return false
		}
		return !f.OpenOnly || b.IsOpen()
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowedAt.After(out[j].BorrowedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, p), nil
}

func (r *borrowRepo) ListOverdue(_ context.Context, now time.Time, limit int) ([]entity.BorrowRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultPageLimit
	}
	out := r.filter(func(b entity.BorrowRecord) bool { return b.IsOverdue(now) })
	byDueDate(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ repository.AccountRepository = (*accountRepo)(nil)
	_ repository.BookRepository    = (*bookRepo)(nil)
	_ repository.ReaderRepository  = (*readerRepo)(nil)
	_ repository.BorrowRepository  = (*borrowRepo)(nil)
)
