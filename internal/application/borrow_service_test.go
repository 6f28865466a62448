package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/internal/infrastructure/memory"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

type published struct {
	queue string
	body  any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) PublishJSONTo(_ context.Context, queue string, body any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{queue: queue, body: body})
	return nil
}

func (p *fakePublisher) on(queue string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []any
	for _, m := range p.msgs {
		if m.queue == queue {
			out = append(out, m.body)
		}
	}
	return out
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	catalog *application.CatalogService
	readers *application.ReaderService
	borrows *application.BorrowService
}

func newFixture(t *testing.T, policy application.LendingPolicy) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := helpers.NewDiscardLogger()
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		catalog: application.NewCatalogService(store, nil, logger),
		readers: application.NewReaderService(store),
		borrows: application.NewBorrowService(store, policy, logger),
	}
}

func strPtr(s string) *string { return &s }

func (f *fixture) book(t *testing.T, title string, copies int) *entity.Book {
	t.Helper()
	b, err := f.catalog.CreateBook(f.ctx, application.BookInput{Title: title, Author: "Some Author", TotalCopies: copies})
	require.NoError(t, err)
	return b
}

func (f *fixture) reader(t *testing.T, first string, email *string) *entity.Reader {
	t.Helper()
	r, err := f.readers.CreateReader(f.ctx, application.ReaderInput{FirstName: first, LastName: "Reader", Email: email})
	require.NoError(t, err)
	return r
}

func (f *fixture) available(t *testing.T, bookID string) int {
	t.Helper()
	b, err := f.catalog.GetBook(f.ctx, bookID)
	require.NoError(t, err)
	return b.AvailableCopies
}

func (f *fixture) assertLedgerConsistent(t *testing.T) {
	t.Helper()
	mismatches, err := application.VerifyAvailability(f.ctx, f.store)
	require.NoError(t, err)
	assert.Empty(t, mismatches, "available copies must equal total minus open borrows")
}

func TestCreateBorrow_LastCopyGoesToOneReader(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b1 := f.book(t, "Dune", 1)
	r1 := f.reader(t, "Ann", nil)
	r2 := f.reader(t, "Bob", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, r1.ID, b1.ID, 0)
	require.NoError(t, err)
	assert.True(t, rec.IsOpen())
	assert.Equal(t, 0, f.available(t, b1.ID))

	_, err = f.borrows.CreateBorrow(f.ctx, r2.ID, b1.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 0, f.available(t, b1.ID))

	open, err := f.borrows.ListOpenBorrows(f.ctx, r2.ID)
	require.NoError(t, err)
	assert.Empty(t, open, "a refused borrow leaves no record")

	_, err = f.borrows.ReturnBorrow(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.available(t, b1.ID))

	_, err = f.borrows.CreateBorrow(f.ctx, r2.ID, b1.ID, 0)
	require.NoError(t, err)
	f.assertLedgerConsistent(t)
}

func TestCreateBorrow_ZeroCopiesIsConflict(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Reference Only", 0)
	r := f.reader(t, "Ann", nil)

	_, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 0, f.available(t, b.ID))

	all, err := f.borrows.ListBorrows(f.ctx, repo.BorrowFilter{}, repo.Page{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateBorrow_NotFound(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 1)
	r := f.reader(t, "Ann", nil)

	_, err := f.borrows.CreateBorrow(f.ctx, "missing-reader", b.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, "missing-book", 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, 1, f.available(t, b.ID))
}

func TestCreateBorrow_DueDateFromPolicyOrRequest(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{LoanPeriod: 7 * 24 * time.Hour})
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.borrows.Now = func() time.Time { return now }
	b := f.book(t, "Dune", 2)
	r := f.reader(t, "Ann", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, now, rec.BorrowedAt)
	assert.Equal(t, now.Add(7*24*time.Hour), rec.DueAt)

	rec, err = f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 3*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, now.Add(3*24*time.Hour), rec.DueAt)
}

func TestCreateBorrow_DefaultLoanPeriod(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 1)
	r := f.reader(t, "Ann", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, application.DefaultLoanPeriod, rec.DueAt.Sub(rec.BorrowedAt))
}

func TestCreateBorrow_PolicyLimit(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{MaxOpenBorrows: 2})
	b := f.book(t, "Dune", 5)
	r := f.reader(t, "Ann", nil)

	first, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)

	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrPolicyViolation)
	assert.Equal(t, 3, f.available(t, b.ID))

	_, err = f.borrows.ReturnBorrow(f.ctx, first.ID)
	require.NoError(t, err)
	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	assert.NoError(t, err, "returning frees a slot under the limit")
}

func TestReturnBorrow_TwiceIsConflict(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 2)
	r := f.reader(t, "Ann", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)

	returned, err := f.borrows.ReturnBorrow(f.ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, entity.BorrowReturned, returned.Status())

	_, err = f.borrows.ReturnBorrow(f.ctx, rec.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 2, f.available(t, b.ID), "a second return must not over-increment")

	_, err = f.borrows.ReturnBorrow(f.ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	f.assertLedgerConsistent(t)
}

func TestCreateBorrow_ConcurrentLastCopy(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 1)

	const n = 16
	readers := make([]*entity.Reader, n)
	for i := range readers {
		readers[i] = f.reader(t, "Reader", nil)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(r *entity.Reader) {
			defer wg.Done()
			_, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, apperr.ErrConflict):
				conflicts++
			}
		}(readers[i])
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 0, f.available(t, b.ID))
	f.assertLedgerConsistent(t)
}

func TestListOpenBorrows_OrderedByDueDate(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 3)
	r := f.reader(t, "Ann", nil)

	long, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 20*24*time.Hour)
	require.NoError(t, err)
	short, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 2*24*time.Hour)
	require.NoError(t, err)
	closed, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 5*24*time.Hour)
	require.NoError(t, err)
	_, err = f.borrows.ReturnBorrow(f.ctx, closed.ID)
	require.NoError(t, err)

	open, err := f.borrows.ListOpenBorrows(f.ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, short.ID, open[0].ID)
	assert.Equal(t, long.ID, open[1].ID)

	_, err = f.borrows.ListOpenBorrows(f.ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListBorrows_Filters(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b1 := f.book(t, "Dune", 2)
	b2 := f.book(t, "Emma", 2)
	r := f.reader(t, "Ann", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b1.ID, 0)
	require.NoError(t, err)
	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, b2.ID, 0)
	require.NoError(t, err)
	_, err = f.borrows.ReturnBorrow(f.ctx, rec.ID)
	require.NoError(t, err)

	all, err := f.borrows.ListBorrows(f.ctx, repo.BorrowFilter{ReaderID: r.ID}, repo.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := f.borrows.ListBorrows(f.ctx, repo.BorrowFilter{ReaderID: r.ID, OpenOnly: true}, repo.Page{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, b2.ID, open[0].BookID)

	byBook, err := f.borrows.ListBorrows(f.ctx, repo.BorrowFilter{BookID: b1.ID}, repo.Page{})
	require.NoError(t, err)
	require.Len(t, byBook, 1)
	assert.Equal(t, rec.ID, byBook[0].ID)
}

func TestListOverdue(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	f.borrows.Now = func() time.Time { return start }
	b := f.book(t, "Dune", 3)
	r := f.reader(t, "Ann", nil)

	late, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 24*time.Hour)
	require.NoError(t, err)
	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 30*24*time.Hour)
	require.NoError(t, err)

	f.borrows.Now = func() time.Time { return start.Add(3 * 24 * time.Hour) }
	overdue, err := f.borrows.ListOverdue(f.ctx, 0)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
	assert.True(t, overdue[0].IsOverdue(start.Add(3*24*time.Hour)))
}

func TestNotifyOverdue(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})

	_, err := f.borrows.NotifyOverdue(f.ctx)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)

	pub := &fakePublisher{}
	f.borrows.Publisher = pub
	f.borrows.EmailQueue = "email"
	f.borrows.Branding = templates.Branding{LibraryName: "City Library"}

	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	f.borrows.Now = func() time.Time { return start }
	b := f.book(t, "Dune", 2)
	withMail := f.reader(t, "Ann", strPtr("ann@example.com"))
	noMail := f.reader(t, "Bob", nil)

	rec, err := f.borrows.CreateBorrow(f.ctx, withMail.ID, b.ID, 24*time.Hour)
	require.NoError(t, err)
	_, err = f.borrows.CreateBorrow(f.ctx, noMail.ID, b.ID, 24*time.Hour)
	require.NoError(t, err)

	f.borrows.Now = func() time.Time { return start.Add(50 * time.Hour) }
	n, err := f.borrows.NotifyOverdue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	jobs := pub.on("email")
	require.Len(t, jobs, 1)
	job, ok := jobs[0].(mailer.EmailJob)
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", job.To)
	assert.Equal(t, templates.OverdueReminder, job.Template)
	assert.Equal(t, rec.ID, job.Data["BorrowID"])
	assert.Equal(t, "Dune", job.Data["BookTitle"])
	assert.Equal(t, "City Library", job.Data["LibraryName"])
	assert.EqualValues(t, 2, job.Data["DaysOverdue"])
}

func TestBorrowLifecyclePublishesEvents(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	pub := &fakePublisher{}
	f.borrows.Publisher = pub
	f.borrows.EventsQueue = "events"

	b := f.book(t, "Dune", 1)
	r := f.reader(t, "Ann", strPtr("ann@example.com"))

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	_, err = f.borrows.ReturnBorrow(f.ctx, rec.ID)
	require.NoError(t, err)

	// refused borrows publish nothing
	_, err = f.borrows.CreateBorrow(f.ctx, r.ID, "missing", 0)
	require.Error(t, err)

	events := pub.on("events")
	require.Len(t, events, 2)

	created := events[0].(application.BorrowEvent)
	assert.Equal(t, application.EventBorrowCreated, created.Type)
	assert.Equal(t, rec.ID, created.BorrowID)
	assert.Equal(t, "Ann Reader", created.ReaderName)
	assert.Equal(t, "ann@example.com", created.ReaderMail)
	assert.Equal(t, "Dune", created.BookTitle)
	assert.Nil(t, created.ReturnedAt)

	returned := events[1].(application.BorrowEvent)
	assert.Equal(t, application.EventBorrowReturned, returned.Type)
	assert.NotNil(t, returned.ReturnedAt)
}

func TestPublishFailureDoesNotUndoBorrow(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	f.borrows.Publisher = &fakePublisher{err: assert.AnError}
	f.borrows.EventsQueue = "events"

	b := f.book(t, "Dune", 1)
	r := f.reader(t, "Ann", nil)

	_, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, b.ID))
}
