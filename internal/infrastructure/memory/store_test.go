package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/internal/infrastructure/memory"
)

func seedBook(t *testing.T, s *memory.Store, copies int) entity.Book {
	t.Helper()
	b := entity.Book{Title: "Dune", Author: "Frank Herbert", TotalCopies: copies, AvailableCopies: copies}
	err := s.Do(context.Background(), func(ctx context.Context, st repository.Stores) error {
		return st.Books.Create(ctx, &b)
	})
	require.NoError(t, err)
	return b
}

func getBook(t *testing.T, s *memory.Store, id string) *entity.Book {
	t.Helper()
	var out *entity.Book
	err := s.Do(context.Background(), func(ctx context.Context, st repository.Stores) error {
		var err error
		out, err = st.Books.GetByID(ctx, id)
		return err
	})
	require.NoError(t, err)
	return out
}

func TestDo_RollsBackOnError(t *testing.T) {
	s := memory.NewStore()
	b := seedBook(t, s, 1)

	boom := errors.New("boom")
	err := s.Do(context.Background(), func(ctx context.Context, st repository.Stores) error {
		ok, err := st.Books.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, getBook(t, s, b.ID).AvailableCopies)
}

func TestDo_ReturnedEntitiesAreCopies(t *testing.T) {
	s := memory.NewStore()
	b := seedBook(t, s, 2)

	got := getBook(t, s, b.ID)
	got.AvailableCopies = 0
	assert.Equal(t, 2, getBook(t, s, b.ID).AvailableCopies)
}

func TestDo_CancelledContext(t *testing.T) {
	s := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(context.Context, repository.Stores) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestBooks_ConditionalCounters(t *testing.T) {
	s := memory.NewStore()
	b := seedBook(t, s, 1)
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		ok, err := st.Books.IncrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, ok, "cannot exceed total")

		ok, err = st.Books.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.Books.DecrementAvailable(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, ok, "cannot go below zero")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, getBook(t, s, b.ID).AvailableCopies)
}

func TestBooks_RejectsBrokenBounds(t *testing.T) {
	s := memory.NewStore()
	bad := entity.Book{Title: "Bad", Author: "A", TotalCopies: 1, AvailableCopies: 2}
	err := s.Do(context.Background(), func(ctx context.Context, st repository.Stores) error {
		return st.Books.Create(ctx, &bad)
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestBorrows_MarkReturnedOnce(t *testing.T) {
	s := memory.NewStore()
	b := seedBook(t, s, 1)
	ctx := context.Background()
	now := time.Now().UTC()

	err := s.Do(ctx, func(ctx context.Context, st repository.Stores) error {
		r := entity.Reader{FirstName: "Ann", LastName: "Lee"}
		require.NoError(t, st.Readers.Create(ctx, &r))

		rec := entity.BorrowRecord{ReaderID: r.ID, BookID: b.ID, BorrowedAt: now, DueAt: now.Add(time.Hour)}
		require.NoError(t, st.Borrows.Create(ctx, &rec))

		ok, err := st.Borrows.MarkReturned(ctx, rec.ID, now.Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.Borrows.MarkReturned(ctx, rec.ID, now.Add(2*time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := st.Borrows.CountOpenByReader(ctx, r.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
	require.NoError(t, err)
}

func TestBorrows_RequireExistingReaderAndBook(t *testing.T) {
	s := memory.NewStore()
	now := time.Now().UTC()
	err := s.Do(context.Background(), func(ctx context.Context, st repository.Stores) error {
		rec := entity.BorrowRecord{ReaderID: "r", BookID: "b", BorrowedAt: now, DueAt: now}
		return st.Borrows.Create(ctx, &rec)
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
