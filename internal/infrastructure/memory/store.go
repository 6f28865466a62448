// Package memory is an in-process implementation of the repositories. Units
// of work are serialised behind one mutex and run against a private copy of
// the data that replaces the live copy only when the work succeeds.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

type Store struct {
	mu   sync.Mutex
	data *state
}

type state struct {
	accounts map[string]entity.Account
	books    map[string]entity.Book
	readers  map[string]entity.Reader
	borrows  map[string]entity.BorrowRecord
	now      func() time.Time
}

func NewStore() *Store {
	now := func() time.Time { return time.Now().UTC() }
	return &Store{
		data: &state{
			accounts: map[string]entity.Account{},
			books:    map[string]entity.Book{},
			readers:  map[string]entity.Reader{},
			borrows:  map[string]entity.BorrowRecord{},
			now:      now,
		},
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts: make(map[string]entity.Account, len(s.accounts)),
		books:    make(map[string]entity.Book, len(s.books)),
		readers:  make(map[string]entity.Reader, len(s.readers)),
		borrows:  make(map[string]entity.BorrowRecord, len(s.borrows)),
		now:      s.now,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.readers {
		c.readers[k] = v
	}
	for k, v := range s.borrows {
		c.borrows[k] = v
	}
	return c
}

func (s *state) stores() repository.Stores {
	return repository.Stores{
		Accounts: &accountRepo{st: s},
		Books:    &bookRepo{st: s},
		Readers:  &readerRepo{st: s},
		Borrows:  &borrowRepo{st: s},
	}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(ctx, work.stores()); err != nil {
		return err
	}
	s.data = work
	return nil
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", apperr.ErrNotFound, what)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrConflict}, args...)...)
}

var _ repository.UnitOfWork = (*Store)(nil)
