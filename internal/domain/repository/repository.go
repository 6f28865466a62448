package repository

import "context"

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// Page is a 1-based page/limit pair as accepted by the list endpoints.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page into sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Stores is the set of repositories bound to a single unit of work.
type Stores struct {
	Accounts AccountRepository
	Books    BookRepository
	Readers  ReaderRepository
	Borrows  BorrowRepository
}

// UnitOfWork runs fn against repositories that share one transaction.
// The transaction commits when fn returns nil and rolls back otherwise,
// so a failed operation never leaves partial effects behind.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
