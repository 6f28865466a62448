package repository

import (
	"context"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

// BookRepository defines catalog persistence. The availability counter is
// only changed through DecrementAvailable/IncrementAvailable or a full
// Update issued under GetByIDForUpdate.
type BookRepository interface {
	Create(ctx context.Context, b *entity.Book) error
	GetByID(ctx context.Context, id string) (*entity.Book, error)
	// GetByIDForUpdate loads the book and locks its row until the unit of work ends.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Book, error)
	List(ctx context.Context, p Page) ([]entity.Book, error)
	Update(ctx context.Context, b *entity.Book) error
	Delete(ctx context.Context, id string) error

	// DecrementAvailable takes one copy off the shelf. It reports false
	// without changing anything when no copy is available.
	DecrementAvailable(ctx context.Context, id string) (bool, error)
	// IncrementAvailable puts one copy back. It reports false without
	// changing anything when all copies are already on the shelf.
	IncrementAvailable(ctx context.Context, id string) (bool, error)
}
