package repository

import (
	"context"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

type ReaderRepository interface {
	Create(ctx context.Context, r *entity.Reader) error
	GetByID(ctx context.Context, id string) (*entity.Reader, error)
	// GetByIDForUpdate locks the reader row, serialising borrows of one reader.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Reader, error)
	GetByAccountID(ctx context.Context, accountID string) (*entity.Reader, error)
	List(ctx context.Context, p Page) ([]entity.Reader, error)
	Update(ctx context.Context, r *entity.Reader) error
	Delete(ctx context.Context, id string) error
}
