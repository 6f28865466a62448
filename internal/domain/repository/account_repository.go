package repository

import (
	"context"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
)

// AccountRepository defines the interface for identity persistence.
type AccountRepository interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	Update(ctx context.Context, a *entity.Account) error
}
