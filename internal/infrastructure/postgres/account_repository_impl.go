package postgres

import (
	"context"
	"time"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, password_hash, role, is_active, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, a *entity.Account) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO accounts (email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, a.Email, a.PasswordHash, string(a.Role), a.IsActive)

	return mapErr(row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt), "account")
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *AccountRepository) getOne(ctx context.Context, q string, arg any) (*entity.Account, error) {
	a := &entity.Account{}
	var role string
	if err := r.db.QueryRow(ctx, q, arg).Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapErr(err, "account")
	}
	a.Role = entity.Role(role)
	return a, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *entity.Account) error {
	a.UpdatedAt = time.Now().UTC()

	res, err := r.db.Exec(ctx, `
		UPDATE accounts
		SET email = $1, password_hash = $2, role = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`, a.Email, a.PasswordHash, string(a.Role), a.IsActive, a.UpdatedAt, a.ID)
	if err != nil {
		return mapErr(err, "account")
	}

	if res.RowsAffected() == 0 {
		return mapErr(errNoRows, "account")
	}

	return nil
}

var _ repository.AccountRepository = (*AccountRepository)(nil)
