package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

type ReaderRepository struct {
	db DBTX
}

func NewReaderRepository(db DBTX) *ReaderRepository {
	return &ReaderRepository{db: db}
}

const readerColumns = `id, account_id, first_name, last_name, email, phone, address, created_at, updated_at`

func scanReader(row pgx.Row) (*entity.Reader, error) {
	rd := &entity.Reader{}
	if err := row.Scan(&rd.ID, &rd.AccountID, &rd.FirstName, &rd.LastName, &rd.Email, &rd.Phone,
		&rd.Address, &rd.CreatedAt, &rd.UpdatedAt); err != nil {
		return nil, err
	}
	return rd, nil
}

func (r *ReaderRepository) Create(ctx context.Context, rd *entity.Reader) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO readers (account_id, first_name, last_name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, rd.AccountID, rd.FirstName, rd.LastName, rd.Email, rd.Phone, rd.Address)

	return mapErr(row.Scan(&rd.ID, &rd.CreatedAt, &rd.UpdatedAt), "reader")
}

func (r *ReaderRepository) GetByID(ctx context.Context, id string) (*entity.Reader, error) {
	rd, err := scanReader(r.db.QueryRow(ctx, `SELECT `+readerColumns+` FROM readers WHERE id = $1`, id))
	return rd, mapErr(err, "reader")
}

func (r *ReaderRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Reader, error) {
	rd, err := scanReader(r.db.QueryRow(ctx, `SELECT `+readerColumns+` FROM readers WHERE id = $1 FOR UPDATE`, id))
	return rd, mapErr(err, "reader")
}

func (r *ReaderRepository) GetByAccountID(ctx context.Context, accountID string) (*entity.Reader, error) {
	rd, err := scanReader(r.db.QueryRow(ctx, `SELECT `+readerColumns+` FROM readers WHERE account_id = $1`, accountID))
	return rd, mapErr(err, "reader")
}

func (r *ReaderRepository) List(ctx context.Context, p repository.Page) ([]entity.Reader, error) {
	p = p.Normalize()
	rows, err := r.db.Query(ctx, `
		SELECT `+readerColumns+`
		FROM readers
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset())
	if err != nil {
		return nil, mapErr(err, "reader")
	}
	defer rows.Close()

	out := make([]entity.Reader, 0, p.Limit)
	for rows.Next() {
		rd, err := scanReader(rows)
		if err != nil {
			return nil, mapErr(err, "reader")
		}
		out = append(out, *rd)
	}
	return out, mapErr(rows.Err(), "reader")
}

func (r *ReaderRepository) Update(ctx context.Context, rd *entity.Reader) error {
	rd.UpdatedAt = time.Now().UTC()

	res, err := r.db.Exec(ctx, `
		UPDATE readers
		SET account_id = $1, first_name = $2, last_name = $3, email = $4, phone = $5, address = $6, updated_at = $7
		WHERE id = $8
	`, rd.AccountID, rd.FirstName, rd.LastName, rd.Email, rd.Phone, rd.Address, rd.UpdatedAt, rd.ID)
	if err != nil {
		return mapErr(err, "reader")
	}
	if res.RowsAffected() == 0 {
		return mapErr(errNoRows, "reader")
	}
	return nil
}

func (r *ReaderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM readers WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "reader")
	}
	if res.RowsAffected() == 0 {
		return mapErr(errNoRows, "reader")
	}
	return nil
}

var _ repository.ReaderRepository = (*ReaderRepository)(nil)
