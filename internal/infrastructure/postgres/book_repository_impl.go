package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

type BookRepository struct {
	db DBTX
}

func NewBookRepository(db DBTX) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, title, author, year, isbn, description, cover_url,
	total_copies, available_copies, created_at, updated_at`

func scanBook(row pgx.Row) (*entity.Book, error) {
	b := &entity.Book{}
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.ISBN, &b.Description, &b.CoverURL,
		&b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BookRepository) Create(ctx context.Context, b *entity.Book) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO books (title, author, year, isbn, description, cover_url, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, b.Title, b.Author, b.Year, b.ISBN, b.Description, b.CoverURL, b.TotalCopies, b.AvailableCopies)

	return mapErr(row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt), "book")
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (*entity.Book, error) {
	b, err := scanBook(r.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id))
	return b, mapErr(err, "book")
}

func (r *BookRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Book, error) {
	b, err := scanBook(r.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, id))
	return b, mapErr(err, "book")
}

func (r *BookRepository) List(ctx context.Context, p repository.Page) ([]entity.Book, error) {
	p = p.Normalize()
	rows, err := r.db.Query(ctx, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, p.Limit, p.Offset())
	if err != nil {
		return nil, mapErr(err, "book")
	}
	defer rows.Close()

	out := make([]entity.Book, 0, p.Limit)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, mapErr(err, "book")
		}
		out = append(out, *b)
	}
	return out, mapErr(rows.Err(), "book")
}

func (r *BookRepository) Update(ctx context.Context, b *entity.Book) error {
	b.UpdatedAt = time.Now().UTC()

	res, err := r.db.Exec(ctx, `
		UPDATE books
		SET title = $1, author = $2, year = $3, isbn = $4, description = $5, cover_url = $6,
		    total_copies = $7, available_copies = $8, updated_at = $9
		WHERE id = $10
	`, b.Title, b.Author, b.Year, b.ISBN, b.Description, b.CoverURL,
		b.TotalCopies, b.AvailableCopies, b.UpdatedAt, b.ID)
	if err != nil {
		return mapErr(err, "book")
	}
	if res.RowsAffected() == 0 {
		return mapErr(errNoRows, "book")
	}
	return nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "book")
	}
	if res.RowsAffected() == 0 {
		return mapErr(errNoRows, "book")
	}
	return nil
}

func (r *BookRepository) DecrementAvailable(ctx context.Context, id string) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = now()
		WHERE id = $1 AND available_copies > 0
	`, id)
	if err != nil {
		return false, mapErr(err, "book")
	}
	return res.RowsAffected() == 1, nil
}

func (r *BookRepository) IncrementAvailable(ctx context.Context, id string) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = now()
		WHERE id = $1 AND available_copies < total_copies
	`, id)
	if err != nil {
		return false, mapErr(err, "book")
	}
	return res.RowsAffected() == 1, nil
}

var _ repository.BookRepository = (*BookRepository)(nil)
