package postgres

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
)

type BorrowRepository struct {
	db DBTX
}

func NewBorrowRepository(db DBTX) *BorrowRepository {
	return &BorrowRepository{db: db}
}

const borrowColumns = `id, reader_id, book_id, borrowed_at, due_at, returned_at`

func scanBorrow(row pgx.Row) (*entity.BorrowRecord, error) {
	b := &entity.BorrowRecord{}
	if err := row.Scan(&b.ID, &b.ReaderID, &b.BookID, &b.BorrowedAt, &b.DueAt, &b.ReturnedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BorrowRepository) collect(rows pgx.Rows, err error) ([]entity.BorrowRecord, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.BorrowRecord{}
	for rows.Next() {
		b, err := scanBorrow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BorrowRepository) Create(ctx context.Context, b *entity.BorrowRecord) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO borrows (reader_id, book_id, borrowed_at, due_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, b.ReaderID, b.BookID, b.BorrowedAt, b.DueAt)

	return mapErr(row.Scan(&b.ID), "borrow")
}

func (r *BorrowRepository) GetByID(ctx context.Context, id string) (*entity.BorrowRecord, error) {
	b, err := scanBorrow(r.db.QueryRow(ctx, `SELECT `+borrowColumns+` FROM borrows WHERE id = $1`, id))
	return b, mapErr(err, "borrow")
}

func (r *BorrowRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.BorrowRecord, error) {
	b, err := scanBorrow(r.db.QueryRow(ctx, `SELECT `+borrowColumns+` FROM borrows WHERE id = $1 FOR UPDATE`, id))
	return b, mapErr(err, "borrow")
}

func (r *BorrowRepository) MarkReturned(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.Exec(ctx, `
		UPDATE borrows
		SET returned_at = $2
		WHERE id = $1 AND returned_at IS NULL
	`, id, at)
	if err != nil {
		return false, mapErr(err, "borrow")
	}
	return res.RowsAffected() == 1, nil
}

func (r *BorrowRepository) ListOpenByReader(ctx context.Context, readerID string) ([]entity.BorrowRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+borrowColumns+`
		FROM borrows
		WHERE reader_id = $1 AND returned_at IS NULL
		ORDER BY due_at, borrowed_at, id
	`, readerID)
	out, err := r.collect(rows, err)
	return out, mapErr(err, "reader")
}

func (r *BorrowRepository) count(ctx context.Context, q string, arg string) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, q, arg).Scan(&n); err != nil {
		return 0, mapErr(err, "borrow")
	}
	return n, nil
}

func (r *BorrowRepository) CountOpenByReader(ctx context.Context, readerID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM borrows WHERE reader_id = $1 AND returned_at IS NULL`, readerID)
}

func (r *BorrowRepository) CountOpenByBook(ctx context.Context, bookID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM borrows WHERE book_id = $1 AND returned_at IS NULL`, bookID)
}

func (r *BorrowRepository) CountByBook(ctx context.Context, bookID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM borrows WHERE book_id = $1`, bookID)
}

func (r *BorrowRepository) CountByReader(ctx context.Context, readerID string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM borrows WHERE reader_id = $1`, readerID)
}

func (r *BorrowRepository) List(ctx context.Context, f repository.BorrowFilter, p repository.Page) ([]entity.BorrowRecord, error) {
	p = p.Normalize()

	var (
		where []string
		args  []any
	)
	if f.ReaderID != "" {
		args = append(args, f.ReaderID)
		where = append(where, "reader_id = $"+strconv.Itoa(len(args)))
	}
	if f.BookID != "" {
		args = append(args, f.BookID)
		where = append(where, "book_id = $"+strconv.Itoa(len(args)))
	}
	if f.OpenOnly {
		where = append(where, "returned_at IS NULL")
	}

	q := `SELECT ` + borrowColumns + ` FROM borrows`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, p.Limit, p.Offset())
	q += ` ORDER BY borrowed_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	out, err := r.collect(r.db.Query(ctx, q, args...))
	return out, mapErr(err, "borrow")
}

func (r *BorrowRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]entity.BorrowRecord, error) {
	if limit <= 0 {
		limit = repository.DefaultPageLimit
	}
	out, err := r.collect(r.db.Query(ctx, `
		SELECT `+borrowColumns+`
		FROM borrows
		WHERE returned_at IS NULL AND due_at < $1
		ORDER BY due_at, id
		LIMIT $2
	`, now, limit))
	return out, mapErr(err, "borrow")
}

var _ repository.BorrowRepository = (*BorrowRepository)(nil)
