package handlers

import (
	"time"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/response"
)

type pageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

func (q pageQuery) page() repo.Page {
	return repo.Page{Page: q.Page, Limit: q.Limit}.Normalize()
}

func pageMeta(p repo.Page, count int) response.PageMeta {
	return response.NewPageMeta(p.Page, p.Limit, count)
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccount(a *entity.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Role: string(a.Role), IsActive: a.IsActive, CreatedAt: a.CreatedAt}
}

type bookResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Year            *int      `json:"year"`
	ISBN            *string   `json:"isbn"`
	Description     *string   `json:"description"`
	CoverURL        string    `json:"cover_url,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBook(b *entity.Book) bookResponse {
	return bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		Year:            b.Year,
		ISBN:            b.ISBN,
		Description:     b.Description,
		CoverURL:        b.CoverURL,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toBooks(in []entity.Book) []bookResponse {
	out := make([]bookResponse, 0, len(in))
	for i := range in {
		out = append(out, toBook(&in[i]))
	}
	return out
}

type readerResponse struct {
	ID        string    `json:"id"`
	AccountID *string   `json:"account_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toReader(r *entity.Reader) readerResponse {
	return readerResponse{
		ID:        r.ID,
		AccountID: r.AccountID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toReaders(in []entity.Reader) []readerResponse {
	out := make([]readerResponse, 0, len(in))
	for i := range in {
		out = append(out, toReader(&in[i]))
	}
	return out
}

type borrowResponse struct {
	ID         string     `json:"id"`
	ReaderID   string     `json:"reader_id"`
	BookID     string     `json:"book_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at"`
	Status     string     `json:"status"`
	Overdue    bool       `json:"overdue"`
}

func toBorrow(b *entity.BorrowRecord, now time.Time) borrowResponse {
	return borrowResponse{
		ID:         b.ID,
		ReaderID:   b.ReaderID,
		BookID:     b.BookID,
		BorrowedAt: b.BorrowedAt,
		DueAt:      b.DueAt,
		ReturnedAt: b.ReturnedAt,
		Status:     string(b.Status()),
		Overdue:    b.IsOverdue(now),
	}
}

func toBorrows(in []entity.BorrowRecord, now time.Time) []borrowResponse {
	out := make([]borrowResponse, 0, len(in))
	for i := range in {
		out = append(out, toBorrow(&in[i], now))
	}
	return out
}
