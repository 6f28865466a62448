package application

import (
	"context"

	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
)

// AvailabilityMismatch is a book whose stored counter disagrees with the ledger.
type AvailabilityMismatch struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Total     int    `json:"total_copies"`
	Available int    `json:"available_copies"`
	OpenLoans int    `json:"open_borrows"`
}

// Expected is what available_copies should hold.
func (m AvailabilityMismatch) Expected() int {
	return m.Total - m.OpenLoans
}

// VerifyAvailability checks available == total - open borrows for every
// book, one page per unit of work.
func VerifyAvailability(ctx context.Context, uow repo.UnitOfWork) ([]AvailabilityMismatch, error) {
	out := []AvailabilityMismatch{}
	for page := 1; ; page++ {
		n := 0
		err := uow.Do(ctx, func(ctx context.Context, st repo.Stores) error {
			books, err := st.Books.List(ctx, repo.Page{Page: page, Limit: repo.MaxPageLimit})
			if err != nil {
				return err
			}
			n = len(books)
			for _, b := range books {
				open, err := st.Borrows.CountOpenByBook(ctx, b.ID)
				if err != nil {
					return err
				}
				if b.AvailableCopies != b.TotalCopies-open {
					out = append(out, AvailabilityMismatch{
						BookID:    b.ID,
						Title:     b.Title,
						Total:     b.TotalCopies,
						Available: b.AvailableCopies,
						OpenLoans: open,
					})
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if n < repo.MaxPageLimit {
			return out, nil
		}
	}
}
