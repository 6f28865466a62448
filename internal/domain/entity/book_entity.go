package entity

import "time"

// Book is a catalog entry. AvailableCopies is a stored counter that must
// always equal TotalCopies minus the number of open borrows of the book.
type Book struct {
	ID              string
	Title           string
	Author          string
	Year            *int
	ISBN            *string
	Description     *string
	CoverURL        string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OnLoan returns how many copies are currently borrowed.
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
