package entity

import (
	"strings"
	"time"
)

// Reader is a library member profile. AccountID links the profile to the
// identity that may log in on the reader's behalf; at most one profile per account.
type Reader struct {
	ID        string
	AccountID *string
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	Address   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Reader) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// OwnedBy reports whether the profile is linked to the given account.
func (r *Reader) OwnedBy(accountID string) bool {
	return r.AccountID != nil && *r.AccountID == accountID
}
