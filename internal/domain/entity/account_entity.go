package entity

import (
	"time"
)

// Role represents an authorization role carried by an account
type Role string

const (
	RoleReader Role = "reader"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleReader || r == RoleAdmin
}

// Account is the aggregate root for identity
// Passwords are stored as bcrypt hashes in PasswordHash field
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Account) IsAdmin() bool { return a.Role == RoleAdmin }
