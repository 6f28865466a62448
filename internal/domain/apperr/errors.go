// Package apperr holds the error kinds shared by the services and mapped to
// HTTP statuses by the interface layer. Services wrap them with
// fmt.Errorf("%w: ...") so callers can match with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a state precondition does not hold, e.g. no copies
	// are available or the borrow was already returned.
	ErrConflict = errors.New("conflict")
	// ErrPolicyViolation means a business limit would be exceeded.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrInvalid means the input failed domain validation.
	ErrInvalid = errors.New("invalid input")
	// ErrUnauthorized means the caller could not be authenticated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable means an optional backend (search, storage, queue) is
	// not configured or not reachable.
	ErrUnavailable = errors.New("unavailable")
)
