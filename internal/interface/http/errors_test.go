package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		apperr.ErrNotFound:        http.StatusNotFound,
		apperr.ErrConflict:        http.StatusConflict,
		apperr.ErrPolicyViolation: http.StatusForbidden,
		apperr.ErrInvalid:         http.StatusBadRequest,
		apperr.ErrUnauthorized:    http.StatusUnauthorized,
		apperr.ErrForbidden:       http.StatusForbidden,
		apperr.ErrUnavailable:     http.StatusServiceUnavailable,
		errors.New("db down"):     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, handlers.StatusFor(err), err.Error())
		assert.Equal(t, want, handlers.StatusFor(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}
