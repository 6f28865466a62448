package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
)

func TestCreateReader(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})

	r, err := f.readers.CreateReader(f.ctx, application.ReaderInput{
		FirstName: " Ann ",
		LastName:  "Lee",
		Email:     strPtr("Ann.Lee@Example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ann", r.FirstName)
	assert.Equal(t, "Ann Lee", r.FullName())
	require.NotNil(t, r.Email)
	assert.Equal(t, "ann.lee@example.com", *r.Email)
	assert.Nil(t, r.AccountID)

	_, err = f.readers.CreateReader(f.ctx, application.ReaderInput{FirstName: "Other", LastName: "Lee", Email: strPtr("ann.lee@example.com")})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestCreateReader_Validation(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})

	_, err := f.readers.CreateReader(f.ctx, application.ReaderInput{FirstName: "", LastName: "Lee"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	for _, email := range []string{"not-an-email", "Ann Lee <ann@example.com>"} {
		_, err = f.readers.CreateReader(f.ctx, application.ReaderInput{FirstName: "Ann", LastName: "Lee", Email: strPtr(email)})
		assert.ErrorIs(t, err, apperr.ErrInvalid, email)
	}

	_, err = f.readers.CreateReader(f.ctx, application.ReaderInput{FirstName: "Ann", LastName: "Lee", Phone: strPtr("012345678901234567890")})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateReader(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	r := f.reader(t, "Ann", nil)

	updated, err := f.readers.UpdateReader(f.ctx, r.ID, application.ReaderPatch{Phone: strPtr("555-0100")})
	require.NoError(t, err)
	assert.Equal(t, "Ann", updated.FirstName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "555-0100", *updated.Phone)

	_, err = f.readers.UpdateReader(f.ctx, "missing", application.ReaderPatch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteReader(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	b := f.book(t, "Dune", 1)
	idle := f.reader(t, "Idle", nil)
	active := f.reader(t, "Active", nil)

	_, err := f.borrows.CreateBorrow(f.ctx, active.ID, b.ID, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, f.readers.DeleteReader(f.ctx, active.ID), apperr.ErrConflict)
	require.NoError(t, f.readers.DeleteReader(f.ctx, idle.ID))

	_, err = f.readers.GetReader(f.ctx, idle.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := f.readers.ListReaders(f.ctx, repo.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
