package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

type ReaderService struct {
	UoW repo.UnitOfWork
}

func NewReaderService(uow repo.UnitOfWork) *ReaderService {
	return &ReaderService{UoW: uow}
}

type ReaderInput struct {
	FirstName string
	LastName  string
	Email     *string
	Phone     *string
	Address   *string
}

// ReaderPatch updates only the non-nil fields.
type ReaderPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Address   *string
}

func checkName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > 100 {
		return "", invalid("%s must be 1..100 characters", field)
	}
	return v, nil
}

func checkEmail(e *string) (*string, error) {
	if e == nil {
		return nil, nil
	}
	v := strings.ToLower(strings.TrimSpace(*e))
	if len(v) > 255 {
		return nil, invalid("email must be at most 255 characters")
	}
	if err := validation.Var(v, "email"); err != nil {
		return nil, invalid("email is not valid")
	}
	return &v, nil
}

func checkMax(field string, v *string, n int) error {
	if v != nil && len(*v) > n {
		return invalid("%s must be at most %d characters", field, n)
	}
	return nil
}

func buildReader(in ReaderInput) (*entity.Reader, error) {
	first, err := checkName("first_name", in.FirstName)
	if err != nil {
		return nil, err
	}
	last, err := checkName("last_name", in.LastName)
	if err != nil {
		return nil, err
	}
	email, err := checkEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := checkMax("phone", in.Phone, 20); err != nil {
		return nil, err
	}
	if err := checkMax("address", in.Address, 500); err != nil {
		return nil, err
	}
	return &entity.Reader{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Phone:     in.Phone,
		Address:   in.Address,
	}, nil
}

// CreateReader registers a walk-in reader with no login account.
func (s *ReaderService) CreateReader(ctx context.Context, in ReaderInput) (*entity.Reader, error) {
	r, err := buildReader(in)
	if err != nil {
		return nil, err
	}
	err = s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		return st.Readers.Create(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ReaderService) GetReader(ctx context.Context, id string) (*entity.Reader, error) {
	var out *entity.Reader
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Readers.GetByID(ctx, id)
		return err
	})
	return out, err
}

// GetReaderByAccount resolves the profile linked to a login account.
func (s *ReaderService) GetReaderByAccount(ctx context.Context, accountID string) (*entity.Reader, error) {
	var out *entity.Reader
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Readers.GetByAccountID(ctx, accountID)
		return err
	})
	return out, err
}

func (s *ReaderService) ListReaders(ctx context.Context, p repo.Page) ([]entity.Reader, error) {
	var out []entity.Reader
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Readers.List(ctx, p.Normalize())
		return err
	})
	return out, err
}

func (s *ReaderService) UpdateReader(ctx context.Context, id string, patch ReaderPatch) (*entity.Reader, error) {
	var out *entity.Reader
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		r, err := st.Readers.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.FirstName != nil {
			if r.FirstName, err = checkName("first_name", *patch.FirstName); err != nil {
				return err
			}
		}
		if patch.LastName != nil {
			if r.LastName, err = checkName("last_name", *patch.LastName); err != nil {
				return err
			}
		}
		if patch.Email != nil {
			if r.Email, err = checkEmail(patch.Email); err != nil {
				return err
			}
		}
		if patch.Phone != nil {
			if err := checkMax("phone", patch.Phone, 20); err != nil {
				return err
			}
			r.Phone = patch.Phone
		}
		if patch.Address != nil {
			if err := checkMax("address", patch.Address, 500); err != nil {
				return err
			}
			r.Address = patch.Address
		}
		if err := st.Readers.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// DeleteReader refuses to delete a reader that appears in the borrow ledger.
func (s *ReaderService) DeleteReader(ctx context.Context, id string) error {
	return s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		if _, err := st.Readers.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := st.Borrows.CountByReader(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: reader has %d borrow records", apperr.ErrConflict, n)
		}
		return st.Readers.Delete(ctx, id)
	})
}
