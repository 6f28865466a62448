package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

type CatalogService struct {
	UoW    repo.UnitOfWork
	Cache  *BookCache
	Logger *logrus.Logger

	GCS       *storage.Client
	GCSBucket string

	Index *BookIndex
}

func NewCatalogService(uow repo.UnitOfWork, cache *BookCache, logger *logrus.Logger) *CatalogService {
	return &CatalogService{UoW: uow, Cache: cache, Logger: logger}
}

// BookInput is the full set of fields for a new book.
type BookInput struct {
	Title       string
	Author      string
	Year        *int
	ISBN        *string
	Description *string
	TotalCopies int
}

// BookPatch updates only the non-nil fields.
type BookPatch struct {
	Title       *string
	Author      *string
	Year        *int
	ISBN        *string
	Description *string
	TotalCopies *int
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalid}, args...)...)
}

func checkTitle(t string) (string, error) {
	t = strings.TrimSpace(t)
	if t == "" || len(t) > 500 {
		return "", invalid("title must be 1..500 characters")
	}
	return t, nil
}

func checkAuthor(a string) (string, error) {
	a = strings.TrimSpace(a)
	if a == "" || len(a) > 200 {
		return "", invalid("author must be 1..200 characters")
	}
	return a, nil
}

func checkYear(y *int) error {
	if y == nil {
		return nil
	}
	if latest := time.Now().Year() + 10; *y < 1000 || *y > latest {
		return invalid("year must be between 1000 and %d", latest)
	}
	return nil
}

func checkISBN(isbn *string) (*string, error) {
	if isbn == nil {
		return nil, nil
	}
	if !validation.ValidISBN(*isbn) {
		return nil, invalid("isbn must have 10 or 13 characters")
	}
	n := strings.ToUpper(validation.NormalizeISBN(*isbn))
	return &n, nil
}

func checkDescription(d *string) error {
	if d != nil && len(*d) > 2000 {
		return invalid("description must be at most 2000 characters")
	}
	return nil
}

func (s *CatalogService) CreateBook(ctx context.Context, in BookInput) (*entity.Book, error) {
	title, err := checkTitle(in.Title)
	if err != nil {
		return nil, err
	}
	author, err := checkAuthor(in.Author)
	if err != nil {
		return nil, err
	}
	if err := checkYear(in.Year); err != nil {
		return nil, err
	}
	isbn, err := checkISBN(in.ISBN)
	if err != nil {
		return nil, err
	}
	if err := checkDescription(in.Description); err != nil {
		return nil, err
	}
	if in.TotalCopies < 0 {
		return nil, invalid("total_copies must not be negative")
	}

	b := &entity.Book{
		Title:           title,
		Author:          author,
		Year:            in.Year,
		ISBN:            isbn,
		Description:     in.Description,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
	}
	err = s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		return st.Books.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	s.Index.Put(ctx, b)
	return b, nil
}

// GetBook reads through the Redis cache.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*entity.Book, error) {
	if b, ok := s.Cache.Get(ctx, id); ok {
		return b, nil
	}
	stamp := s.Cache.Stamp(ctx, id)
	var b *entity.Book
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		b, err = st.Books.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, b, stamp)
	return b, nil
}

func (s *CatalogService) ListBooks(ctx context.Context, p repo.Page) ([]entity.Book, error) {
	var out []entity.Book
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		var err error
		out, err = st.Books.List(ctx, p.Normalize())
		return err
	})
	return out, err
}

// UpdateBook applies patch under a row lock. A new total_copies keeps the
// loaned copies on loan: available becomes new total minus open borrows.
func (s *CatalogService) UpdateBook(ctx context.Context, id string, patch BookPatch) (*entity.Book, error) {
	var out *entity.Book
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		b, err := st.Books.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			if b.Title, err = checkTitle(*patch.Title); err != nil {
				return err
			}
		}
		if patch.Author != nil {
			if b.Author, err = checkAuthor(*patch.Author); err != nil {
				return err
			}
		}
		if patch.Year != nil {
			if err := checkYear(patch.Year); err != nil {
				return err
			}
			b.Year = patch.Year
		}
		if patch.ISBN != nil {
			if b.ISBN, err = checkISBN(patch.ISBN); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			if err := checkDescription(patch.Description); err != nil {
				return err
			}
			b.Description = patch.Description
		}
		if patch.TotalCopies != nil {
			total := *patch.TotalCopies
			if total < 0 {
				return invalid("total_copies must not be negative")
			}
			open, err := st.Borrows.CountOpenByBook(ctx, id)
			if err != nil {
				return err
			}
			if total < open {
				return fmt.Errorf("%w: %d copies are on loan, total_copies cannot drop to %d", apperr.ErrConflict, open, total)
			}
			b.TotalCopies = total
			b.AvailableCopies = total - open
		}
		if err := st.Books.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, id)
	s.Index.Put(ctx, out)
	return out, nil
}

// DeleteBook refuses to delete a book that appears in the borrow ledger.
func (s *CatalogService) DeleteBook(ctx context.Context, id string) error {
	err := s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		if _, err := st.Books.GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := st.Borrows.CountByBook(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: book has %d borrow records", apperr.ErrConflict, n)
		}
		return st.Books.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, id)
	s.Index.Remove(ctx, id)
	return nil
}

// UploadCover stores the image in GCS and records its public URL. The
// previous cover object, if any, is removed afterwards.
func (s *CatalogService) UploadCover(ctx context.Context, id string, r io.Reader, filename, contentType string) (*entity.Book, error) {
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, fmt.Errorf("%w: cover storage is not configured", apperr.ErrUnavailable)
	}
	ext, ok := helpers.CoverExtension(contentType)
	if !ok {
		return nil, invalid("cover must be a jpeg, png, webp or gif image")
	}
	if _, err := s.GetBook(ctx, id); err != nil {
		return nil, err
	}

	objectPath := helpers.CoverObjectPath(id, uuid.NewString(), ext)
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		s.log().WithError(err).WithFields(logrus.Fields{"book_id": id, "file": filename}).Error("cover upload failed")
		return nil, fmt.Errorf("%w: cover upload failed", apperr.ErrUnavailable)
	}

	var out *entity.Book
	var previous string
	err = s.UoW.Do(ctx, func(ctx context.Context, st repo.Stores) error {
		b, err := st.Books.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = b.CoverURL
		b.CoverURL = url
		if err := st.Books.Update(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		s.dropCover(ctx, url)
		return nil, err
	}
	s.dropCover(ctx, previous)
	s.Cache.Invalidate(ctx, id)
	s.Index.Put(ctx, out)
	return out, nil
}

func (s *CatalogService) dropCover(ctx context.Context, url string) {
	objectPath, ok := helpers.ObjectPathFromURL(s.GCSBucket, url)
	if !ok {
		return
	}
	if err := helpers.DeleteObject(ctx, s.GCS, s.GCSBucket, objectPath); err != nil {
		s.log().WithError(err).WithField("object", objectPath).Warn("cover cleanup failed")
	}
}

// ReindexBooks pushes every book to the search index and returns the count.
func (s *CatalogService) ReindexBooks(ctx context.Context) (int, error) {
	if err := s.Index.Ensure(ctx); err != nil {
		return 0, err
	}
	n := 0
	for page := 1; ; page++ {
		books, err := s.ListBooks(ctx, repo.Page{Page: page, Limit: repo.MaxPageLimit})
		if err != nil {
			return n, err
		}
		for i := range books {
			if err := s.Index.put(ctx, &books[i]); err != nil {
				return n, fmt.Errorf("%w: %v", apperr.ErrUnavailable, err)
			}
			n++
		}
		if len(books) < repo.MaxPageLimit {
			return n, nil
		}
	}
}

// SearchBooks queries the search index. Without one it returns an empty
// result.
func (s *CatalogService) SearchBooks(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if !s.Index.Enabled() {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	return s.Index.Search(ctx, q, size)
}

func (s *CatalogService) log() *logrus.Logger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}
