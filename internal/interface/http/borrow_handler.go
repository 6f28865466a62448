package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	repo "github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/internal/interface/middleware"
	"github.com/oksasatya/library-catalog/pkg/response"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

type BorrowHandler struct {
	Svc     *application.BorrowService
	Readers *application.ReaderService
	Logger  *logrus.Logger
	Now     func() time.Time
}

func NewBorrowHandler(svc *application.BorrowService, readers *application.ReaderService, logger *logrus.Logger) *BorrowHandler {
	return &BorrowHandler{Svc: svc, Readers: readers, Logger: logger, Now: func() time.Time { return time.Now().UTC() }}
}

type createBorrowRequest struct {
	BookID   string `json:"book_id" binding:"required"`
	ReaderID string `json:"reader_id"`
	LoanDays int    `json:"loan_days" binding:"omitempty,min=1,max=365"`
}

type listBorrowsQuery struct {
	pageQuery
	ReaderID string `form:"reader_id"`
	BookID   string `form:"book_id"`
	OpenOnly bool   `form:"open_only"`
}

type overdueQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

func isAdmin(c *gin.Context) bool {
	return entity.Role(c.GetString(middleware.CtxRoleKey)) == entity.RoleAdmin
}

// ownReaderID resolves the reader profile of the calling account.
func (h *BorrowHandler) ownReaderID(c *gin.Context) (string, error) {
	r, err := h.Readers.GetReaderByAccount(c.Request.Context(), c.GetString(middleware.CtxAccountIDKey))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("%w: account has no reader profile", apperr.ErrForbidden)
		}
		return "", err
	}
	return r.ID, nil
}

// authorizeReader lets admins act for anyone and readers only for themselves.
func (h *BorrowHandler) authorizeReader(c *gin.Context, readerID string) error {
	if isAdmin(c) {
		return nil
	}
	own, err := h.ownReaderID(c)
	if err != nil {
		return err
	}
	if own != readerID {
		return fmt.Errorf("%w: not your reader profile", apperr.ErrForbidden)
	}
	return nil
}

// Create POST /api/borrows
func (h *BorrowHandler) Create(c *gin.Context) {
	var req createBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	readerID := req.ReaderID
	if readerID == "" {
		if isAdmin(c) {
			response.Error[any](c, http.StatusBadRequest, "invalid payload", gin.H{"reader_id": "is required"})
			return
		}
		own, err := h.ownReaderID(c)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		readerID = own
	} else if err := h.authorizeReader(c, readerID); err != nil {
		respondError(c, h.Logger, err)
		return
	}

	var period time.Duration
	if req.LoanDays > 0 {
		period = time.Duration(req.LoanDays) * 24 * time.Hour
	}
	rec, err := h.Svc.CreateBorrow(c.Request.Context(), readerID, req.BookID, period)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toBorrow(rec, h.Now()), "book borrowed", nil)
}

// Return POST /api/borrows/:id/return
func (h *BorrowHandler) Return(c *gin.Context) {
	id := c.Param("id")
	if !isAdmin(c) {
		rec, err := h.Svc.GetBorrow(c.Request.Context(), id)
		if err != nil {
			respondError(c, h.Logger, err)
			return
		}
		if err := h.authorizeReader(c, rec.ReaderID); err != nil {
			respondError(c, h.Logger, err)
			return
		}
	}
	rec, err := h.Svc.ReturnBorrow(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBorrow(rec, h.Now()), "book returned", nil)
}

// Get GET /api/borrows/:id
func (h *BorrowHandler) Get(c *gin.Context) {
	rec, err := h.Svc.GetBorrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBorrow(rec, h.Now()), "borrow", nil)
}

// List GET /api/borrows?reader_id=&book_id=&open_only=&page=&limit=
func (h *BorrowHandler) List(c *gin.Context) {
	var q listBorrowsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	p := q.page()
	recs, err := h.Svc.ListBorrows(c.Request.Context(), repo.BorrowFilter{
		ReaderID: q.ReaderID,
		BookID:   q.BookID,
		OpenOnly: q.OpenOnly,
	}, p)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBorrows(recs, h.Now()), "borrows", pageMeta(p, len(recs)))
}

// ListOpenForReader GET /api/readers/:id/borrows/open
func (h *BorrowHandler) ListOpenForReader(c *gin.Context) {
	readerID := c.Param("id")
	if err := h.authorizeReader(c, readerID); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.listOpen(c, readerID)
}

// ListMine GET /api/me/borrows
func (h *BorrowHandler) ListMine(c *gin.Context) {
	readerID, err := h.ownReaderID(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	h.listOpen(c, readerID)
}

func (h *BorrowHandler) listOpen(c *gin.Context, readerID string) {
	recs, err := h.Svc.ListOpenBorrows(c.Request.Context(), readerID)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBorrows(recs, h.Now()), "open borrows", nil)
}

// ListOverdue GET /api/borrows/overdue?limit=
func (h *BorrowHandler) ListOverdue(c *gin.Context) {
	var q overdueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	recs, err := h.Svc.ListOverdue(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBorrows(recs, h.Now()), "overdue borrows", nil)
}
