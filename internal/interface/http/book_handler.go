package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/pkg/response"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

// maxCoverBytes caps cover uploads at 5 MiB.
const maxCoverBytes = 5 << 20

type BookHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewBookHandler(svc *application.CatalogService, logger *logrus.Logger) *BookHandler {
	return &BookHandler{Svc: svc, Logger: logger}
}

type createBookRequest struct {
	Title       string  `json:"title" binding:"required,notblank,max=500"`
	Author      string  `json:"author" binding:"required,notblank,max=200"`
	Year        *int    `json:"year" binding:"omitempty,min=1000"`
	ISBN        *string `json:"isbn" binding:"omitempty,isbn_loose"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	TotalCopies *int    `json:"total_copies" binding:"omitempty,min=0"`
}

type updateBookRequest struct {
	Title       *string `json:"title" binding:"omitempty,notblank,max=500"`
	Author      *string `json:"author" binding:"omitempty,notblank,max=200"`
	Year        *int    `json:"year" binding:"omitempty,min=1000"`
	ISBN        *string `json:"isbn" binding:"omitempty,isbn_loose"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	TotalCopies *int    `json:"total_copies" binding:"omitempty,min=0"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// Create POST /api/books
func (h *BookHandler) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	total := 1
	if req.TotalCopies != nil {
		total = *req.TotalCopies
	}
	b, err := h.Svc.CreateBook(c.Request.Context(), application.BookInput{
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		ISBN:        req.ISBN,
		Description: req.Description,
		TotalCopies: total,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toBook(b), "book created", nil)
}

// Get GET /api/books/:id
func (h *BookHandler) Get(c *gin.Context) {
	b, err := h.Svc.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBook(b), "book", nil)
}

// List GET /api/books?page=&limit=
func (h *BookHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	p := q.page()
	books, err := h.Svc.ListBooks(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBooks(books), "books", pageMeta(p, len(books)))
}

// Update PUT /api/books/:id
func (h *BookHandler) Update(c *gin.Context) {
	var req updateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	b, err := h.Svc.UpdateBook(c.Request.Context(), c.Param("id"), application.BookPatch{
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		ISBN:        req.ISBN,
		Description: req.Description,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBook(b), "book updated", nil)
}

// Delete DELETE /api/books/:id
func (h *BookHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "book deleted", nil)
}

// Search GET /api/books/search?q=&size=
func (h *BookHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	hits, err := h.Svc.SearchBooks(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}

// UploadCover POST /api/books/:id/cover (multipart field "file")
func (h *BookHandler) UploadCover(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCoverBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing file", gin.H{"file": "is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	b, err := h.Svc.UploadCover(c.Request.Context(), c.Param("id"), f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toBook(b), "cover uploaded", nil)
}
