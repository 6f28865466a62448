package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/pkg/response"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

type ReaderHandler struct {
	Svc    *application.ReaderService
	Logger *logrus.Logger
}

func NewReaderHandler(svc *application.ReaderService, logger *logrus.Logger) *ReaderHandler {
	return &ReaderHandler{Svc: svc, Logger: logger}
}

type createReaderRequest struct {
	FirstName string  `json:"first_name" binding:"required,notblank,max=100"`
	LastName  string  `json:"last_name" binding:"required,notblank,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,phone"`
	Address   *string `json:"address" binding:"omitempty,max=500"`
}

type updateReaderRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,notblank,max=100"`
	LastName  *string `json:"last_name" binding:"omitempty,notblank,max=100"`
	Email     *string `json:"email" binding:"omitempty,email,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,phone"`
	Address   *string `json:"address" binding:"omitempty,max=500"`
}

// Create POST /api/readers
func (h *ReaderHandler) Create(c *gin.Context) {
	var req createReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	r, err := h.Svc.CreateReader(c.Request.Context(), application.ReaderInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, toReader(r), "reader created", nil)
}

// Get GET /api/readers/:id
func (h *ReaderHandler) Get(c *gin.Context) {
	r, err := h.Svc.GetReader(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toReader(r), "reader", nil)
}

// List GET /api/readers?page=&limit=
func (h *ReaderHandler) List(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	p := q.page()
	readers, err := h.Svc.ListReaders(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toReaders(readers), "readers", pageMeta(p, len(readers)))
}

// Update PUT /api/readers/:id
func (h *ReaderHandler) Update(c *gin.Context) {
	var req updateReaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	r, err := h.Svc.UpdateReader(c.Request.Context(), c.Param("id"), application.ReaderPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, toReader(r), "reader updated", nil)
}

// Delete DELETE /api/readers/:id
func (h *ReaderHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteReader(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"deleted": true}, "reader deleted", nil)
}
