package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/pkg/mailer"
	"github.com/oksasatya/library-catalog/pkg/response"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

// NotificationHandler queues emails for the email worker.
type NotificationHandler struct {
	Borrows *application.BorrowService
	Readers *application.ReaderService
	Pub     application.Publisher
	Queue   string
	Enabled bool
	Logger  *logrus.Logger
}

func NewNotificationHandler(borrows *application.BorrowService, readers *application.ReaderService, pub application.Publisher, queue string, enabled bool, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{Borrows: borrows, Readers: readers, Pub: pub, Queue: queue, Enabled: enabled, Logger: logger}
}

type readerMessageRequest struct {
	Subject string `json:"subject" binding:"required,notblank,max=200"`
	Text    string `json:"text" binding:"required_without=HTML"`
	HTML    string `json:"html" binding:"required_without=Text"`
}

func (h *NotificationHandler) disabled(c *gin.Context) bool {
	if h.Enabled && h.Pub != nil {
		return false
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": 0, "disabled": true}, "email sending disabled", nil)
	return true
}

// NotifyOverdue POST /api/borrows/overdue/notify
func (h *NotificationHandler) NotifyOverdue(c *gin.Context) {
	if h.disabled(c) {
		return
	}
	n, err := h.Borrows.NotifyOverdue(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": n}, "overdue reminders enqueued", nil)
}

// MessageReader POST /api/readers/:id/message sends a free-form email.
func (h *NotificationHandler) MessageReader(c *gin.Context) {
	var req readerMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	r, err := h.Readers.GetReader(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if r.Email == nil || *r.Email == "" {
		response.Error[any](c, http.StatusConflict, "reader has no email address", gin.H{"code": "conflict"})
		return
	}
	if h.disabled(c) {
		return
	}

	job := mailer.EmailJob{To: *r.Email, Subject: req.Subject, Text: req.Text, HTML: req.HTML}
	if err := h.Pub.PublishJSONTo(c.Request.Context(), h.Queue, job); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("reader_id", r.ID).Warn("failed to publish email job")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "failed to enqueue", nil)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"enqueued": 1}, "email enqueued", nil)
}
