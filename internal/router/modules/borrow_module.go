package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
)

// BorrowModule wires the borrow lifecycle. Readers may borrow and return
// for themselves; the handler enforces ownership.
type BorrowModule struct {
	Handler *handlers.BorrowHandler
	Notify  *handlers.NotificationHandler
	Guard   Guard
}

func NewBorrowModule(h *handlers.BorrowHandler, notify *handlers.NotificationHandler, g Guard) *BorrowModule {
	return &BorrowModule{Handler: h, Notify: notify, Guard: g}
}

func (m *BorrowModule) Register(rg *gin.RouterGroup) {
	borrows := rg.Group("/borrows")
	borrows.Use(m.Guard.Authenticated()...)
	{
		borrows.POST("", m.Handler.Create)
		borrows.POST("/:id/return", m.Handler.Return)
	}

	admin := borrows.Group("")
	admin.Use(m.Guard.Admin())
	{
		admin.GET("", m.Handler.List)
		admin.GET("/overdue", m.Handler.ListOverdue)
		admin.POST("/overdue/notify", m.Notify.NotifyOverdue)
		admin.GET("/:id", m.Handler.Get)
	}
}
