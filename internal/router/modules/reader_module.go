package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
)

// ReaderModule wires the reader registry. Only the open-borrows listing is
// reachable by the owning reader; everything else is admin only.
type ReaderModule struct {
	Handler *handlers.ReaderHandler
	Borrows *handlers.BorrowHandler
	Notify  *handlers.NotificationHandler
	Guard   Guard
}

func NewReaderModule(h *handlers.ReaderHandler, borrows *handlers.BorrowHandler, notify *handlers.NotificationHandler, g Guard) *ReaderModule {
	return &ReaderModule{Handler: h, Borrows: borrows, Notify: notify, Guard: g}
}

func (m *ReaderModule) Register(rg *gin.RouterGroup) {
	readers := rg.Group("/readers")
	readers.Use(m.Guard.Authenticated()...)
	{
		readers.GET("/:id/borrows/open", m.Borrows.ListOpenForReader)
	}

	admin := readers.Group("")
	admin.Use(m.Guard.Admin())
	{
		admin.GET("", m.Handler.List)
		admin.POST("", m.Handler.Create)
		admin.GET("/:id", m.Handler.Get)
		admin.PUT("/:id", m.Handler.Update)
		admin.DELETE("/:id", m.Handler.Delete)
		admin.POST("/:id/message", m.Notify.MessageReader)
	}

	me := rg.Group("/me")
	me.Use(m.Guard.Authenticated()...)
	{
		me.GET("/borrows", m.Borrows.ListMine)
	}
}
