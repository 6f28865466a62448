package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
)

// BookModule wires catalog routes. Reads need any account, writes need admin.
type BookModule struct {
	Handler *handlers.BookHandler
	Guard   Guard
}

func NewBookModule(h *handlers.BookHandler, g Guard) *BookModule {
	return &BookModule{Handler: h, Guard: g}
}

func (m *BookModule) Register(rg *gin.RouterGroup) {
	books := rg.Group("/books")
	books.Use(m.Guard.Authenticated()...)
	{
		books.GET("", m.Handler.List)
		books.GET("/search", m.Handler.Search)
		books.GET("/:id", m.Handler.Get)
	}

	admin := books.Group("")
	admin.Use(m.Guard.Admin())
	{
		admin.POST("", m.Handler.Create)
		admin.PUT("/:id", m.Handler.Update)
		admin.DELETE("/:id", m.Handler.Delete)
		admin.POST("/:id/cover", m.Handler.UploadCover)
	}
}
