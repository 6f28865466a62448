package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
)

// AuthModule wires identity routes.
// Public: POST /auth/register, /auth/login, /auth/refresh
// Protected: GET /auth/me, POST /auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Guard   Guard
}

func NewAuthModule(h *handlers.AuthHandler, g Guard) *AuthModule {
	return &AuthModule{Handler: h, Guard: g}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/register", m.Guard.PerIP(10), m.Handler.Register)
	rg.POST("/auth/login", m.Guard.PerIP(10), m.Handler.Login)
	rg.POST("/auth/refresh", m.Guard.PerIP(60), m.Handler.Refresh)

	auth := rg.Group("/auth")
	auth.Use(m.Guard.Authenticated()...)
	{
		auth.GET("/me", m.Handler.Me)
		auth.POST("/logout", m.Handler.Logout)
	}
}
