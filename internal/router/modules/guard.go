package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/interface/middleware"
	"github.com/oksasatya/library-catalog/pkg/helpers"
)

// Guard bundles what the modules need to protect their routes.
type Guard struct {
	JWT      *helpers.JWTManager
	Sessions middleware.SessionChecker
	Redis    *redis.Client
	// per minute; zero disables the limit
	IPRate      int
	AccountRate int
}

// Authenticated requires a valid access token and applies per-account and
// per-IP limits. Admins are not limited.
func (g Guard) Authenticated() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Auth(g.JWT, g.Sessions),
		middleware.RateLimit(g.Redis, middleware.PerMinute(g.IPRate), middleware.KeyByIP(), middleware.AllowRole(string(entity.RoleAdmin))),
		middleware.RateLimit(g.Redis, middleware.PerMinute(g.AccountRate), middleware.KeyByAccountID(), middleware.AllowRole(string(entity.RoleAdmin))),
	}
}

func (g Guard) Admin() gin.HandlerFunc {
	return middleware.RequireRole(entity.RoleAdmin)
}

// PerIP limits public endpoints such as login.
func (g Guard) PerIP(limit int) gin.HandlerFunc {
	return middleware.RateLimit(g.Redis, middleware.PerMinute(limit), middleware.KeyByIPAndPath(), nil)
}
