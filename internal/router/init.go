package router

import (
	"context"

	"github.com/oksasatya/library-catalog/internal/container"
	handlers "github.com/oksasatya/library-catalog/internal/interface/http"
	"github.com/oksasatya/library-catalog/internal/router/modules"
)

func healthChecks(c *container.Container) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if c.PGPool != nil {
		checks["postgres"] = c.PGPool.Ping
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

// InitModules builds the handlers from c and registers every module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Cfg

	authHandler := handlers.NewAuthHandler(c.Auth, c.Readers, c.Logger, cfg.CookieDomain, cfg.CookieSecure)
	bookHandler := handlers.NewBookHandler(c.Catalog, c.Logger)
	readerHandler := handlers.NewReaderHandler(c.Readers, c.Logger)
	borrowHandler := handlers.NewBorrowHandler(c.Borrows, c.Readers, c.Logger)
	notifyHandler := handlers.NewNotificationHandler(c.Borrows, c.Readers, c.Publisher(), cfg.RabbitMQEmailQueue, cfg.MailSendEnabled, c.Logger)
	systemHandler := handlers.NewSystemHandler(cfg.AppName, healthChecks(c))

	guard := modules.Guard{
		JWT:         c.JWT,
		Sessions:    c.Auth,
		Redis:       c.Redis,
		IPRate:      cfg.RateLimitPerIP,
		AccountRate: cfg.RateLimitPerAccount,
	}

	r.Engine.GET("/", systemHandler.Welcome)
	r.Add(modules.NewSystemModule(systemHandler))
	r.Add(modules.NewAuthModule(authHandler, guard))
	r.Add(modules.NewBookModule(bookHandler, guard))
	r.Add(modules.NewReaderModule(readerHandler, borrowHandler, notifyHandler, guard))
	r.Add(modules.NewBorrowModule(borrowHandler, notifyHandler, guard))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}
