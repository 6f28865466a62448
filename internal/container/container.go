package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/config"
	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/mailer/templates"
)

// Container holds the constructed clients and services shared by the
// router modules. Optional clients are nil when not configured.
type Container struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	UoW    repository.UnitOfWork

	PGPool    *pgxpool.Pool
	Redis     *redis.Client
	GCS       *storage.Client
	ES        *elasticsearch.Client
	RabbitPub *helpers.RabbitPublisher
	JWT       *helpers.JWTManager

	Auth    *application.AuthService
	Catalog *application.CatalogService
	Readers *application.ReaderService
	Borrows *application.BorrowService
}

type Option func(*Container)

func WithPGPool(p *pgxpool.Pool) Option               { return func(c *Container) { c.PGPool = p } }
func WithRedis(r *redis.Client) Option                { return func(c *Container) { c.Redis = r } }
func WithGCS(s *storage.Client) Option                { return func(c *Container) { c.GCS = s } }
func WithES(es *elasticsearch.Client) Option          { return func(c *Container) { c.ES = es } }
func WithRabbitPub(p *helpers.RabbitPublisher) Option { return func(c *Container) { c.RabbitPub = p } }

// New wires the services over uow and whatever optional clients opts supply.
func New(cfg *config.Config, logger *logrus.Logger, uow repository.UnitOfWork, opts ...Option) *Container {
	c := &Container{Cfg: cfg, Logger: logger, UoW: uow}
	for _, opt := range opts {
		opt(c)
	}
	c.JWT = helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// keep the interface nil rather than a typed nil pointer
	var pub application.Publisher
	if c.RabbitPub != nil {
		pub = c.RabbitPub
	}
	branding := templates.BrandingFromConfig(cfg)
	cache := application.NewBookCache(c.Redis, cfg.BookCacheTTL, logger)
	index := application.NewBookIndex(c.ES, cfg.ESBooksIndex, logger)

	c.Readers = application.NewReaderService(uow)

	c.Auth = application.NewAuthService(uow, c.JWT, c.Redis, logger)
	c.Auth.Branding = branding
	if cfg.MailSendEnabled {
		c.Auth.Publisher = pub
		c.Auth.EmailQueue = cfg.RabbitMQEmailQueue
	}

	c.Catalog = application.NewCatalogService(uow, cache, logger)
	c.Catalog.GCS, c.Catalog.GCSBucket = c.GCS, cfg.GCSBucket
	c.Catalog.Index = index

	c.Borrows = application.NewBorrowService(uow, application.LendingPolicy{
		LoanPeriod:         cfg.LoanPeriod,
		MaxOpenBorrows:     cfg.MaxOpenBorrows,
		OverdueNotifyLimit: cfg.OverdueNotifyLimit,
	}, logger)
	c.Borrows.Cache = cache
	c.Borrows.Index = index
	c.Borrows.Publisher = pub
	c.Borrows.EventsQueue = cfg.RabbitMQEventsQueue
	c.Borrows.EmailQueue = cfg.RabbitMQEmailQueue
	c.Borrows.Branding = branding

	return c
}

// Publisher returns the queue publisher, or nil when RabbitMQ is not configured.
func (c *Container) Publisher() application.Publisher {
	if c.RabbitPub == nil {
		return nil
	}
	return c.RabbitPub
}

// Close releases the clients the container owns.
func (c *Container) Close() {
	c.RabbitPub.Close()
	if c.GCS != nil {
		_ = c.GCS.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
