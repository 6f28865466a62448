package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/library-catalog/config"
	"github.com/oksasatya/library-catalog/internal/container"
	"github.com/oksasatya/library-catalog/internal/domain/repository"
	"github.com/oksasatya/library-catalog/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/library-catalog/internal/infrastructure/postgres"
	"github.com/oksasatya/library-catalog/internal/interface/middleware"
	"github.com/oksasatya/library-catalog/internal/router"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env, cfg.LogLevel)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	var opts []container.Option

	// Storage: Postgres unless the in-memory store is requested
	var uow repository.UnitOfWork
	if cfg.UsesMemoryStore() {
		logger.Warn("STORAGE_DRIVER=memory; data is lost on restart")
		uow = memory.NewStore()
	} else {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
			AppName:     cfg.AppName,
		})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		uow = pginfra.NewUnitOfWork(pool)
		opts = append(opts, container.WithPGPool(pool))
	}

	// Redis: sessions, rate limits, book cache
	if cfg.RedisAddr != "" {
		opts = append(opts, container.WithRedis(helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)))
	}

	// GCS for book covers
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		opts = append(opts, container.WithGCS(gcsClient))
	}

	// Elasticsearch for book search
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		opts = append(opts, container.WithES(es))
	}

	// RabbitMQ for email jobs and borrow events; the API keeps working without it
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.RabbitMQEventsQueue)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable; notifications and borrow events disabled")
		} else {
			opts = append(opts, container.WithRabbitPub(pub))
		}
	}

	c := container.New(cfg, logger, uow, opts...)
	defer c.Close()

	r := newEngine(cfg, logger)

	reg := router.NewRegistry(r)
	router.InitModules(reg, c)
	routes := reg.RegisterAll()
	logger.WithField("routes", len(routes)).Debug("api routes registered")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
		return
	}
	logger.Info("server exited properly")
}

// newEngine builds the Gin engine with the global middleware stack.
func newEngine(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())

	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	if cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(logger))
	}
	return r
}
