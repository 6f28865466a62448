package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/library-catalog/config"
	"github.com/oksasatya/library-catalog/internal/container"
	"github.com/oksasatya/library-catalog/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/library-catalog/internal/infrastructure/postgres"
	"github.com/oksasatya/library-catalog/pkg/helpers"
)

// app is shared by every subcommand; built in PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var migrationsDir string

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Operate the library catalog database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			a.cfg = config.Load()
			if migrationsDir != "" {
				a.cfg.MigrationsDir = migrationsDir
			}
			a.logger = helpers.NewLogger(a.cfg.AppName+"-libctl", a.cfg.Env, a.cfg.LogLevel)
			for _, w := range a.cfg.Warnings {
				a.logger.Warn(w)
			}
			return a.cfg.Validate()
		},
	}
	root.PersistentFlags().StringVar(&migrationsDir, "migrations", "", "migrations directory (default $MIGRATIONS_DIR)")

	root.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newVerifyCmd(a),
		newReindexCmd(a),
	)
	return root
}

// openContainer connects to the configured store and builds the services.
// The caller must Close the container.
func (a *app) openContainer(ctx context.Context, withSearch bool) (*container.Container, error) {
	if a.cfg.UsesMemoryStore() {
		return nil, fmt.Errorf("libctl needs STORAGE_DRIVER=postgres")
	}
	pool, err := pginfra.NewPool(ctx, a.cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:    a.cfg.DBMaxConns,
		MaxConnLife: a.cfg.DBMaxConnLife,
		AppName:     a.cfg.AppName + "-libctl",
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	opts := []container.Option{container.WithPGPool(pool)}
	if withSearch {
		es, err := helpers.NewESClient(a.cfg.ESAddrs(), a.cfg.ElasticsearchUser, a.cfg.ElasticsearchPass)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		opts = append(opts, container.WithES(es))
	}
	return container.New(a.cfg, a.logger, pginfra.NewUnitOfWork(pool), opts...), nil
}

// memoryContainer is used by --dry-run to exercise seeding without a database.
func (a *app) memoryContainer() *container.Container {
	return container.New(a.cfg, a.logger, memory.NewStore())
}
