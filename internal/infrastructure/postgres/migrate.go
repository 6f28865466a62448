package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// newMigrator opens a database/sql handle through the pgx stdlib driver.
// The returned close func releases both the migrator and the handle.
func newMigrator(dsn, migrationsDir string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return m, func() { _, _ = m.Close() }, nil
}

// RunMigrations applies every pending up migration.
func RunMigrations(dsn, migrationsDir string, logger *logrus.Logger) error {
	m, closeFn, err := newMigrator(dsn, migrationsDir)
	if err != nil {
		return err
	}
	defer closeFn()

	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

// RollbackMigrations reverts the given number of migrations.
func RollbackMigrations(dsn, migrationsDir string, steps int, logger *logrus.Logger) error {
	m, closeFn, err := newMigrator(dsn, migrationsDir)
	if err != nil {
		return err
	}
	defer closeFn()

	logger.WithField("steps", steps).Info("rolling back migrations...")
	err = m.Steps(-steps)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// MigrationVersion reports the current schema version and dirty flag.
func MigrationVersion(dsn, migrationsDir string) (uint, bool, error) {
	m, closeFn, err := newMigrator(dsn, migrationsDir)
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
