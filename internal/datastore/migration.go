package datastore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// NewMigrator creates a migrator for db. Closing the migrator closes db.
func NewMigrator(db *sql.DB, driver string, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations for %s: %w", driver, err)
	}

	var (
		instance *migrate.Migrate
		dbDriver database.Driver
	)

	switch driver {
	case "sqlite":
		dbDriver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
		}
		instance, err = migrate.NewWithInstance("iofs", src, "sqlite3", dbDriver)

	case "mysql":
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql driver: %w", err)
		}
		instance, err = migrate.NewWithInstance("iofs", src, "mysql", dbDriver)

	case "postgres":
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres driver: %w", err)
		}
		instance, err = migrate.NewWithInstance("iofs", src, "postgres", dbDriver)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create migrator instance: %w", err)
	}

	return &Migrator{
		migrate: instance,
		logger:  logger,
	}, nil
}

// Up executes pending migrations
func (m *Migrator) Up(ctx context.Context) error {
	m.logger.Info("Starting migrations...")
	errChan := make(chan error, 1)

	go func() {
		if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			errChan <- fmt.Errorf("migration failed: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("Migration cancelled by context")
		// Up observes GracefulStop between migrations
		m.migrate.GracefulStop <- true
		return fmt.Errorf("migration cancelled: %w", ctx.Err())
	case err := <-errChan:
		if err != nil {
			m.logger.Error("Migration failed", zap.Error(err))
			return err
		}
		m.logger.Info("Migrations completed successfully")
		return nil
	}
}

// Version returns the current migration version
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Close releases the source and the database
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
