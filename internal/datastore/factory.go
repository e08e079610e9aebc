package datastore

import (
	"context"
	"fmt"
	"time"

	"sysconfd/internal/config"

	"go.uber.org/zap"
)

// New opens the startup datastore described by cfg and migrates it
func New(cfg *config.DatastoreConfig, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid datastore config: %w", err)
	}

	// Run migrations on a dedicated connection, the migrator closes it
	if cfg.AutoMigrate {
		if err := runMigrations(cfg, logger); err != nil {
			logger.Error("Failed to run migrations", zap.Error(err))
			return nil, err
		}
	}

	db, err := newInstance(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize datastore: %w", err)
	}

	return NewStore(db, logger), nil
}

// newInstance opens the configured driver
func newInstance(cfg *config.DatastoreConfig, logger *zap.Logger) (*Database, error) {
	opts := Options{
		MaxOpenConns:    cfg.MaxConnections,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		QueryTimeout:    cfg.QueryTimeout,
	}

	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteDatabase(cfg.DSN, opts, logger)
	case "mysql":
		return NewMySQLDatabase(cfg.DSN, opts, logger)
	case "postgres":
		return NewPostgresDatabase(cfg.DSN, opts, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// runMigrations brings the schema up to date
func runMigrations(cfg *config.DatastoreConfig, logger *zap.Logger) error {
	db, err := newInstance(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection for migrations: %w", err)
	}

	migrator, err := NewMigrator(db.Unwrap(), cfg.Driver, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Error("Failed to close migrator", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return migrator.Up(ctx)
}
