package datastore

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// NewPostgresDatabase opens a PostgreSQL database
func NewPostgresDatabase(dsn string, opts Options, logger *zap.Logger) (*Database, error) {
	// Add parameters
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}

	d, err := newDatabase("postgres", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	if err := initPostgres(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	return d, nil
}

// initPostgres sets session variables
func initPostgres(d *Database) error {
	vars := []struct {
		name  string
		value string
	}{
		{"timezone", "'UTC'"},
		{"statement_timeout", "'30s'"},
		{"lock_timeout", "'10s'"},
	}

	for _, v := range vars {
		query := fmt.Sprintf("SET %s = %s", v.name, v.value)
		if _, err := d.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to set %s: %w", v.name, err)
		}
	}

	return nil
}
