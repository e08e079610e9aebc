package datastore

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// NewMySQLDatabase opens a MySQL database
func NewMySQLDatabase(dsn string, opts Options, logger *zap.Logger) (*Database, error) {
	// Add parameters
	params := []string{
		"charset=utf8mb4",
		"multiStatements=true",
	}

	if !strings.Contains(dsn, "parseTime=true") {
		params = append(params, "parseTime=true")
	}

	// Append params to DSN
	queryStart := "?"
	if strings.Contains(dsn, "?") {
		queryStart = "&"
	}
	dsn += queryStart + strings.Join(params, "&")

	d, err := newDatabase("mysql", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	if err := initMySQL(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize MySQL: %w", err)
	}

	return d, nil
}

// initMySQL sets session variables
func initMySQL(d *Database) error {
	vars := []struct {
		name  string
		value string
	}{
		{"sql_mode", "'STRICT_ALL_TABLES,NO_ENGINE_SUBSTITUTION'"},
		{"time_zone", "'+00:00'"},
		{"innodb_lock_wait_timeout", "20"},
	}

	for _, v := range vars {
		query := fmt.Sprintf("SET SESSION %s = %s", v.name, v.value)
		if _, err := d.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to set %s: %w", v.name, err)
		}
	}

	return nil
}
