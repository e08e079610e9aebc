package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// NewSQLiteDatabase opens a SQLite database, creating its directory
func NewSQLiteDatabase(dsn string, opts Options, logger *zap.Logger) (*Database, error) {
	// Ensure the database directory exists
	if err := ensureDBDir(dsn); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Add SQLite parameters
	dsn = addSQLiteParams(dsn)

	d, err := newDatabase("sqlite3", dsn, opts, logger)
	if err != nil {
		return nil, err
	}

	if err := initSQLite(d); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	return d, nil
}

// initSQLite applies connection pragmas
func initSQLite(d *Database) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "FULL"},
		{"foreign_keys", "ON"},
		{"busy_timeout", "5000"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := d.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma.name, err)
		}
	}

	return nil
}

// ensureDBDir ensures database directory exists
func ensureDBDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// addSQLiteParams adds SQLite specific connection parameters
func addSQLiteParams(dsn string) string {
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_synchronous=FULL",
		"_foreign_keys=1",
	}

	query := "?" + strings.Join(params, "&")
	if strings.Contains(dsn, "?") {
		query = "&" + strings.Join(params, "&")
	}

	return dsn + query
}
