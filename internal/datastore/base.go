package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Database wraps a connection pool with driver specific query handling
type Database struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
	opts   Options
}

// newDatabase opens and pings a connection pool
func newDatabase(driver, dsn string, opts Options, logger *zap.Logger) (*Database, error) {
	// Set default options
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 4
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 2
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	d := &Database{
		db:     db,
		driver: driver,
		logger: logger,
		opts:   opts,
	}

	ctx, cancel := d.withTimeout(context.Background())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return d, nil
}

// withTimeout applies the query timeout unless ctx already has a deadline
func (d *Database) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.opts.QueryTimeout)
}

// ExecContext executes query and returns result
func (d *Database) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	result, err := d.db.ExecContext(ctx, d.Rebind(query), args...)
	d.logQuery(query, start, err)
	return result, err
}

// QueryContext executes query and returns rows. The caller owns ctx for the
// lifetime of the rows.
func (d *Database) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, d.Rebind(query), args...)
	d.logQuery(query, start, err)
	return rows, err
}

// QueryRowContext executes query and returns row
func (d *Database) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.Rebind(query), args...)
}

// WithTransaction runs fn in a transaction, rolling back when it fails
func (d *Database) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				d.logger.Error("Transaction rollback failed during panic",
					zap.Error(rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// Rebind converts ? placeholders to the driver's bind style
func (d *Database) Rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping verifies the connection
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.db.PingContext(ctx)
}

// Close closes the pool
func (d *Database) Close() error {
	return d.db.Close()
}

// Driver returns the database/sql driver name
func (d *Database) Driver() string {
	return d.driver
}

// Unwrap returns the underlying pool
func (d *Database) Unwrap() *sql.DB {
	return d.db
}

func (d *Database) logQuery(query string, start time.Time, err error) {
	if err != nil {
		d.logger.Debug("Query failed",
			zap.String("query", query),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}
