// Package datastore persists the startup configuration tree and the
// transaction journal in SQLite, MySQL or PostgreSQL.
package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"sysconfd/internal/types"

	"go.uber.org/zap"
)

// Store is the startup datastore
type Store struct {
	db     *Database
	logger *zap.Logger
}

// NewStore wraps an open database
func NewStore(db *Database, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Empty reports whether no startup tree has been stored
func (s *Store) Empty(ctx context.Context) (bool, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM startup_tree").Scan(&n); err != nil {
		return false, ioError("count startup tree", err)
	}
	return n == 0, nil
}

// LoadTree returns the stored startup tree as path -> value
func (s *Store) LoadTree(ctx context.Context) (map[string]string, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT path, value FROM startup_tree")
	if err != nil {
		return nil, ioError("load startup tree", err)
	}
	defer rows.Close()

	tree := make(map[string]string)
	for rows.Next() {
		var path, value string
		if err := rows.Scan(&path, &value); err != nil {
			return nil, ioError("scan startup tree", err)
		}
		tree[path] = value
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("load startup tree", err)
	}
	return tree, nil
}

// SaveTree replaces the stored startup tree
func (s *Store) SaveTree(ctx context.Context, tree map[string]string) error {
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	now := time.Now().UTC()
	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM startup_tree"); err != nil {
			return fmt.Errorf("failed to clear startup tree: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, s.db.Rebind(
			"INSERT INTO startup_tree (path, value, updated_at) VALUES (?, ?, ?)"))
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range paths {
			if _, err := stmt.ExecContext(ctx, p, tree[p], now); err != nil {
				return fmt.Errorf("failed to store %s: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return ioError("save startup tree", err)
	}

	s.logger.Info("Startup tree saved", zap.Int("leaves", len(paths)))
	return nil
}

// RecordTransaction appends a report to the transaction journal
func (s *Store) RecordTransaction(ctx context.Context, r *types.TransactionReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions
			(id, phase, status, total, applied, ntp_regenerated, error_kind, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Phase), string(r.Status), r.Total, r.Applied, r.NTPRegenerated,
		string(r.ErrorKind), r.Error, r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return ioError("record transaction", err)
	}
	return nil
}

// ListTransactions returns the most recent reports, newest first
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]types.TransactionReport, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phase, status, total, applied, ntp_regenerated, error_kind, error, started_at, finished_at
		FROM transactions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, ioError("list transactions", err)
	}
	defer rows.Close()

	var reports []types.TransactionReport
	for rows.Next() {
		var (
			r                   types.TransactionReport
			phase, status, kind string
		)
		if err := rows.Scan(&r.ID, &phase, &status, &r.Total, &r.Applied, &r.NTPRegenerated,
			&kind, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, ioError("scan transaction", err)
		}
		r.Phase = types.Phase(phase)
		r.Status = types.TransactionStatus(status)
		r.ErrorKind = types.Kind(kind)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("list transactions", err)
	}
	return reports, nil
}

// Ping verifies the datastore is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the datastore
func (s *Store) Close() error {
	return s.db.Close()
}

func ioError(op string, err error) error {
	return types.NewError(types.KindIOFailure, "datastore: "+op, err)
}
