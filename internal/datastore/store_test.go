package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sysconfd/internal/config"
	"sysconfd/internal/types"
)

func newTestStore(t *testing.T) *Store {
	cfg := &config.DatastoreConfig{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "data", "sysconfd.db"),
		AutoMigrate: true,
	}
	s, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStartupTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.Empty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	tree := map[string]string{
		"/ietf-system:system/hostname":                          "router1",
		"/ietf-system:system/ntp/server[name='s1']/name":        "s1",
		"/ietf-system:system/ntp/server[name='s1']/udp/address": "203.0.113.1",
		"/ietf-system:system/clock/timezone-name":               "Europe/Berlin",
	}
	require.NoError(t, s.SaveTree(ctx, tree))

	empty, err = s.Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	loaded, err := s.LoadTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, tree, loaded)

	// saving replaces the whole tree
	require.NoError(t, s.SaveTree(ctx, map[string]string{"/ietf-system:system/hostname": "router2"}))
	loaded, err = s.LoadTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/ietf-system:system/hostname": "router2"}, loaded)
}

func TestTransactionJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 2, 10, 15, 0, 0, time.UTC)

	reports := []*types.TransactionReport{
		{
			ID:         "a",
			Phase:      types.PhaseCommitting,
			Status:     types.TransactionStatusApplied,
			Total:      3,
			Applied:    3,
			StartedAt:  start,
			FinishedAt: start.Add(time.Millisecond),
		},
		{
			ID:             "b",
			Phase:          types.PhaseCommitting,
			Status:         types.TransactionStatusPartial,
			Total:          3,
			Applied:        1,
			NTPRegenerated: true,
			ErrorKind:      types.KindPartialApply,
			Error:          "ntp server \"s9\" not found",
			StartedAt:      start.Add(time.Second),
			FinishedAt:     start.Add(2 * time.Second),
		},
	}
	for _, r := range reports {
		require.NoError(t, s.RecordTransaction(ctx, r))
	}

	got, err := s.ListTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, types.TransactionStatusPartial, got[0].Status)
	assert.Equal(t, types.KindPartialApply, got[0].ErrorKind)
	assert.True(t, got[0].NTPRegenerated)
	assert.Equal(t, 1, got[0].Applied)
	assert.True(t, got[0].StartedAt.Equal(start.Add(time.Second)))

	assert.Equal(t, "a", got[1].ID)
	assert.False(t, got[1].NTPRegenerated)

	// duplicate ids are rejected
	assert.ErrorIs(t, s.RecordTransaction(ctx, reports[0]), types.ErrIO)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	cfg := &config.DatastoreConfig{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "sysconfd.db"),
		AutoMigrate: true,
	}
	logger := zaptest.NewLogger(t)

	s, err := New(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, s.SaveTree(context.Background(), map[string]string{"/a": "1"}))
	require.NoError(t, s.Close())

	s, err = New(cfg, logger)
	require.NoError(t, err)
	defer s.Close()

	tree, err := s.LoadTree(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/a": "1"}, tree)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&config.DatastoreConfig{Driver: "oracle", DSN: "x"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Database{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &Database{driver: "sqlite3"}
	assert.Equal(t, "SELECT ?", lite.Rebind("SELECT ?"))
}
