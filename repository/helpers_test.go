package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/kbukum/demandflow/database"
	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/storage/local"
)

func newLocal(t *testing.T) *local.Storage {
	t.Helper()
	s, err := local.NewStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func newDB(t *testing.T) *database.DB {
	t.Helper()
	cfg := database.Config{
		Enabled:    true,
		DSN:        filepath.Join(t.TempDir(), "repo.db"),
		MaxRetries: 1,
		LogLevel:   "silent",
	}
	cfg.ApplyDefaults()
	db, err := database.NewWithContext(context.Background(), sqlite.Open(cfg.DSN), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func drain(t *testing.T, src pipeline.Source[demand.ProductAnalytics]) []demand.ProductAnalytics {
	t.Helper()
	ctx := context.Background()
	it, err := src.Open(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, it.Close()) }()

	var out []demand.ProductAnalytics
	for {
		v, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func writeAll(t *testing.T, sink pipeline.Sink[demand.ProductDemand], rows []demand.ProductDemand) {
	t.Helper()
	ctx := context.Background()
	w, err := sink.Open(ctx)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(ctx, r))
	}
	require.NoError(t, w.Close())
}
