package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/resilience"
)

func seedAnalytics(t *testing.T, n int) []demand.ProductAnalytics {
	t.Helper()
	rows := make([]demand.ProductAnalytics, n)
	for i := range rows {
		rows[i] = demand.ProductAnalytics{ID: int64(i + 1), Prediction: int64(i * 2), Stock: int64(i)}
	}
	return rows
}

func TestTableSource_PagesInIDOrder(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.AutoMigrate(&demand.ProductAnalytics{}))
	rows := seedAnalytics(t, 7)
	// insert out of order to check the source sorts by id
	for i := len(rows) - 1; i >= 0; i-- {
		require.NoError(t, db.WithContext(context.Background()).Create(&rows[i]).Error)
	}

	for _, pageSize := range []int{1, 3, 7, 50} {
		got := drain(t, NewTableSource(db, pageSize, logger.Nop()))
		assert.Equal(t, rows, got, "page size %d", pageSize)
	}
}

func TestTableSource_EmptyTable(t *testing.T) {
	db := newDB(t)
	require.NoError(t, db.AutoMigrate(&demand.ProductAnalytics{}))
	assert.Empty(t, drain(t, NewTableSource(db, 10, logger.Nop())))
}

func TestTableSource_MissingTable(t *testing.T) {
	_, err := NewTableSource(newDB(t), 10, logger.Nop()).Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotFound))
}

func TestTableSink_UpsertsInBatches(t *testing.T) {
	db := newDB(t)
	retry := resilience.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond}.RetryConfig(logger.Nop(), "insert batch")
	sink := NewTableSink(db, 2, retry, logger.Nop())

	writeAll(t, sink, []demand.ProductDemand{{ID: 1, Demand: 5}, {ID: 2, Demand: 0}, {ID: 3, Demand: 8}})
	// a second run overwrites rather than failing on the primary key
	writeAll(t, sink, []demand.ProductDemand{{ID: 1, Demand: 9}})

	var got []demand.ProductDemand
	require.NoError(t, db.WithContext(context.Background()).Order("id").Find(&got).Error)
	assert.Equal(t, []demand.ProductDemand{{ID: 1, Demand: 9}, {ID: 2, Demand: 0}, {ID: 3, Demand: 8}}, got)
}

func TestTableSink_FlushedCountsCommittedRows(t *testing.T) {
	db := newDB(t)
	sink := NewTableSink(db, 2, resilience.RetryConfig{MaxAttempts: 1}, logger.Nop())

	w, err := sink.Open(context.Background())
	require.NoError(t, err)
	f, ok := w.(pipeline.Flusher)
	require.True(t, ok)

	for _, v := range []demand.ProductDemand{{ID: 1}, {ID: 2}, {ID: 3}} {
		require.NoError(t, w.Write(context.Background(), v))
	}
	assert.Equal(t, int64(2), f.Flushed(), "third row is still buffered")

	require.NoError(t, w.Close())
	assert.Equal(t, int64(3), f.Flushed())
}
