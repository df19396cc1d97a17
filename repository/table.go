package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/kbukum/demandflow/database"
	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/resilience"
)

// TableSource reads the product_analytics table in id order, one page at a
// time.
type TableSource struct {
	db       *database.DB
	pageSize int
	log      *logger.Logger
}

// NewTableSource returns a source over db.
func NewTableSource(db *database.DB, pageSize int, log *logger.Logger) *TableSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &TableSource{db: db, pageSize: pageSize, log: log}
}

// Open checks the table exists. Rows are loaded lazily by the iterator.
func (s *TableSource) Open(ctx context.Context) (pipeline.Iterator[demand.ProductAnalytics], error) {
	if !s.db.WithContext(ctx).Migrator().HasTable(&demand.ProductAnalytics{}) {
		return nil, errors.NotFound("table", demand.ProductAnalytics{}.TableName())
	}
	return &tableIter{src: s}, nil
}

type tableIter struct {
	src    *TableSource
	page   []demand.ProductAnalytics
	pos    int
	lastID int64
	seen   bool
	done   bool
}

func (it *tableIter) Next(ctx context.Context) (demand.ProductAnalytics, bool, error) {
	if err := ctx.Err(); err != nil {
		return demand.ProductAnalytics{}, false, err
	}
	if it.pos >= len(it.page) {
		if it.done {
			return demand.ProductAnalytics{}, false, nil
		}
		if err := it.load(ctx); err != nil {
			return demand.ProductAnalytics{}, false, err
		}
		if len(it.page) == 0 {
			return demand.ProductAnalytics{}, false, nil
		}
	}
	rec := it.page[it.pos]
	it.pos++
	it.lastID = rec.ID
	it.seen = true
	return rec, true, nil
}

// load fetches the page after lastID. A short page marks the end.
func (it *tableIter) load(ctx context.Context) error {
	q := it.src.db.WithContext(ctx).Order("id").Limit(it.src.pageSize)
	if it.seen {
		q = q.Where("id > ?", it.lastID)
	}
	var page []demand.ProductAnalytics
	if err := q.Find(&page).Error; err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return database.FromDatabase(err, "product_analytics")
	}
	it.page, it.pos = page, 0
	it.done = len(page) < it.src.pageSize
	it.src.log.Debug("table page loaded", logger.Fields("rows", len(page), "after_id", it.lastID))
	return nil
}

func (it *tableIter) Close() error { return nil }

// TableSink upserts ProductDemand rows into product_demands in batches.
type TableSink struct {
	db        *database.DB
	batchSize int
	retry     resilience.RetryConfig
	log       *logger.Logger
}

// NewTableSink returns a sink over db.
func NewTableSink(db *database.DB, batchSize int, retry resilience.RetryConfig, log *logger.Logger) *TableSink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &TableSink{db: db, batchSize: batchSize, retry: retry, log: log}
}

// Open creates the table if needed.
func (s *TableSink) Open(ctx context.Context) (pipeline.Writer[demand.ProductDemand], error) {
	if err := s.db.WithContext(ctx).AutoMigrate(&demand.ProductDemand{}); err != nil {
		return nil, database.FromDatabase(err, "product_demands")
	}
	return &tableWriter{ctx: ctx, sink: s, batch: make([]demand.ProductDemand, 0, s.batchSize)}, nil
}

type tableWriter struct {
	ctx     context.Context
	sink    *TableSink
	batch   []demand.ProductDemand
	written int
}

func (w *tableWriter) Write(ctx context.Context, v demand.ProductDemand) error {
	w.batch = append(w.batch, v)
	if len(w.batch) < w.sink.batchSize {
		return nil
	}
	return w.flush(ctx)
}

func (w *tableWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	err := resilience.RetryFunc(ctx, w.sink.retry, func() error {
		err := w.sink.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&w.batch).Error
		if err != nil {
			return database.FromDatabase(err, "product_demands")
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.written += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}

// Flushed is the number of rows committed so far.
func (w *tableWriter) Flushed() int64 { return int64(w.written) }

// Close writes the final partial batch.
func (w *tableWriter) Close() error {
	if err := w.flush(w.ctx); err != nil {
		return err
	}
	w.sink.log.Info("table sink flushed", logger.Fields("table", "product_demands", "rows", w.written))
	return nil
}
