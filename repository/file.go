package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"sort"
	"strings"

	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/storage"
)

// FileSource reads ProductAnalytics rows from CSV objects. A path ending in
// "/" is a prefix: every .csv object under it is read in path order, each
// with its own header.
type FileSource struct {
	store storage.Storage
	path  string
	log   *logger.Logger
}

// NewFileSource returns a source reading path from store.
func NewFileSource(store storage.Storage, path string, log *logger.Logger) *FileSource {
	return &FileSource{store: store, path: path, log: log}
}

// Open resolves the objects to read and opens the first one.
func (s *FileSource) Open(ctx context.Context) (pipeline.Iterator[demand.ProductAnalytics], error) {
	paths := []string{s.path}
	if strings.HasSuffix(s.path, "/") {
		files, err := s.store.List(ctx, s.path)
		if err != nil {
			return nil, err
		}
		paths = paths[:0]
		for _, f := range files {
			if strings.EqualFold(pathpkg.Ext(f.Path), ".csv") {
				paths = append(paths, f.Path)
			}
		}
		if len(paths) == 0 {
			return nil, errors.NotFound("csv objects under", s.path)
		}
		sort.Strings(paths)
	}

	it := &csvIter{src: s, pending: paths}
	if err := it.openNext(ctx); err != nil {
		return nil, err
	}
	s.log.Debug("file source opened", logger.Fields("path", s.path, "objects", len(paths)))
	return it, nil
}

// csvIter walks the pending objects one after another.
type csvIter struct {
	src     *FileSource
	pending []string

	path string
	rc   io.ReadCloser
	dec  *demand.CSVDecoder
}

func (it *csvIter) openNext(ctx context.Context) error {
	it.path, it.pending = it.pending[0], it.pending[1:]
	rc, err := it.src.store.Download(ctx, it.path)
	if err != nil {
		return err
	}
	dec, err := demand.NewCSVDecoder(rc)
	if err != nil {
		_ = rc.Close()
		return withPath(err, it.path)
	}
	it.rc, it.dec = rc, dec
	return nil
}

func (it *csvIter) Next(ctx context.Context) (demand.ProductAnalytics, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return demand.ProductAnalytics{}, false, err
		}
		rec, err := it.dec.Decode()
		switch {
		case err == nil:
			return rec, true, nil
		case !stderrors.Is(err, io.EOF):
			return demand.ProductAnalytics{}, false, withPath(err, it.path)
		case len(it.pending) == 0:
			return demand.ProductAnalytics{}, false, nil
		}

		_ = it.rc.Close()
		it.rc = nil
		if err := it.openNext(ctx); err != nil {
			return demand.ProductAnalytics{}, false, err
		}
	}
}

func (it *csvIter) Close() error {
	if it.rc == nil {
		return nil
	}
	err := it.rc.Close()
	it.rc = nil
	return err
}

func withPath(err error, path string) error {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.WithDetail("path", path)
	}
	return err
}

// FileSink writes ProductDemand rows as CSV. Rows are spooled to a local temp
// file and the object is uploaded once, when the writer closes, so readers of
// the destination never see a partial file.
type FileSink struct {
	store storage.Storage
	path  string
	log   *logger.Logger
}

// NewFileSink returns a sink writing path in store.
func NewFileSink(store storage.Storage, path string, log *logger.Logger) *FileSink {
	return &FileSink{store: store, path: path, log: log}
}

// Open creates the spool file.
func (s *FileSink) Open(ctx context.Context) (pipeline.Writer[demand.ProductDemand], error) {
	f, err := os.CreateTemp("", "demandflow-*.csv")
	if err != nil {
		return nil, errors.SinkFailed(err).WithDetail("path", s.path)
	}
	return &csvWriter{ctx: ctx, sink: s, spool: f, enc: demand.NewCSVEncoder(f)}, nil
}

type csvWriter struct {
	ctx   context.Context
	sink  *FileSink
	spool *os.File
	enc   *demand.CSVEncoder
	rows  int
}

func (w *csvWriter) Write(_ context.Context, v demand.ProductDemand) error {
	if err := w.enc.Encode(v); err != nil {
		return errors.SinkFailed(err).WithDetail("path", w.sink.path)
	}
	w.rows++
	return nil
}

// Close flushes the spool and uploads it.
func (w *csvWriter) Close() error {
	defer func() {
		_ = w.spool.Close()
		_ = os.Remove(w.spool.Name())
	}()

	if err := w.enc.Flush(); err != nil {
		return errors.SinkFailed(err).WithDetail("path", w.sink.path)
	}
	if _, err := w.spool.Seek(0, io.SeekStart); err != nil {
		return errors.SinkFailed(err).WithDetail("path", w.sink.path)
	}
	if err := w.sink.store.Upload(w.ctx, w.sink.path, w.spool); err != nil {
		return errors.SinkFailed(fmt.Errorf("upload: %w", err)).WithDetail("path", w.sink.path)
	}
	w.sink.log.Info("file sink uploaded", logger.Fields("path", w.sink.path, "rows", w.rows))
	return nil
}
