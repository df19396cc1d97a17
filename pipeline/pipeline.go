package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kbukum/demandflow/pipeline"

// ErrAlreadyRun is reported when Run is called a second time.
var ErrAlreadyRun = stderrors.New("pipeline: already run")

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeFailed      Outcome = "failed"
)

// Report summarizes a finished run.
type Report struct {
	RunID    string
	Outcome  Outcome
	Read     int64
	Computed int64
	// Written is the number of records the sink stored. Progress counts
	// records as written once the sink accepts them.
	Written  int64
	Elapsed  time.Duration
	// Err joins every stage failure; nil unless Outcome is OutcomeFailed.
	Err error
}

// Pipeline reads records from a Source, transforms them on a resizable pool
// of workers and writes the results to a Sink. A Pipeline runs once.
type Pipeline[I, O any] struct {
	source    Source[I]
	transform TransformFunc[I, O]
	sink      Sink[O]
	opts      options
	log       *logger.Logger

	state    *State
	input    *Bounded[I]
	output   *Unbounded[O]
	pool     *Pool
	reporter *Reporter

	started       atomic.Bool
	interrupted   atomic.Bool
	interruptOnce sync.Once
	interruptCh   chan struct{}
	abortOnce     sync.Once
	aborted       chan struct{}

	// set by Run before any stage starts
	span          trace.Span
	cancelRead    context.CancelFunc
	cancelCompute context.CancelFunc
	cancelReport  context.CancelFunc

	errMu sync.Mutex
	errs  []error

	// stored is the Flushed count of a buffering writer after Close, or -1.
	stored atomic.Int64
}

// New builds a pipeline. Nothing runs until Run is called.
func New[I, O any](source Source[I], transform TransformFunc[I, O], sink Sink[O], opts ...Option) *Pipeline[I, O] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.settings != nil {
		s := o.settings.Current()
		WithWorkers(s.Workers)(&o)
		WithProgressInterval(s.ProgressInterval)(&o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	if o.log == nil {
		o.log = logger.WithComponent("pipeline")
	}

	p := &Pipeline[I, O]{
		source:      source,
		transform:   transform,
		sink:        sink,
		opts:        o,
		log:         o.log.WithFields(logger.Fields(logger.FieldRunID, o.runID)),
		state:       &State{},
		input:       NewBounded[I](1),
		output:      NewUnbounded[O](),
		interruptCh: make(chan struct{}),
		aborted:     make(chan struct{}),
	}
	p.stored.Store(-1)
	p.pool = newPool(p.state, p.work, p.workerExited, p.log)
	p.reporter = NewReporter(p.Progress, o.interval, p.log)
	return p
}

// RunID returns the identifier of this run.
func (p *Pipeline[I, O]) RunID() string { return p.opts.runID }

// Progress returns a snapshot of the counters, roster size and phase.
func (p *Pipeline[I, O]) Progress() Progress {
	snap := p.state.Snapshot()
	snap.Workers = p.pool.Size()
	return snap
}

// Resize changes the number of workers. It fails with ErrRosterFrozen once
// reading has finished and with ErrNotRunning before Run.
func (p *Pipeline[I, O]) Resize(n int) error {
	return p.pool.Resize(n)
}

// Interrupt asks the run to stop. Records already computed are still written.
// Calling it more than once has no further effect.
func (p *Pipeline[I, O]) Interrupt() {
	p.interruptOnce.Do(func() { close(p.interruptCh) })
}

// Run executes the pipeline and blocks until every stage has stopped. It
// never panics on stage failures; they are reported in the returned Report.
// Cancelling ctx behaves like Interrupt.
func (p *Pipeline[I, O]) Run(ctx context.Context) Report {
	if !p.started.CompareAndSwap(false, true) {
		return Report{RunID: p.opts.runID, Outcome: OutcomeFailed, Err: ErrAlreadyRun}
	}
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String(logger.FieldRunID, p.opts.runID)))
	defer span.End()
	p.span = span
	log := p.log.WithContext(ctx)

	// Writing and reporting outlive an interrupt; reading and computing do not.
	detached := context.WithoutCancel(ctx)
	readCtx, cancelRead := context.WithCancel(ctx)
	computeCtx, cancelCompute := context.WithCancel(detached)
	reportCtx, cancelReport := context.WithCancel(detached)
	writeCtx, cancelWrite := context.WithCancel(detached)
	defer cancelRead()
	defer cancelCompute()
	defer cancelReport()
	defer cancelWrite()
	p.cancelRead, p.cancelCompute, p.cancelReport = cancelRead, cancelCompute, cancelReport

	p.state.advance(PhaseRunning)
	p.pool.activate(computeCtx)

	stopWatching := p.watchInterrupts(ctx)
	defer stopWatching()

	if p.opts.settings != nil {
		unsubscribe := p.opts.settings.Subscribe(p.applySettings)
		defer unsubscribe()
	}

	log.Info("pipeline started", logger.Fields(
		logger.FieldWorkers, p.opts.workers,
		"progress_interval", p.opts.interval.String(),
	))

	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		p.reporter.Run(reportCtx)
	}()

	// An interrupt may already have frozen the roster.
	if err := p.pool.Resize(p.opts.workers); err != nil && !stderrors.Is(err, ErrRosterFrozen) {
		p.fail("compute", errors.Internal(err))
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		p.guard("write", func() error { return p.write(writeCtx) })
	}()

	p.guard("read", func() error { return p.read(readCtx) })

	p.pool.freeze()
	if p.state.advance(PhaseDraining) {
		log.Info("source exhausted, draining")
	}

	select {
	case <-p.input.Drained():
	case <-p.aborted:
	}
	if err := p.pool.Wait(); err != nil {
		log.Debug("workers finished with error", logger.Fields(logger.FieldError, err.Error()))
	}
	p.output.Close()
	<-writerDone

	cancelReport()
	<-reporterDone

	p.state.advance(PhaseStopped)
	report := p.report(start)
	p.logSummary(log, report)
	p.recordSpan(report)
	return report
}

func (p *Pipeline[I, O]) read(ctx context.Context) error {
	defer p.input.Close()

	it, err := p.source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.SourceFailed(err)
	}
	defer func() {
		if cerr := it.Close(); cerr != nil {
			p.log.Warn("closing source failed", logger.Fields(logger.FieldError, cerr.Error()))
		}
	}()

	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.SourceFailed(err)
		}
		if !ok {
			return nil
		}
		p.state.Read.Inc()
		if err := p.input.Put(ctx, v); err != nil {
			return nil
		}
	}
}

// work is one worker's loop. A cancelled worker drops the record it holds.
// Take may hand over a record in the same instant the worker is cancelled by
// a scale-down; that record is dropped as well, without being computed.
func (p *Pipeline[I, O]) work(ctx context.Context, id int) error {
	p.log.Debug("worker started", logger.Fields(logger.FieldWorker, id))
	defer p.log.Debug("worker stopped", logger.Fields(logger.FieldWorker, id))

	for {
		if ctx.Err() != nil {
			return nil
		}
		in, ok, err := p.input.Take(ctx)
		if err != nil || !ok {
			return nil
		}

		out, err := p.apply(ctx, in)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return errors.TransformFailed(id, err)
		}
		p.state.Computed.Inc()
		p.output.Push(out)
	}
}

func (p *Pipeline[I, O]) apply(ctx context.Context, in I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return p.transform(ctx, in)
}

func (p *Pipeline[I, O]) workerExited(id int, err error) {
	if err != nil {
		p.fail("compute", err)
	}
}

func (p *Pipeline[I, O]) write(ctx context.Context) (err error) {
	w, err := p.sink.Open(ctx)
	if err != nil {
		return errors.SinkFailed(err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = errors.SinkFailed(cerr)
		}
		if f, ok := w.(Flusher); ok {
			p.stored.Store(f.Flushed())
		}
	}()

	for {
		v, ok, err := p.output.Pop(ctx)
		if err != nil || !ok {
			return nil
		}
		if err := w.Write(ctx, v); err != nil {
			return errors.SinkFailed(err)
		}
		p.state.Written.Inc()
	}
}

// guard runs a stage, turning a panic into a stage failure.
func (p *Pipeline[I, O]) guard(stage string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(stage, panicError(r))
		}
	}()
	if err := fn(); err != nil {
		p.fail(stage, err)
	}
}

// fail records a stage failure and unwinds the run.
func (p *Pipeline[I, O]) fail(stage string, err error) {
	fields := logger.Fields(logger.FieldStage, stage, logger.FieldError, err.Error())
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if appErr, ok := e.(*errors.AppError); ok {
			for k, v := range appErr.Details {
				if _, set := fields[k]; !set {
					fields[k] = v
				}
			}
		}
	}
	p.log.Error("stage failed", fields)

	p.errMu.Lock()
	p.errs = append(p.errs, fmt.Errorf("%s: %w", stage, err))
	p.errMu.Unlock()

	p.span.RecordError(err, trace.WithAttributes(attribute.String(logger.FieldStage, stage)))
	p.abort("stage failure")
}

// abort stops reading and computing. Queued results still reach the sink.
func (p *Pipeline[I, O]) abort(reason string) {
	p.abortOnce.Do(func() {
		p.state.advance(PhaseDraining)
		p.pool.freeze()
		p.cancelRead()
		p.cancelCompute()
		p.cancelReport()
		close(p.aborted)
		p.span.AddEvent("abort", trace.WithAttributes(attribute.String("reason", reason)))
		p.log.Warn("pipeline aborting", logger.Fields("reason", reason))
	})
}

func (p *Pipeline[I, O]) interrupt(source string) {
	if !p.interrupted.CompareAndSwap(false, true) {
		p.log.Debug("interrupt absorbed", logger.Fields("source", source))
		return
	}
	p.log.Info("interrupt received", logger.Fields("source", source))
	p.abort("interrupt")
}

// watchInterrupts subscribes to interrupt sources for the lifetime of the run.
func (p *Pipeline[I, O]) watchInterrupts(ctx context.Context) (stop func()) {
	var sigCh chan os.Signal
	if len(p.opts.signals) > 0 {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, p.opts.signals...)
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ctxDone, requested := ctx.Done(), p.interruptCh
		for {
			select {
			case <-done:
				return
			case <-ctxDone:
				ctxDone = nil
				p.interrupt("context")
			case <-requested:
				requested = nil
				p.interrupt("request")
			case sig := <-sigCh:
				p.interrupt(sig.String())
			}
		}
	}()

	return func() {
		if sigCh != nil {
			signal.Stop(sigCh)
		}
		close(done)
		<-exited
	}
}

func (p *Pipeline[I, O]) applySettings(s Settings) {
	if s.ProgressInterval > 0 {
		p.reporter.SetInterval(s.ProgressInterval)
	}
	if s.Workers <= 0 {
		return
	}
	switch err := p.pool.Resize(s.Workers); {
	case err == nil:
	case stderrors.Is(err, ErrRosterFrozen):
		p.log.Info("reading finished, ignoring worker count change", logger.Fields(logger.FieldWorkers, s.Workers))
	default:
		p.log.Warn("worker count change rejected", logger.Fields(logger.FieldError, err.Error()))
	}
}

func (p *Pipeline[I, O]) report(start time.Time) Report {
	snap := p.state.Snapshot()
	r := Report{
		RunID:    p.opts.runID,
		Read:     snap.Read,
		Computed: snap.Computed,
		Written:  snap.Written,
		Elapsed:  time.Since(start),
		Outcome:  OutcomeCompleted,
	}
	// Written counts accepted records; a buffering writer that failed to
	// flush stored fewer.
	if stored := p.stored.Load(); stored >= 0 && stored < r.Written {
		r.Written = stored
	}

	p.errMu.Lock()
	r.Err = stderrors.Join(p.errs...)
	p.errMu.Unlock()

	switch {
	case r.Err != nil:
		r.Outcome = OutcomeFailed
	case p.interrupted.Load():
		r.Outcome = OutcomeInterrupted
	}
	return r
}

func (p *Pipeline[I, O]) logSummary(log *logger.Logger, r Report) {
	log.Info("pipeline stopped", logger.Fields(
		logger.FieldOutcome, string(r.Outcome),
		logger.FieldRead, r.Read,
		logger.FieldComputed, r.Computed,
		logger.FieldWritten, r.Written,
		logger.FieldElapsed, r.Elapsed.String(),
	))
}

func (p *Pipeline[I, O]) recordSpan(r Report) {
	p.span.SetAttributes(
		attribute.String(logger.FieldOutcome, string(r.Outcome)),
		attribute.Int64("records.read", r.Read),
		attribute.Int64("records.computed", r.Computed),
		attribute.Int64("records.written", r.Written),
	)
	if r.Err != nil {
		p.span.SetStatus(codes.Error, r.Err.Error())
	}
}

func panicError(r any) error {
	return errors.New(errors.ErrCodeInternal, fmt.Sprintf("panic: %v", r)).
		WithDetail("stack", string(debug.Stack()))
}
