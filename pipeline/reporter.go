package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kbukum/demandflow/logger"
)

// Reporter logs progress on a fixed cadence until its context is cancelled,
// then logs one final line.
type Reporter struct {
	progress func() Progress
	log      *logger.Logger
	interval atomic.Int64
	changed  chan struct{}
}

// NewReporter returns a Reporter that calls progress on every tick.
func NewReporter(progress func() Progress, interval time.Duration, log *logger.Logger) *Reporter {
	r := &Reporter{
		progress: progress,
		log:      log,
		changed:  make(chan struct{}, 1),
	}
	r.interval.Store(int64(interval))
	return r
}

// Interval returns the current reporting interval.
func (r *Reporter) Interval() time.Duration { return time.Duration(r.interval.Load()) }

// SetInterval changes the cadence. Non-positive values are ignored.
func (r *Reporter) SetInterval(d time.Duration) {
	if d <= 0 || r.interval.Swap(int64(d)) == int64(d) {
		return
	}
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Run reports immediately, then on every tick, and a final time when ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	r.emit("progress")

	ticker := time.NewTicker(r.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.emit("final progress")
			return
		case <-ticker.C:
			r.emit("progress")
		case <-r.changed:
			d := r.Interval()
			ticker.Reset(d)
			r.log.Debug("progress interval changed", logger.Fields("interval", d.String()))
		}
	}
}

func (r *Reporter) emit(msg string) {
	p := r.progress()
	r.log.Info(msg, logger.Fields(
		logger.FieldRead, p.Read,
		logger.FieldComputed, p.Computed,
		logger.FieldWritten, p.Written,
		logger.FieldWorkers, p.Workers,
	))
}
