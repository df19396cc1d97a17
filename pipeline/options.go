package pipeline

import (
	"os"
	"runtime"
	"time"

	"github.com/kbukum/demandflow/logger"
)

const defaultProgressInterval = 5 * time.Second

type options struct {
	workers  int
	interval time.Duration
	settings SettingsProvider
	signals  []os.Signal
	log      *logger.Logger
	runID    string
}

func defaultOptions() options {
	return options{
		workers:  runtime.NumCPU(),
		interval: defaultProgressInterval,
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithWorkers sets the initial worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProgressInterval sets the initial progress reporting interval.
func WithProgressInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithSettings makes the pipeline follow a live SettingsProvider. Its current
// value overrides WithWorkers and WithProgressInterval.
func WithSettings(p SettingsProvider) Option {
	return func(o *options) { o.settings = p }
}

// WithSignals subscribes the run to the given OS signals; the first one
// received interrupts the run and later ones are absorbed.
func WithSignals(sig ...os.Signal) Option {
	return func(o *options) { o.signals = sig }
}

// WithLogger sets the logger used by the run.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithRunID sets the run identifier reported in logs and the Report.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}
