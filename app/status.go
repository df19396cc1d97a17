package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/redis"
)

// Keys of the run status store, below the configured prefix.
const (
	statusKeyLatest = "run:latest"
	statusKeyRun    = "run:"
)

// RunStatus is what the run status store keeps for a run. It is rewritten
// on every progress interval and once more with the outcome when the run
// ends.
type RunStatus struct {
	RunID     string            `json:"run_id"`
	Service   string            `json:"service"`
	Progress  pipeline.Progress `json:"progress"`
	Outcome   string            `json:"outcome,omitempty"`
	Error     string            `json:"error,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type statusPublisher struct {
	store    *redis.TypedStore[RunStatus]
	ttl      time.Duration
	log      *logger.Logger
	service  string
	runID    string
	started  time.Time
	progress func() pipeline.Progress

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func newStatusPublisher(client *redis.Client, service, runID string, progress func() pipeline.Progress, log *logger.Logger) *statusPublisher {
	cfg := client.Config()
	return &statusPublisher{
		store:    redis.NewTypedStore[RunStatus](client, cfg.KeyPrefix),
		ttl:      cfg.StatusTTL,
		log:      log.WithComponent("status-store"),
		service:  service,
		runID:    runID,
		started:  time.Now(),
		progress: progress,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start publishes the run's progress every progress interval until Finish.
// The period follows live changes of settings.
func (s *statusPublisher) Start(ctx context.Context, settings pipeline.SettingsProvider) {
	var next atomic.Int64
	changed := make(chan struct{}, 1)
	unsubscribe := settings.Subscribe(func(st pipeline.Settings) {
		next.Store(int64(st.ProgressInterval))
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	interval := settings.Current().ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	go func() {
		defer close(s.done)
		defer unsubscribe()
		t := time.NewTicker(interval)
		defer t.Stop()
		s.publish(ctx, RunStatus{})
		for {
			select {
			case <-s.stop:
				return
			case <-changed:
				if d := time.Duration(next.Load()); d > 0 && d != interval {
					interval = d
					t.Reset(d)
					s.log.Debug("status interval changed", logger.Fields("interval", d.String()))
				}
			case <-t.C:
				s.publish(ctx, RunStatus{})
			}
		}
	}()
}

// Finish stops the periodic updates and writes the final report.
func (s *statusPublisher) Finish(ctx context.Context, r pipeline.Report) {
	s.once.Do(func() { close(s.stop) })
	<-s.done

	final := RunStatus{Outcome: string(r.Outcome)}
	if r.Err != nil {
		final.Error = r.Err.Error()
	}
	s.publish(ctx, final)
}

func (s *statusPublisher) publish(ctx context.Context, st RunStatus) {
	st.RunID = s.runID
	st.Service = s.service
	st.Progress = s.progress()
	st.StartedAt = s.started
	st.UpdatedAt = time.Now()

	for _, key := range []string{statusKeyRun + s.runID, statusKeyLatest} {
		if err := s.store.Save(ctx, key, &st, s.ttl); err != nil {
			s.log.Warn("failed to publish run status", logger.MergeWithError(logger.Fields("key", key), err))
			return
		}
	}
}
