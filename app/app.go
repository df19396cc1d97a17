package app

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/kbukum/demandflow/bootstrap"
	"github.com/kbukum/demandflow/database"
	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/redis"
	"github.com/kbukum/demandflow/repository"
	"github.com/kbukum/demandflow/server"
	"github.com/kbukum/demandflow/server/endpoint"
	"github.com/kbukum/demandflow/storage"

	// storage backends register themselves by provider name
	_ "github.com/kbukum/demandflow/storage/local"
	_ "github.com/kbukum/demandflow/storage/s3"
)

// Exit codes returned by ExitCode.
const (
	ExitCompleted   = 0
	ExitFailed      = 1
	ExitInterrupted = 130
)

// ExitCode maps a run outcome to the process exit status.
func ExitCode(r pipeline.Report) int {
	switch r.Outcome {
	case pipeline.OutcomeCompleted:
		return ExitCompleted
	case pipeline.OutcomeInterrupted:
		return ExitInterrupted
	default:
		return ExitFailed
	}
}

// runner holds the components of one run.
type runner struct {
	app     *bootstrap.App[*Config]
	storage *storage.Component
	db      *database.Component
	kafka   *kafka.Component
	redis   *redis.Component
	tracker *server.RunTracker

	source pipeline.Source[demand.ProductAnalytics]
	sink   pipeline.Sink[demand.ProductDemand]
}

// Run executes one pipeline run with the configuration held by src. The
// pipeline section of src is followed live while the run is in progress.
// Errors that prevent the run from starting are returned with a failed report.
func Run(ctx context.Context, src configSource, opts ...bootstrap.Option) (pipeline.Report, error) {
	cfg := src.Current()
	a, err := bootstrap.NewApp(&cfg, opts...)
	if err != nil {
		return pipeline.Report{Outcome: pipeline.OutcomeFailed, Err: err}, err
	}

	r := &runner{app: a, tracker: &server.RunTracker{}}
	if err := r.register(); err != nil {
		return pipeline.Report{Outcome: pipeline.OutcomeFailed, Err: err}, err
	}
	a.OnConfigure(r.configure)

	start := time.Now()
	var report pipeline.Report
	started := false
	err = a.RunTask(ctx, func(ctx context.Context) error {
		started = true
		report = r.run(ctx, watchedSettings{src: src})
		if report.Outcome == pipeline.OutcomeFailed {
			return report.Err
		}
		return nil
	})
	if !started {
		report = pipeline.Report{Outcome: pipeline.OutcomeFailed, Err: err}
	}

	fields := logger.Fields("outcome", string(report.Outcome), logger.FieldDuration, time.Since(start).Milliseconds())
	if err != nil {
		fields = logger.MergeWithError(fields, err)
	}
	a.Logger.Info("application stopped", fields)
	return report, err
}

func (r *runner) register() error {
	cfg := r.app.Cfg
	log := r.app.Logger

	if cfg.usesFiles() {
		r.storage = storage.NewComponent(cfg.Storage, log)
		if err := r.app.RegisterComponent(r.storage); err != nil {
			return err
		}
	}

	r.db = database.NewComponent(cfg.Database, log).
		WithAutoMigrate(&demand.ProductAnalytics{}, &demand.ProductDemand{})
	if err := r.app.RegisterComponent(r.db); err != nil {
		return err
	}

	r.kafka = kafka.NewComponent(cfg.Kafka, log)
	if err := r.app.RegisterComponent(r.kafka); err != nil {
		return err
	}

	r.redis = redis.NewComponent(cfg.Redis, log)
	if err := r.app.RegisterComponent(r.redis); err != nil {
		return err
	}

	svc := observability.Service{Name: cfg.Name, Version: cfg.Version, Environment: cfg.Environment}
	if err := r.app.RegisterComponent(observability.NewComponent(cfg.Observability, svc, log)); err != nil {
		return err
	}

	if cfg.Status.Enabled {
		srv := server.New(cfg.Status, log)
		srv.RegisterStatusEndpoints(cfg.Name, r.app.Components.HealthAll, r.tracker.Progress, r.tracker.Stages)
		if err := r.app.RegisterComponent(server.NewComponent(srv)); err != nil {
			return err
		}
	}
	return nil
}

// configure builds the source and sink once the backends are up.
func (r *runner) configure(_ context.Context, a *bootstrap.App[*Config]) error {
	deps := repository.Deps{Log: a.Logger}
	if r.storage != nil {
		deps.Storage = r.storage.Storage()
	}
	if a.Cfg.Database.Enabled {
		deps.DB = r.db.DB()
	}
	if a.Cfg.Kafka.Enabled {
		deps.Kafka = r.kafka
	}

	src, err := repository.NewSource(a.Cfg.Source, deps)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	sink, err := repository.NewSink(a.Cfg.Sink, deps)
	if err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	r.source, r.sink = src, sink

	a.Summary.TrackStage("source", a.Cfg.Source.Kind, sourceDetails(a.Cfg.Source))
	a.Summary.TrackStage("transform", "demand", fmt.Sprintf("complexity=%d", a.Cfg.Calculator.Complexity))
	a.Summary.TrackStage("sink", a.Cfg.Sink.Kind, sinkDetails(a.Cfg.Sink))
	return nil
}

func (r *runner) run(ctx context.Context, settings watchedSettings) pipeline.Report {
	cfg := r.app.Cfg
	log := r.app.Logger

	p := pipeline.New(r.source, demand.NewCalculator(cfg.Calculator.Complexity).Calculate, r.sink,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithProgressInterval(cfg.Pipeline.ProgressInterval),
		pipeline.WithSettings(settings),
		pipeline.WithSignals(syscall.SIGINT, syscall.SIGTERM),
		pipeline.WithLogger(log.WithComponent("pipeline")),
	)
	r.tracker.Track(p.RunID(), p.Progress, r.stages()...)

	reg, err := observability.RegisterPipelineMetrics(observability.Meter(observability.MeterName), p.Progress)
	if err != nil {
		log.Warn("pipeline metrics unavailable", logger.MergeWithError(nil, err))
	} else {
		defer func() {
			if err := reg.Unregister(); err != nil {
				log.Debug("unregister pipeline metrics", logger.MergeWithError(nil, err))
			}
		}()
	}

	var status *statusPublisher
	if client := r.redis.Client(); client != nil {
		status = newStatusPublisher(client, cfg.Name, p.RunID(), p.Progress, log)
		status.Start(context.WithoutCancel(ctx), settings)
	}

	log.Info("running pipeline", logger.Fields(
		logger.FieldRunID, p.RunID(),
		logger.FieldWorkers, cfg.Pipeline.Workers,
		"source", cfg.Source.Kind,
		"sink", cfg.Sink.Kind,
	))
	report := p.Run(ctx)

	if status != nil {
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		status.Finish(finishCtx, report)
		cancel()
	}
	return report
}

// stages lists the run's stages as the status server reports them.
func (r *runner) stages() []endpoint.Stage {
	tracked := r.app.Summary.Stages()
	out := make([]endpoint.Stage, 0, len(tracked))
	for _, st := range tracked {
		out = append(out, endpoint.Stage{Name: st.Name, Kind: st.Kind, Details: st.Details})
	}
	return out
}

func sourceDetails(c repository.SourceConfig) string {
	switch c.Kind {
	case repository.KindFile:
		return c.Path
	case repository.KindTable:
		return fmt.Sprintf("%s page=%d", demand.ProductAnalytics{}.TableName(), c.PageSize)
	default:
		return fmt.Sprintf("%s idle=%s", c.Topic, c.IdleTimeout)
	}
}

func sinkDetails(c repository.SinkConfig) string {
	switch c.Kind {
	case repository.KindFile:
		return c.Path
	case repository.KindTable:
		return fmt.Sprintf("%s batch=%d", demand.ProductDemand{}.TableName(), c.BatchSize)
	default:
		return fmt.Sprintf("%s batch=%d", c.Topic, c.BatchSize)
	}
}
