package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/demandflow/pipeline"
)

// MeterName is the instrumentation scope of the pipeline instruments.
const MeterName = "github.com/kbukum/demandflow/pipeline"

// newMeterProvider pushes metrics to the collector every cfg.Interval.
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exp, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)), nil
}

// Meter returns a named meter from the global provider, which is a no-op
// until the component installs one.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

type pipelineInstrument struct {
	name  string
	desc  string
	gauge bool
	value func(pipeline.Progress) int64
}

var pipelineInstruments = []pipelineInstrument{
	{"pipeline.records.read", "Records read from the source", false,
		func(p pipeline.Progress) int64 { return p.Read }},
	{"pipeline.records.computed", "Records transformed by the workers", false,
		func(p pipeline.Progress) int64 { return p.Computed }},
	{"pipeline.records.written", "Records written to the sink", false,
		func(p pipeline.Progress) int64 { return p.Written }},
	{"pipeline.workers", "Current worker pool size", true,
		func(p pipeline.Progress) int64 { return int64(p.Workers) }},
}

// RegisterPipelineMetrics exposes a run's counters as observable
// instruments. progress is sampled once per collection; unregister the
// returned registration when the run ends.
func RegisterPipelineMetrics(meter metric.Meter, progress func() pipeline.Progress) (metric.Registration, error) {
	handles := make([]metric.Int64Observable, len(pipelineInstruments))
	observables := make([]metric.Observable, len(pipelineInstruments))
	for i, in := range pipelineInstruments {
		var (
			obs metric.Int64Observable
			err error
		)
		if in.gauge {
			obs, err = meter.Int64ObservableGauge(in.name, metric.WithDescription(in.desc))
		} else {
			obs, err = meter.Int64ObservableCounter(in.name, metric.WithDescription(in.desc))
		}
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", in.name, err)
		}
		handles[i], observables[i] = obs, obs
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		p := progress()
		for i, in := range pipelineInstruments {
			o.ObserveInt64(handles[i], in.value(p))
		}
		return nil
	}, observables...)
}
