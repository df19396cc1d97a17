package observability

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

// Service identifies the process in exported telemetry.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Component installs the OTLP tracer and meter providers while running.
// With telemetry disabled it starts and stops without touching the globals.
type Component struct {
	cfg Config
	svc Service
	log *logger.Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a telemetry component.
func NewComponent(cfg Config, svc Service, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, svc: svc, log: log.WithComponent("observability")}
}

// Name returns the component name.
func (c *Component) Name() string { return "observability" }

// Start creates the exporters and installs the providers.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("telemetry export disabled")
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	res, err := newResource(c.svc)
	if err != nil {
		return errors.ExternalServiceError("otlp", err)
	}
	tp, err := newTracerProvider(ctx, c.cfg, res)
	if err != nil {
		return errors.ExternalServiceError("otlp", err)
	}
	mp, err := newMeterProvider(ctx, c.cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return errors.ExternalServiceError("otlp", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	c.log.Info("telemetry export started", logger.Fields(
		"endpoint", c.cfg.Endpoint,
		"interval", c.cfg.Interval.String(),
		"sample_rate", c.cfg.SampleRate,
	))
	c.tp, c.mp = tp, mp
	return nil
}

// Stop flushes and shuts down both providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.mp != nil {
		errs = append(errs, c.mp.Shutdown(ctx))
		c.mp = nil
	}
	if c.tp != nil {
		errs = append(errs, c.tp.Shutdown(ctx))
		c.tp = nil
	}
	return stderrors.Join(errs...)
}

// Health reports whether export is active.
func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.tp == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	}
	return h
}

// Describe returns the startup summary line.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp=%s interval=%s sample=%.2f", c.cfg.Endpoint, c.cfg.Interval, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
