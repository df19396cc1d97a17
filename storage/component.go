package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

var _ component.Component = (*Component)(nil)

// Component builds the configured Storage on Start so file sources and sinks
// can share one store.
type Component struct {
	cfg   Config
	log   *logger.Logger
	store Storage
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// Storage is nil until Start succeeds.
func (c *Component) Storage() Storage { return c.store }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	s, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	c.store = s
	return nil
}

// Stop drops the store; providers hold no connections that need closing.
func (c *Component) Stop(context.Context) error {
	c.store = nil
	return nil
}

// Health probes the store with an Exists call on a sentinel path.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.store == nil {
		h.Status, h.Message = component.StatusUnhealthy, "not started"
		return h
	}
	if _, err := c.store.Exists(ctx, ".health"); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, "probe: "+err.Error()
	}
	return h
}

func (c *Component) Describe() component.Description {
	where := "base_path=" + c.cfg.BasePath
	if c.cfg.Provider == ProviderS3 {
		where = "bucket=" + c.cfg.Bucket
	}
	return component.Description{
		Name:    "Storage",
		Type:    "storage",
		Details: fmt.Sprintf("provider=%s %s", c.cfg.Provider, where),
	}
}
