package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

var _ component.Component = (*Component)(nil)

// Component dials Redis on Start and hands the Client to the run status
// store. A disabled component does nothing and reports healthy.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil when disabled or not started.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start fails if the server does not answer a PING.
func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}
	c.client = client
	c.log.Info("redis connected", logger.Fields("addr", c.cfg.Addr, "db", c.cfg.DB))
	return nil
}

func (c *Component) Stop(context.Context) error {
	client := c.client
	c.client = nil
	if client == nil {
		return nil
	}
	return client.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	default:
		if err := c.client.Ping(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, "ping: "+err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Run Status Store",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d prefix=%s ttl=%s", c.cfg.Addr, c.cfg.DB, c.cfg.KeyPrefix, c.cfg.StatusTTL),
	}
}
