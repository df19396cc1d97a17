package kafka

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

var _ component.Component = (*Component)(nil)

// Component holds the broker settings for topic sources and sinks. Start
// dials the first broker; Stop closes every reader and writer handed to
// Track, newest first.
type Component struct {
	cfg Config
	log *logger.Logger

	mu      sync.Mutex
	running bool
	clients []io.Closer
}

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

func (c *Component) Config() Config          { return c.cfg }
func (c *Component) Logger() *logger.Logger { return c.log }

func (c *Component) Track(client io.Closer) {
	c.mu.Lock()
	c.clients = append(c.clients, client)
	c.mu.Unlock()
}

func (c *Component) Name() string { return "kafka" }

func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cfg.Enabled || c.running {
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	if err := c.probe(ctx); err != nil {
		return errors.ConnectionFailed("kafka").WithCause(err).WithDetail("brokers", c.cfg.Brokers)
	}
	c.running = true
	c.log.Info("kafka reachable", logger.Fields("brokers", c.cfg.Brokers))
	return nil
}

// Stop closes every tracked client even when some fail and joins the errors.
func (c *Component) Stop(context.Context) error {
	c.mu.Lock()
	clients := c.clients
	c.clients, c.running = nil, false
	c.mu.Unlock()

	var errs []error
	for i := len(clients) - 1; i >= 0; i-- {
		errs = append(errs, clients[i].Close())
	}
	return stderrors.Join(errs...)
}

// probe dials the first broker and asks it for the cluster's broker list.
func (c *Component) probe(ctx context.Context) error {
	dialer, err := CreateDialer(&c.cfg)
	if err != nil {
		return err
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Brokers()
	return err
}

func (c *Component) Health(ctx context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case !running:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	default:
		if err := c.probe(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, "broker unreachable: "+err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%s group=%s", strings.Join(c.cfg.Brokers, ","), c.cfg.GroupID),
	}
}
