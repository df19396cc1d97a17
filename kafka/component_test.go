package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/demandflow/component"
	apperrors "github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
)

type closer struct {
	name  string
	order *[]string
	err   error
}

func (c *closer) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestComponent_Disabled(t *testing.T) {
	c := NewComponent(Config{}, logger.Nop())
	var _ component.Component = c

	if c.Name() != "kafka" {
		t.Errorf("Name() = %q", c.Name())
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() on disabled component: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy || h.Message != "disabled" {
		t.Errorf("Health() = %+v", h)
	}
}

func TestComponent_StartUnreachable(t *testing.T) {
	c := NewComponent(Config{Enabled: true, Brokers: []string{"127.0.0.1:1"}, DialTimeout: 200 * time.Millisecond}, logger.Nop())
	err := c.Start(context.Background())
	if !apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("Start() error = %v, want CONNECTION_FAILED", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("Health() = %+v", h)
	}
}

func TestComponent_StartInvalidConfig(t *testing.T) {
	c := NewComponent(Config{Enabled: true, StartOffset: "middle"}, logger.Nop())
	if err := c.Start(context.Background()); !apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig) {
		t.Fatalf("Start() error = %v, want INVALID_CONFIG", err)
	}
}

func TestComponent_StopClosesTrackedClients(t *testing.T) {
	c := NewComponent(Config{}, logger.Nop())
	var order []string
	boom := errors.New("boom")
	c.Track(&closer{name: "consumer", order: &order})
	c.Track(&closer{name: "producer", order: &order, err: boom})

	if err := c.Stop(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Stop() error = %v, want boom", err)
	}
	if strings.Join(order, ",") != "producer,consumer" {
		t.Errorf("close order = %v", order)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() = %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	d := NewComponent(Config{Brokers: []string{"b1:9092"}, GroupID: "nightly"}, logger.Nop()).Describe()
	if d.Type != "kafka" || !strings.Contains(d.Details, "b1:9092") || !strings.Contains(d.Details, "group=nightly") {
		t.Errorf("Describe() = %+v", d)
	}
}
