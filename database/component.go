package database

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
)

// DriverFunc builds a gorm dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

var _ component.Component = (*Component)(nil)

// Component owns the DB for the lifetime of a run. Table sources and sinks
// borrow it through DB once the registry has started it.
type Component struct {
	cfg    Config
	log    *logger.Logger
	driver DriverFunc
	models []any

	db *DB
}

// NewComponent uses the sqlite driver unless WithDriver says otherwise.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:    cfg,
		log:    log.WithComponent("database"),
		driver: sqlite.Open,
	}
}

func (c *Component) WithDriver(fn DriverFunc) *Component {
	c.driver = fn
	return c
}

// WithAutoMigrate adds models migrated on Start when auto_migrate is set.
func (c *Component) WithAutoMigrate(models ...any) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB is nil until Start succeeds.
func (c *Component) DB() *DB { return c.db }

func (c *Component) Name() string { return "database" }

func (c *Component) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		c.log.Debug("database disabled, skipping start")
		return nil
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	db, err := NewWithContext(ctx, c.driver(c.cfg.DSN), c.cfg, c.log)
	if err != nil {
		return err
	}
	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := db.AutoMigrate(c.models...); err != nil {
			_ = db.Close()
			return FromDatabase(err, "schema")
		}
		c.log.Info("schema migrated", logger.Fields("models", len(c.models)))
	}
	c.db = db
	return nil
}

func (c *Component) Stop(context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the pool.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case !c.cfg.Enabled:
		h.Message = "disabled"
	case c.db == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	default:
		if err := c.db.PingContext(ctx); err != nil {
			h.Status, h.Message = component.StatusUnhealthy, "ping: "+err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("driver=%s pool=%d/%d", c.cfg.Driver, c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
