package database

import (
	"time"

	"github.com/kbukum/demandflow/validation"
)

// DriverSQLite is the built-in driver. Other gorm dialectors can be supplied
// through Component.WithDriver.
const DriverSQLite = "sqlite"

// Config is the database section used by the table source and sink.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Driver names the gorm dialector used when no custom driver is set.
	Driver string `mapstructure:"driver" validate:"required"`
	// DSN is the driver connection string, a file path for sqlite.
	DSN string `mapstructure:"dsn" validate:"required"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gt=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	// ConnMaxIdleTime of 0 keeps idle connections forever.
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"gte=0"`

	// MaxRetries counts connection attempts, including the first.
	MaxRetries int `mapstructure:"max_retries" validate:"gt=0"`
	// AutoMigrate creates the record tables on startup.
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// SlowQueryThreshold marks queries logged at warn level.
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold" validate:"gt=0"`
	// LogLevel is the gorm log level.
	LogLevel string `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate checks an enabled section. A disabled section is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.Validate(c)
}
