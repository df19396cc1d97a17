package redis

import (
	"time"

	"github.com/kbukum/demandflow/validation"
)

const (
	DefaultAddr      = "localhost:6379"
	DefaultKeyPrefix = "demandflow"
	DefaultStatusTTL = 24 * time.Hour
)

// Config configures the run status store. Durations accept Go duration
// strings in the config file ("24h", "512ms").
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr" validate:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`

	// KeyPrefix namespaces every key the status store writes.
	KeyPrefix string        `mapstructure:"key_prefix" validate:"required"`
	StatusTTL time.Duration `mapstructure:"status_ttl" validate:"gt=0"`

	PoolSize     int `mapstructure:"pool_size" validate:"gt=0"`
	MinIdleConns int `mapstructure:"min_idle_conns" validate:"gte=0,ltefield=PoolSize"`
	MaxRetries   int `mapstructure:"max_retries" validate:"gte=0"`

	MinRetryBackoff time.Duration `mapstructure:"min_retry_backoff" validate:"gt=0"`
	MaxRetryBackoff time.Duration `mapstructure:"max_retry_backoff" validate:"gtefield=MinRetryBackoff"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultKeyPrefix
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	for _, d := range []struct {
		field *time.Duration
		def   time.Duration
	}{
		{&c.StatusTTL, DefaultStatusTTL},
		{&c.MinRetryBackoff, 8 * time.Millisecond},
		{&c.MaxRetryBackoff, 512 * time.Millisecond},
		{&c.DialTimeout, 5 * time.Second},
		{&c.ReadTimeout, 3 * time.Second},
		{&c.WriteTimeout, 3 * time.Second},
	} {
		if *d.field == 0 {
			*d.field = d.def
		}
	}
}

// Validate checks an enabled section; a disabled one is never dialed.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.Validate(c)
}
