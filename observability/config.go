package observability

import (
	"time"

	"github.com/kbukum/demandflow/validation"
)

// Default telemetry settings.
const (
	DefaultEndpoint   = "localhost:4318"
	DefaultInterval   = 15 * time.Second
	DefaultSampleRate = 1.0
)

// Config selects where traces and metrics are exported. Export is off unless
// Enabled is set.
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true"`

	// Insecure disables TLS to the collector.
	Insecure bool `mapstructure:"insecure"`

	// Interval is the metric export interval.
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`

	// SampleRate is the fraction of traces kept, from 0 to 1.
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
