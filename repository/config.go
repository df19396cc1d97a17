package repository

import (
	"time"

	"github.com/kbukum/demandflow/resilience"
	"github.com/kbukum/demandflow/validation"
)

// Adapter kinds.
const (
	KindFile  = "file"
	KindTable = "table"
	KindTopic = "topic"
)

// Default adapter settings.
const (
	DefaultSourcePath  = "input.csv"
	DefaultSinkPath    = "output.csv"
	DefaultSourceTopic = "product-analytics"
	DefaultSinkTopic   = "product-demands"
	DefaultPageSize    = 500
	DefaultBatchSize   = 100
	DefaultIdleTimeout = 5 * time.Second
)

// SourceConfig selects and configures the input adapter.
type SourceConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=file table topic"`

	// Path is the object path read by the file source.
	Path string `mapstructure:"path" validate:"required_if=Kind file"`

	// PageSize is how many rows the table source loads per query.
	PageSize int `mapstructure:"page_size" validate:"gte=0"`

	// Topic is the topic consumed by the topic source.
	Topic string `mapstructure:"topic" validate:"required_if=Kind topic"`

	// IdleTimeout ends the topic source when no message arrives for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
}

// ApplyDefaults fills zero fields.
func (c *SourceConfig) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindFile
	}
	switch c.Kind {
	case KindFile:
		if c.Path == "" {
			c.Path = DefaultSourcePath
		}
	case KindTopic:
		if c.Topic == "" {
			c.Topic = DefaultSourceTopic
		}
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}

// Validate checks the adapter settings.
func (c *SourceConfig) Validate() error {
	return validation.Validate(c)
}

// SinkConfig selects and configures the output adapter.
type SinkConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=file table topic"`

	// Path is the object path written by the file sink.
	Path string `mapstructure:"path" validate:"required_if=Kind file"`

	// Topic is the topic the topic sink publishes to.
	Topic string `mapstructure:"topic" validate:"required_if=Kind topic"`

	// BatchSize is how many records the table and topic sinks write at once.
	BatchSize int `mapstructure:"batch_size" validate:"gte=0"`

	// Retry governs retries of batch writes.
	Retry resilience.Policy `mapstructure:"retry"`
}

// ApplyDefaults fills zero fields.
func (c *SinkConfig) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindFile
	}
	switch c.Kind {
	case KindFile:
		if c.Path == "" {
			c.Path = DefaultSinkPath
		}
	case KindTopic:
		if c.Topic == "" {
			c.Topic = DefaultSinkTopic
		}
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	c.Retry.ApplyDefaults()
}

// Validate checks the adapter settings.
func (c *SinkConfig) Validate() error {
	return validation.Validate(c)
}
