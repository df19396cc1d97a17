package app

import (
	"fmt"
	"runtime"
	"time"

	"github.com/kbukum/demandflow/config"
	"github.com/kbukum/demandflow/database"
	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/redis"
	"github.com/kbukum/demandflow/repository"
	"github.com/kbukum/demandflow/server"
	"github.com/kbukum/demandflow/storage"
	"github.com/kbukum/demandflow/validation"
	"github.com/kbukum/demandflow/version"
)

// ServiceName selects the config file location (./cmd/demandflow/config.yml).
const ServiceName = "demandflow"

// DefaultProgressInterval is how often progress is logged when unset.
const DefaultProgressInterval = 2 * time.Second

// PipelineConfig holds the live-reloadable run settings.
type PipelineConfig struct {
	// Workers is the degree of parallelism. Zero selects the CPU count.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=0"`

	// ProgressInterval is the period of the progress log line.
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval" validate:"gte=0"`
}

// Settings converts the section to the pipeline's settings.
func (c PipelineConfig) Settings() pipeline.Settings {
	return pipeline.Settings{Workers: c.Workers, ProgressInterval: c.ProgressInterval}
}

// CalculatorConfig configures the demand calculation.
type CalculatorConfig struct {
	// Complexity is the number of coefficient iterations per record. Zero
	// selects demand.DefaultComplexity.
	Complexity int `yaml:"complexity" mapstructure:"complexity" validate:"gte=0"`
}

// Config is the full configuration of the demandflow binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Pipeline      PipelineConfig          `yaml:"pipeline" mapstructure:"pipeline"`
	Calculator    CalculatorConfig        `yaml:"calculator" mapstructure:"calculator"`
	Source        repository.SourceConfig `yaml:"source" mapstructure:"source"`
	Sink          repository.SinkConfig   `yaml:"sink" mapstructure:"sink"`
	Storage       storage.Config          `yaml:"storage" mapstructure:"storage"`
	Database      database.Config         `yaml:"database" mapstructure:"database"`
	Kafka         kafka.Config            `yaml:"kafka" mapstructure:"kafka"`
	Redis         redis.Config            `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config    `yaml:"observability" mapstructure:"observability"`
	Status        server.Config           `yaml:"status" mapstructure:"status"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	if c.Version == "" {
		c.Version = version.GetVersionInfo().Version
	}
	c.ServiceConfig.ApplyDefaults()

	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = runtime.NumCPU()
	}
	if c.Pipeline.ProgressInterval == 0 {
		c.Pipeline.ProgressInterval = DefaultProgressInterval
	}
	if c.Calculator.Complexity == 0 {
		c.Calculator.Complexity = demand.DefaultComplexity
	}

	c.Source.ApplyDefaults()
	c.Sink.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Status.ApplyDefaults()
}

// Validate checks every section and that the backends the source and sink
// need are enabled.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Pipeline); err != nil {
		return err
	}
	if err := validation.Validate(&c.Calculator); err != nil {
		return err
	}

	checks := []struct {
		section string
		err     error
	}{
		{"source", c.Source.Validate()},
		{"sink", c.Sink.Validate()},
		{"database", c.Database.Validate()},
		{"kafka", c.Kafka.Validate()},
		{"redis", c.Redis.Validate()},
		{"observability", c.Observability.Validate()},
		{"status", c.Status.Validate()},
	}
	for _, ch := range checks {
		if ch.err == nil {
			continue
		}
		if appErr, ok := errors.AsAppError(ch.err); ok {
			return appErr.WithDetail("section", ch.section)
		}
		return errors.InvalidConfig(fmt.Sprintf("%s: %v", ch.section, ch.err))
	}
	if c.usesFiles() {
		if err := c.Storage.Validate(); err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				return appErr.WithDetail("section", "storage")
			}
			return err
		}
	}

	for _, kind := range []string{c.Source.Kind, c.Sink.Kind} {
		switch {
		case kind == repository.KindTable && !c.Database.Enabled:
			return errors.InvalidConfig("table adapters require database.enabled")
		case kind == repository.KindTopic && !c.Kafka.Enabled:
			return errors.InvalidConfig("topic adapters require kafka.enabled")
		}
	}
	return nil
}

func (c *Config) usesFiles() bool {
	return c.Source.Kind == repository.KindFile || c.Sink.Kind == repository.KindFile
}
