package config

import (
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/validation"
)

// ServiceConfig is the part of the configuration every binary shares. Embed
// it squashed so its keys sit at the root of the file:
//
//	type Config struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Pipeline PipelineConfig `mapstructure:"pipeline"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string        `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// GetServiceConfig is promoted through embedding, which is how an
// application config satisfies bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults turns on Debug in development. Embedding configs call it
// before their own defaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Debug = c.Debug || c.Environment == "development"
	c.Logging.ApplyDefaults()
}

// Validate also checks the logging section.
func (c *ServiceConfig) Validate() error {
	return validation.Validate(c)
}
