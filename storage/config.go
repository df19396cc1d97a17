package storage

import (
	"github.com/kbukum/demandflow/validation"
)

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "."
	DefaultRegion   = "us-east-1"
)

// Config selects and configures the object store that file sources and
// sinks read from and write to.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider" validate:"oneof=local s3"`

	// BasePath roots the local provider. Object paths never escape it.
	BasePath string `mapstructure:"base_path" json:"base_path" validate:"required_if=Provider local"`

	Bucket string `mapstructure:"bucket" json:"bucket" validate:"required_if=Provider s3"`
	Region string `mapstructure:"region" json:"region" validate:"required_if=Provider s3"`
	// Endpoint points the s3 provider at an S3-compatible server such as MinIO.
	Endpoint       string `mapstructure:"endpoint" json:"endpoint" validate:"omitempty,url"`
	ForcePathStyle bool   `mapstructure:"force_path_style" json:"force_path_style"`

	// Static credentials. When both are empty the default AWS chain is used.
	AccessKey string `mapstructure:"access_key" json:"access_key" validate:"required_with=SecretKey"`
	SecretKey string `mapstructure:"secret_key" json:"-" validate:"required_with=AccessKey"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate returns an INVALID_CONFIG error naming every bad field.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
