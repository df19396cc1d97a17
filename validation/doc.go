// Package validation validates configuration and records with struct tags
// (github.com/go-playground/validator) and reports failures as AppErrors.
//
//	type PipelineConfig struct {
//	    Workers int `mapstructure:"workers" validate:"min=1"`
//	}
//	err := validation.Validate(cfg)
package validation
