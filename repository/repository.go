package repository

import (
	"fmt"

	"github.com/kbukum/demandflow/database"
	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
	"github.com/kbukum/demandflow/storage"
)

// Deps are the backends an adapter may need. Only the one matching the
// configured kind has to be set.
type Deps struct {
	Storage storage.Storage
	DB      *database.DB
	Kafka   *kafka.Component
	Log     *logger.Logger
}

func (d Deps) logger() *logger.Logger {
	if d.Log == nil {
		return logger.GetGlobalLogger()
	}
	return d.Log
}

// NewSource builds the input adapter selected by cfg.Kind.
func NewSource(cfg SourceConfig, deps Deps) (pipeline.Source[demand.ProductAnalytics], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := deps.logger().WithComponent("source")

	switch cfg.Kind {
	case KindFile:
		if deps.Storage == nil {
			return nil, missing("storage", cfg.Kind)
		}
		return NewFileSource(deps.Storage, cfg.Path, log), nil
	case KindTable:
		if deps.DB == nil {
			return nil, missing("database", cfg.Kind)
		}
		return NewTableSource(deps.DB, cfg.PageSize, log), nil
	case KindTopic:
		if deps.Kafka == nil {
			return nil, missing("kafka", cfg.Kind)
		}
		return NewTopicSource(deps.Kafka, cfg.Topic, cfg.IdleTimeout), nil
	}
	return nil, errors.InvalidConfig(fmt.Sprintf("unknown source kind %q", cfg.Kind))
}

// NewSink builds the output adapter selected by cfg.Kind.
func NewSink(cfg SinkConfig, deps Deps) (pipeline.Sink[demand.ProductDemand], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := deps.logger().WithComponent("sink")

	switch cfg.Kind {
	case KindFile:
		if deps.Storage == nil {
			return nil, missing("storage", cfg.Kind)
		}
		return NewFileSink(deps.Storage, cfg.Path, log), nil
	case KindTable:
		if deps.DB == nil {
			return nil, missing("database", cfg.Kind)
		}
		return NewTableSink(deps.DB, cfg.BatchSize, cfg.Retry.RetryConfig(log, "insert batch"), log), nil
	case KindTopic:
		if deps.Kafka == nil {
			return nil, missing("kafka", cfg.Kind)
		}
		return NewTopicSink(deps.Kafka, cfg.Topic, cfg.BatchSize), nil
	}
	return nil, errors.InvalidConfig(fmt.Sprintf("unknown sink kind %q", cfg.Kind))
}

func missing(dep, kind string) error {
	return errors.InvalidConfig(fmt.Sprintf("%s adapter requires %s to be enabled", kind, dep))
}
