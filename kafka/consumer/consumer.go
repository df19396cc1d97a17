// Package consumer reads a topic as a member of a consumer group with
// explicit commits.
package consumer

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/logger"
)

// Consumer wraps a kafka-go group Reader. Offsets are committed only when
// Commit is called.
type Consumer struct {
	reader  *kafkago.Reader
	topic   string
	groupID string
	log     *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a consumer for a single topic.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()

	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer: topic is required")
	}

	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer")

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafka.StartOffset(cfg.StartOffset),
		MinBytes:          1,
		MaxBytes:          10e6,
		ReadBackoffMax:    cfg.ReadTimeout,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", topic, "group_id", cfg.GroupID))
		}),
	})

	clog.Info("kafka consumer initialized", logger.Fields(
		"topic", topic,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))

	return &Consumer{
		reader:  reader,
		topic:   topic,
		groupID: cfg.GroupID,
		log:     clog,
	}, nil
}

// Fetch blocks until the next message arrives or ctx is done. Context
// errors are returned unwrapped; client errors become AppErrors.
func (c *Consumer) Fetch(ctx context.Context) (kafkago.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return kafkago.Message{}, ctx.Err()
		}
		return kafkago.Message{}, kafka.FromKafka(err, c.topic)
	}
	return msg, nil
}

// Commit marks msgs as processed for the group.
func (c *Consumer) Commit(ctx context.Context, msgs ...kafkago.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return kafka.FromKafka(err, c.topic)
	}
	return nil
}

// Topic returns the consumer's topic.
func (c *Consumer) Topic() string { return c.topic }

// Stats returns reader statistics.
func (c *Consumer) Stats() kafkago.ReaderStats { return c.reader.Stats() }

// Close shuts down the consumer and logs its final statistics. Calls after
// the first are no-ops.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		c.log.Info("kafka consumer closing", kafka.ReaderFields(c.reader.Stats()))
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}
