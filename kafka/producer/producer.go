// Package producer publishes batches of messages to Kafka with retries.
package producer

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/resilience"
)

// ContentTypeJSON is set as the content-type header on JSON payloads.
const ContentTypeJSON = "application/json"

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer wraps a kafka-go Writer with TLS/SASL, retries and logging.
type Producer struct {
	writer messageWriter
	cfg    kafka.Config
	retry  resilience.RetryConfig
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a Kafka producer.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()

	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}

	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.ResolveCompression(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		MaxAttempts:  1,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}

	plog.Info("kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"compression", cfg.Compression,
		"batch_size", cfg.BatchSize,
	))
	return newProducer(w, cfg, plog), nil
}

func newProducer(w messageWriter, cfg kafka.Config, log *logger.Logger) *Producer {
	retry := cfg.Retry.RetryConfig(log, "kafka write")
	retry.RetryIf = func(err error) bool {
		return resilience.DefaultRetryIf(err) && kafka.IsRetryableError(err)
	}
	return &Producer{writer: w, cfg: cfg, retry: retry, log: log}
}

// WriteMessages sends msgs as one batch, retrying transient failures.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New(errors.ErrCodeSinkFailed, "producer is closed")
	}
	if len(msgs) == 0 {
		return nil
	}

	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return kafka.FromKafka(err, msgs[0].Topic).WithDetail("batch", len(msgs))
	}
	return nil
}

// JSONMessage builds a message for topic carrying a JSON payload.
func JSONMessage(topic, key string, payload []byte) kafkago.Message {
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte(ContentTypeJSON)},
		},
	}
}

// Stats returns writer statistics.
func (p *Producer) Stats() kafkago.WriterStats {
	return p.writer.Stats()
}

// Close flushes pending messages and shuts down the producer. Safe to call
// more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	err := p.writer.Close()
	p.log.Info("kafka producer closed", kafka.WriterFields(p.writer.Stats()))
	return err
}
