package repository

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/demandflow/demand"
	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/kafka"
	"github.com/kbukum/demandflow/kafka/consumer"
	"github.com/kbukum/demandflow/kafka/producer"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/pipeline"
)

// fetcher is the consumer surface the topic source needs.
type fetcher interface {
	Fetch(ctx context.Context) (kafkago.Message, error)
	Commit(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// publisher is the producer surface the topic sink needs.
type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// TopicSource consumes JSON ProductAnalytics messages. A topic has no natural
// end, so the source is exhausted once no message arrives within the idle
// timeout. Offsets of every message read are committed when the iterator
// closes.
type TopicSource struct {
	open  func() (fetcher, error)
	topic string
	idle  time.Duration
	log   *logger.Logger
}

// NewTopicSource returns a source consuming topic through the Kafka component.
func NewTopicSource(k *kafka.Component, topic string, idle time.Duration) *TopicSource {
	return &TopicSource{
		open: func() (fetcher, error) {
			c, err := consumer.NewConsumer(k.Config(), topic, k.Logger())
			if err != nil {
				return nil, err
			}
			k.Track(c)
			return c, nil
		},
		topic: topic,
		idle:  idle,
		log:   k.Logger().WithComponent("source"),
	}
}

// Open joins the consumer group.
func (s *TopicSource) Open(_ context.Context) (pipeline.Iterator[demand.ProductAnalytics], error) {
	f, err := s.open()
	if err != nil {
		return nil, errors.SourceFailed(err).WithDetail("topic", s.topic)
	}
	return &topicIter{src: s, fetch: f, last: make(map[int]kafkago.Message)}, nil
}

type topicIter struct {
	src   *TopicSource
	fetch fetcher
	last  map[int]kafkago.Message
}

func (it *topicIter) Next(ctx context.Context) (demand.ProductAnalytics, bool, error) {
	if err := ctx.Err(); err != nil {
		return demand.ProductAnalytics{}, false, err
	}
	fctx, cancel := context.WithTimeout(ctx, it.src.idle)
	msg, err := it.fetch.Fetch(fctx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return demand.ProductAnalytics{}, false, ctx.Err()
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			it.src.log.Info("topic idle, ending source", logger.Fields("topic", it.src.topic, "idle", it.src.idle.String()))
			return demand.ProductAnalytics{}, false, nil
		}
		return demand.ProductAnalytics{}, false, err
	}

	rec, err := demand.UnmarshalAnalytics(msg.Value)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			return demand.ProductAnalytics{}, false, appErr.WithDetails(map[string]any{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
			})
		}
		return demand.ProductAnalytics{}, false, err
	}
	it.last[msg.Partition] = msg
	return rec, true, nil
}

// Close commits the newest offset per partition and leaves the group.
func (it *topicIter) Close() error {
	msgs := make([]kafkago.Message, 0, len(it.last))
	for _, m := range it.last {
		msgs = append(msgs, m)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := it.fetch.Commit(ctx, msgs...)
	if cerr := it.fetch.Close(); err == nil {
		err = cerr
	}
	return err
}

// TopicSink publishes ProductDemand records as JSON, keyed by product id.
type TopicSink struct {
	open      func() (publisher, error)
	topic     string
	batchSize int
	log       *logger.Logger
}

// NewTopicSink returns a sink publishing to topic through the Kafka component.
func NewTopicSink(k *kafka.Component, topic string, batchSize int) *TopicSink {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &TopicSink{
		open: func() (publisher, error) {
			p, err := producer.NewProducer(k.Config(), k.Logger())
			if err != nil {
				return nil, err
			}
			k.Track(p)
			return p, nil
		},
		topic:     topic,
		batchSize: batchSize,
		log:       k.Logger().WithComponent("sink"),
	}
}

// Open creates the producer.
func (s *TopicSink) Open(ctx context.Context) (pipeline.Writer[demand.ProductDemand], error) {
	p, err := s.open()
	if err != nil {
		return nil, errors.SinkFailed(err).WithDetail("topic", s.topic)
	}
	return &topicWriter{ctx: ctx, sink: s, pub: p, batch: make([]kafkago.Message, 0, s.batchSize)}, nil
}

type topicWriter struct {
	ctx       context.Context
	sink      *TopicSink
	pub       publisher
	batch     []kafkago.Message
	published int
}

func (w *topicWriter) Write(ctx context.Context, v demand.ProductDemand) error {
	payload, err := demand.MarshalDemand(v)
	if err != nil {
		return errors.SinkFailed(err).WithDetail("id", v.ID)
	}
	w.batch = append(w.batch, producer.JSONMessage(w.sink.topic, strconv.FormatInt(v.ID, 10), payload))
	if len(w.batch) < w.sink.batchSize {
		return nil
	}
	return w.flush(ctx)
}

func (w *topicWriter) flush(ctx context.Context) error {
	if len(w.batch) == 0 {
		return nil
	}
	if err := w.pub.WriteMessages(ctx, w.batch...); err != nil {
		return err
	}
	w.published += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}

func (w *topicWriter) Flushed() int64 { return int64(w.published) }

// Close publishes the final partial batch and closes the producer.
func (w *topicWriter) Close() error {
	err := w.flush(w.ctx)
	if cerr := w.pub.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		w.sink.log.Info("topic sink flushed", logger.Fields("topic", w.sink.topic, "messages", w.published))
	}
	return err
}
