// Package consumer reads job messages from Kafka, runs them through the
// pipeline with bounded parallelism and commits or dead-letters each one.
package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-analytics-pipeline/internal/events"
	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/pipeline"
)

const commitTimeout = 10 * time.Second

// messageReader is the subset of *kafka.Reader used by the consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Processor runs one job payload to completion.
type Processor interface {
	Process(ctx context.Context, payload []byte) (*models.Record, error)
}

// DeadLetterPublisher receives messages that failed processing.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, dl events.DeadLetter) error
}

// Config holds consumer configuration.
type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	Concurrency   int           // records processed in parallel
	RecordTimeout time.Duration // upper bound for one record, polling included
}

// Consumer drives the input topic. Offsets are committed manually once a
// message is written or dead-lettered.
type Consumer struct {
	reader  messageReader
	proc    Processor
	dlq     DeadLetterPublisher
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a consumer group reader on cfg.Topic.
func New(cfg Config, proc Processor, dlq DeadLetterPublisher, m *metrics.Metrics) *Consumer {
	cfg = withDefaults(cfg)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		QueueCapacity:  cfg.Concurrency,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	return newConsumer(reader, cfg, proc, dlq, m)
}

func newConsumer(reader messageReader, cfg Config, proc Processor, dlq DeadLetterPublisher, m *metrics.Metrics) *Consumer {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Consumer{
		reader:  reader,
		proc:    proc,
		dlq:     dlq,
		cfg:     withDefaults(cfg),
		metrics: m,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = 30 * time.Minute
	}
	return cfg
}

// Run consumes until ctx is canceled or the reader is closed. Up to
// Concurrency records are in flight at once; a slot is refilled as soon as
// any record finishes.
func (c *Consumer) Run(ctx context.Context) error {
	log.Info().
		Str("topic", c.cfg.Topic).
		Str("group", c.cfg.GroupID).
		Int("concurrency", c.cfg.Concurrency).
		Dur("recordTimeout", c.cfg.RecordTimeout).
		Msg("Consumer started")

	var (
		wg      sync.WaitGroup
		slots   = make(chan struct{}, c.cfg.Concurrency)
		pending = newOffsetTracker()
	)

	for ctx.Err() == nil {
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			continue
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			<-slots
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				break
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		pending.add(msg)
		wg.Add(1)
		go func() {
			defer func() {
				<-slots
				wg.Done()
			}()
			ok := c.handle(ctx, msg)
			pending.complete(msg, ok, func(ready []kafka.Message) {
				c.commit(ctx, ready)
			})
		}()
	}

	wg.Wait()
	log.Info().Msg("Consumer stopped")
	return nil
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// commit outlives ctx so records finished during shutdown are not replayed.
func (c *Consumer) commit(ctx context.Context, msgs []kafka.Message) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := c.reader.CommitMessages(commitCtx, msgs...); err != nil {
		log.Error().Err(err).Int("messages", len(msgs)).Msg("Failed to commit offsets")
	}
}

// handle processes one message and reports whether its offset may be committed.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) bool {
	logger := logging.WithMessage(msg.Topic, msg.Partition, msg.Offset).
		With().Str("processingId", uuid.NewString()).Logger()

	c.metrics.RecordMessageConsumed()
	c.metrics.RecordStart()
	start := time.Now()

	recCtx, cancel := context.WithTimeout(ctx, c.cfg.RecordTimeout)
	_, err := c.proc.Process(recCtx, msg.Value)
	cancel()

	if err == nil || errors.Is(err, pipeline.ErrDuplicate) {
		c.metrics.RecordEnd("", time.Since(start).Seconds())
		return true
	}

	// Deadline of the record context is a timeout; the parent being
	// canceled is shutdown.
	kind := pipeline.Kind(err)
	if ctx.Err() != nil {
		kind = pipeline.KindCanceled
	}
	c.metrics.RecordEnd(kind, time.Since(start).Seconds())

	if kind == pipeline.KindCanceled {
		logger.Info().Err(err).Msg("Record interrupted by shutdown, leaving uncommitted")
		return false
	}

	logger.Warn().Err(err).Str("errorKind", kind).Msg("Record failed")
	if err := c.dlq.PublishDeadLetter(ctx, events.DeadLetter{Message: msg, Err: err, Kind: kind}); err != nil {
		logger.Error().Err(err).Msg("Dead-letter write failed, leaving uncommitted")
		return false
	}
	return true
}
