// Package events publishes dead-lettered job messages and enriched records to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/retry"
)

const (
	eventDeadLetter = "dead_letter"
	eventEnriched   = "record.enriched"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers         []string
	DeadLetterTopic string
	EnrichedTopic   string // empty disables enriched output
	Service         string
	Retry           retry.Policy
}

// DeadLetter is a job message that could not be processed.
type DeadLetter struct {
	Message kafka.Message
	Err     error
	Kind    string
}

// Publisher writes to the dead-letter and enriched-record topics. Without
// brokers it only logs.
type Publisher struct {
	dlqWriter      messageWriter
	enrichedWriter messageWriter
	dlqTopic       string
	enrichedTopic  string
	service        string
	policy         retry.Policy
	enabled        bool
	metrics        *metrics.Metrics
	closeOnce      sync.Once
	now            func() time.Time
}

// New creates a Kafka event publisher.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m, now: time.Now}
	}

	p := &Publisher{
		dlqTopic:      cfg.DeadLetterTopic,
		enrichedTopic: cfg.EnrichedTopic,
		service:       cfg.Service,
		policy:        cfg.Retry,
		metrics:       m,
		now:           time.Now,
	}
	if len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireAll,
			Transport:    transport,
		}
	}

	p.dlqWriter = newWriter(cfg.DeadLetterTopic)
	if cfg.EnrichedTopic != "" {
		p.enrichedWriter = newWriter(cfg.EnrichedTopic)
	}
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("dlqTopic", cfg.DeadLetterTopic).
		Str("enrichedTopic", cfg.EnrichedTopic).
		Msg("Kafka publisher initialized")
	return p
}

// PublishDeadLetter forwards the original payload to the dead-letter topic
// with the failure attached as headers. Writes are retried; the error is
// returned only when every attempt failed.
func (p *Publisher) PublishDeadLetter(ctx context.Context, dl DeadLetter) error {
	msg := p.deadLetterMessage(dl)
	log.Warn().
		Str("topic", p.dlqTopic).
		Int("partition", dl.Message.Partition).
		Int64("offset", dl.Message.Offset).
		Str("errorKind", dl.Kind).
		Err(dl.Err).
		Msg("Dead-lettering message")
	return p.publish(ctx, p.dlqWriter, p.dlqTopic, eventDeadLetter, msg)
}

// PublishEnriched writes the record to the enriched topic keyed by file id.
func (p *Publisher) PublishEnriched(ctx context.Context, rec *models.Record) error {
	if p.enrichedTopic == "" {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("topic", p.enrichedTopic).Msg("Failed to marshal record")
		return err
	}
	msg := kafka.Message{
		Key:   []byte(rec.FileID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventEnriched)},
			{Key: "service", Value: []byte(p.service)},
			{Key: "sttnameid", Value: []byte(rec.OperationID)},
		},
	}
	return p.publish(ctx, p.enrichedWriter, p.enrichedTopic, eventEnriched, msg)
}

// Name identifies the publisher as a sink backend.
func (p *Publisher) Name() string {
	return "kafka"
}

// Write implements sink.Writer by publishing to the enriched topic.
func (p *Publisher) Write(ctx context.Context, rec *models.Record) error {
	return p.PublishEnriched(ctx, rec)
}

func (p *Publisher) deadLetterMessage(dl DeadLetter) kafka.Message {
	errText := ""
	if dl.Err != nil {
		errText = dl.Err.Error()
	}
	headers := make([]kafka.Header, 0, len(dl.Message.Headers)+6)
	headers = append(headers, dl.Message.Headers...)
	headers = append(headers,
		kafka.Header{Key: "error", Value: []byte(errText)},
		kafka.Header{Key: "error_kind", Value: []byte(dl.Kind)},
		kafka.Header{Key: "original_topic", Value: []byte(dl.Message.Topic)},
		kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(dl.Message.Partition))},
		kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(dl.Message.Offset, 10))},
		kafka.Header{Key: "timestamp", Value: []byte(p.now().UTC().Format(time.RFC3339))},
	)
	return kafka.Message{
		Key:     dl.Message.Key,
		Value:   dl.Message.Value,
		Headers: headers,
	}
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType string, msg kafka.Message) error {
	start := time.Now()

	log.Debug().
		Str("topic", topic).
		Str("key", string(msg.Key)).
		Str("eventType", eventType).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	err := retry.Do(ctx, p.policy, func(ctx context.Context) error {
		err := writer.WriteMessages(ctx, msg)
		if err != nil && ctx.Err() == nil {
			return retry.Transient(err)
		}
		return err
	})
	p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", string(msg.Key)).
			Msg("Failed to write to Kafka")
		return err
	}
	return nil
}

// Close closes the Kafka writers. It is safe to call more than once.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.dlqWriter != nil {
			if e := p.dlqWriter.Close(); e != nil {
				log.Error().Err(e).Msg("Error closing dead-letter writer")
				err = e
			}
		}
		if p.enrichedWriter != nil {
			if e := p.enrichedWriter.Close(); e != nil {
				log.Error().Err(e).Msg("Error closing enriched writer")
				err = e
			}
		}
	})
	return err
}
