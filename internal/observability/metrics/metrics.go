// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "speech_analytics"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Message metrics
	MessagesConsumed  prometheus.Counter
	RecordsSucceeded  prometheus.Counter
	RecordsFailed     *prometheus.CounterVec
	RecordsInFlight   prometheus.Gauge
	DuplicatesSkipped prometheus.Counter
	RecordDuration    prometheus.Histogram

	// Stage metrics
	StageLatency *prometheus.HistogramVec

	// Transcription polling metrics
	PollAttempts          prometheus.Counter
	PollWaitSeconds       prometheus.Counter
	TranscriptionTimeouts prometheus.Counter

	// External call metrics
	ExternalCallLatency *prometheus.HistogramVec
	ExternalCallErrors  *prometheus.CounterVec

	// Redaction metrics
	RedactionSpans *prometheus.CounterVec

	// Sink metrics
	SinkWrites       *prometheus.CounterVec
	SinkWriteLatency *prometheus.HistogramVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates and registers all Prometheus metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Message metrics
		MessagesConsumed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total number of job messages consumed",
		}),
		RecordsSucceeded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_succeeded_total",
			Help:      "Total number of records enriched and written",
		}),
		RecordsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_failed_total",
			Help:      "Total number of records that failed, by error kind",
		}, []string{"kind"}),
		RecordsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_in_flight",
			Help:      "Number of records currently being processed",
		}),
		DuplicatesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      "Total number of job messages skipped as already processed",
		}),
		RecordDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "End-to-end processing time of one record",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}),

		// Stage metrics
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600, 1200},
		}, []string{"stage"}),

		// Transcription polling metrics
		PollAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_poll_attempts_total",
			Help:      "Total number of operation status checks",
		}),
		PollWaitSeconds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_poll_wait_seconds_total",
			Help:      "Total time spent sleeping between status checks",
		}),
		TranscriptionTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_timeouts_total",
			Help:      "Total number of operations that never completed",
		}),

		// External call metrics
		ExternalCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_latency_seconds",
			Help:      "Latency of calls to external services",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method"}),
		ExternalCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_call_errors_total",
			Help:      "Total number of failed calls to external services",
		}, []string{"method", "code"}),

		// Redaction metrics
		RedactionSpans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redaction_spans_total",
			Help:      "Total number of text spans sent for redaction",
		}, []string{"field", "result"}),

		// Sink metrics
		SinkWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Total number of record writes per sink backend",
		}, []string{"backend", "result"}),
		SinkWriteLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_latency_seconds",
			Help:      "Record write latency per sink backend",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"backend"}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordMessageConsumed records a job message read from the input topic.
func (m *Metrics) RecordMessageConsumed() {
	m.MessagesConsumed.Inc()
}

// RecordStart marks a record as in flight.
func (m *Metrics) RecordStart() {
	m.RecordsInFlight.Inc()
}

// RecordEnd records a record leaving the pipeline. kind is empty on success.
func (m *Metrics) RecordEnd(kind string, durationSeconds float64) {
	m.RecordsInFlight.Dec()
	m.RecordDuration.Observe(durationSeconds)
	if kind == "" {
		m.RecordsSucceeded.Inc()
	} else {
		m.RecordsFailed.WithLabelValues(kind).Inc()
	}
}

// RecordDuplicate records a message skipped by deduplication.
func (m *Metrics) RecordDuplicate() {
	m.DuplicatesSkipped.Inc()
}

// RecordStage records the latency of one pipeline stage.
func (m *Metrics) RecordStage(stage string, seconds float64) {
	m.StageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordPoll records one operation status check.
func (m *Metrics) RecordPoll() {
	m.PollAttempts.Inc()
}

// RecordPollWait records time spent waiting between status checks.
func (m *Metrics) RecordPollWait(seconds float64) {
	m.PollWaitSeconds.Add(seconds)
}

// RecordTranscriptionTimeout records an operation that never completed.
func (m *Metrics) RecordTranscriptionTimeout() {
	m.TranscriptionTimeouts.Inc()
}

// RecordExternalCall records a call to an external service. code is empty on success.
func (m *Metrics) RecordExternalCall(method, code string, latencySeconds float64) {
	m.ExternalCallLatency.WithLabelValues(method).Observe(latencySeconds)
	if code != "" {
		m.ExternalCallErrors.WithLabelValues(method, code).Inc()
	}
}

// RecordRedaction records one redacted span.
func (m *Metrics) RecordRedaction(field string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RedactionSpans.WithLabelValues(field, result).Inc()
}

// RecordSinkWrite records a write to a sink backend.
func (m *Metrics) RecordSinkWrite(backend string, err error, latencySeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SinkWrites.WithLabelValues(backend, result).Inc()
	m.SinkWriteLatency.WithLabelValues(backend).Observe(latencySeconds)
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
