package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func TestRecordEnd_SuccessAndFailure(t *testing.T) {
	m := newTestMetrics()

	m.RecordStart()
	m.RecordStart()
	m.RecordEnd("", 1.5)
	m.RecordEnd("timeout", 1200)

	if got := testutil.ToFloat64(m.RecordsSucceeded); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsFailed.WithLabelValues("timeout")); got != 1 {
		t.Errorf("expected 1 timeout failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsInFlight); got != 0 {
		t.Errorf("expected 0 in flight, got %v", got)
	}
}

func TestRecordRedaction(t *testing.T) {
	m := newTestMetrics()

	m.RecordRedaction("word", nil)
	m.RecordRedaction("word", nil)
	m.RecordRedaction("sentence", errors.New("quota"))

	if got := testutil.ToFloat64(m.RedactionSpans.WithLabelValues("word", "ok")); got != 2 {
		t.Errorf("expected 2 ok word spans, got %v", got)
	}
	if got := testutil.ToFloat64(m.RedactionSpans.WithLabelValues("sentence", "error")); got != 1 {
		t.Errorf("expected 1 failed sentence span, got %v", got)
	}
}

func TestRecordExternalCall_ErrorsOnlyWithCode(t *testing.T) {
	m := newTestMetrics()

	m.RecordExternalCall("/google.cloud.language.v1.LanguageService/AnalyzeSentiment", "", 0.2)
	m.RecordExternalCall("/google.cloud.language.v1.LanguageService/AnalyzeSentiment", "Unavailable", 0.1)

	if got := testutil.CollectAndCount(m.ExternalCallErrors); got != 1 {
		t.Errorf("expected 1 error series, got %d", got)
	}
}

func TestRecordKafkaPublish(t *testing.T) {
	m := newTestMetrics()

	m.RecordKafkaPublish("stt.jobs.dlq", "dead_letter", nil, 0.01)
	m.RecordKafkaPublish("stt.jobs.dlq", "dead_letter", errors.New("broker down"), 0.5)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("stt.jobs.dlq", "dead_letter")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("stt.jobs.dlq", "dead_letter")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}
