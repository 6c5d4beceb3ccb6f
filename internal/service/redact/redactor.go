// Package redact masks sensitive spans in records that asked for redaction.
package redact

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
)

// Redactable masks sensitive spans in free text (DLP, mock, etc.).
type Redactable interface {
	MaskText(ctx context.Context, text string) (string, error)
}

// RedactionServiceError reports spans the redaction service failed to mask.
type RedactionServiceError struct {
	Failed int
	Total  int
	Err    error // first failure
}

func (e *RedactionServiceError) Error() string {
	return fmt.Sprintf("redaction failed for %d of %d spans: %v", e.Failed, e.Total, e.Err)
}

func (e *RedactionServiceError) Unwrap() error {
	return e.Err
}

// Redactor applies a Redactable to the transcript and to every word, entity
// name and sentence of a record.
type Redactor struct {
	masker      Redactable
	concurrency int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewRedactor creates a redactor issuing at most concurrency calls at once.
func NewRedactor(masker Redactable, concurrency int, m *metrics.Metrics) *Redactor {
	if concurrency < 1 {
		concurrency = 1
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Redactor{
		masker:      masker,
		concurrency: concurrency,
		metrics:     m,
		logger:      logging.WithComponent("redactor"),
	}
}

// span is one text field of a record.
type span struct {
	field string
	text  *string
}

// Redact returns rec itself unless its dlp flag is "true" or "True". Otherwise
// it masks a copy of rec; every span is attempted, and if any fail the copy is
// discarded and a *RedactionServiceError is returned. Array lengths and order
// are never changed.
func (r *Redactor) Redact(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if !models.DLPRequested(rec.DLP) {
		return rec, nil
	}

	out := rec.Clone()
	spans := make([]span, 0, 1+len(out.Words)+len(out.Entities)+len(out.Sentences))
	spans = append(spans, span{field: "transcript", text: &out.Transcript})
	for i := range out.Words {
		spans = append(spans, span{field: "word", text: &out.Words[i].Word})
	}
	for i := range out.Entities {
		spans = append(spans, span{field: "entity", text: &out.Entities[i].Name})
	}
	for i := range out.Sentences {
		spans = append(spans, span{field: "sentence", text: &out.Sentences[i].Sentence})
	}

	var (
		mu       sync.Mutex
		failed   int
		firstErr error
	)
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for _, s := range spans {
		g.Go(func() error {
			masked, err := r.masker.MaskText(ctx, *s.text)
			r.metrics.RecordRedaction(s.field, err)
			if err != nil {
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			*s.text = masked
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		r.logger.Warn().
			Str("operationId", rec.OperationID).
			Int("failed", failed).
			Int("spans", len(spans)).
			Err(firstErr).
			Msg("Redaction incomplete")
		return nil, &RedactionServiceError{Failed: failed, Total: len(spans), Err: firstErr}
	}
	return out, nil
}
