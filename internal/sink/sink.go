// Package sink writes enriched records to one or more storage backends.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/metrics"
)

// Writer appends records to a backend (ClickHouse, PostgreSQL, etc.).
type Writer interface {
	Name() string
	Write(ctx context.Context, rec *models.Record) error
	Close() error
}

// WriteError is a failed write to one backend.
type WriteError struct {
	Backend string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Multi fans a record out to every configured writer.
type Multi struct {
	writers []Writer
	metrics *metrics.Metrics
}

// NewMulti creates a fan-out writer.
func NewMulti(m *metrics.Metrics, writers ...Writer) *Multi {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Multi{writers: writers, metrics: m}
}

// Name lists the backends.
func (m *Multi) Name() string {
	names := make([]string, len(m.writers))
	for i, w := range m.writers {
		names[i] = w.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Write writes rec to every backend, even after a failure. The returned
// error joins a *WriteError per failed backend.
func (m *Multi) Write(ctx context.Context, rec *models.Record) error {
	var errs []error
	for _, w := range m.writers {
		start := time.Now()
		err := w.Write(ctx, rec)
		m.metrics.RecordSinkWrite(w.Name(), err, time.Since(start).Seconds())
		if err != nil {
			errs = append(errs, &WriteError{Backend: w.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend.
func (m *Multi) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, &WriteError{Backend: w.Name(), Err: err})
		}
	}
	return errors.Join(errs...)
}
