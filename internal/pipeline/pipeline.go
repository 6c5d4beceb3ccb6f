// Package pipeline runs one job message through decode, fetch, parse,
// enrich, redact, categorize and write.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"speech-analytics-pipeline/internal/decoder"
	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/service/transcription"
	"speech-analytics-pipeline/internal/sink"
)

// ErrDuplicate is returned for an operation already written within the
// dedupe window. Callers treat it as success.
var ErrDuplicate = errors.New("operation already processed")

// Fetcher retrieves the transcription for a job.
type Fetcher interface {
	Fetch(ctx context.Context, job models.JobDescriptor) (*transcription.FetchResult, error)
}

// RecordStage transforms a record in place or returns a replacement.
type RecordStage interface {
	Name() string
	Apply(ctx context.Context, rec *models.Record) (*models.Record, error)
}

// Deduper remembers processed operation ids.
type Deduper interface {
	IsSeen(key string) bool
	MarkSeen(key string)
}

// StageFunc adapts a function to RecordStage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, rec *models.Record) (*models.Record, error)
}

// Name returns the stage name.
func (s StageFunc) Name() string { return s.StageName }

// Apply runs the function.
func (s StageFunc) Apply(ctx context.Context, rec *models.Record) (*models.Record, error) {
	return s.Fn(ctx, rec)
}

// Config holds the pipeline collaborators.
type Config struct {
	Fetcher Fetcher
	// Stages run in order after parsing: enrich, redact, categorize.
	Stages      []RecordStage
	Sink        sink.Writer
	Dedupe      Deduper // optional
	StrictDates bool
	Metrics     *metrics.Metrics
}

// Pipeline processes job messages. It holds no per-record state and is safe
// for concurrent use.
type Pipeline struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.DefaultMetrics
	}
	return &Pipeline{cfg: cfg, logger: logging.WithComponent("pipeline")}
}

// Process runs payload through every stage and writes the resulting record.
// Every failure is returned with a kind recognized by Kind.
func (p *Pipeline) Process(ctx context.Context, payload []byte) (*models.Record, error) {
	start := time.Now()

	job, err := decoder.Decode(payload)
	if err != nil {
		return nil, err
	}
	log := logging.WithJob(job.OperationID, job.FileID)

	if p.cfg.Dedupe != nil && p.cfg.Dedupe.IsSeen(job.OperationID) {
		p.cfg.Metrics.RecordDuplicate()
		log.Info().Msg("Operation already processed, skipping")
		return nil, ErrDuplicate
	}

	rec, err := p.run(ctx, job, log)
	if err != nil {
		return nil, err
	}

	if p.cfg.Dedupe != nil {
		p.cfg.Dedupe.MarkSeen(job.OperationID)
	}
	log.Info().
		Int("words", len(rec.Words)).
		Int("entities", len(rec.Entities)).
		Int("sentences", len(rec.Sentences)).
		Dur("elapsed", time.Since(start)).
		Msg("Record written")
	return rec, nil
}

func (p *Pipeline) run(ctx context.Context, job models.JobDescriptor, log zerolog.Logger) (*models.Record, error) {
	t := time.Now()
	fetched, err := p.cfg.Fetcher.Fetch(ctx, job)
	if err != nil {
		return nil, &StageError{Stage: KindFetch, Err: err}
	}
	p.cfg.Metrics.RecordStage("fetch", time.Since(t).Seconds())
	if !fetched.Done {
		log.Warn().Msg("Parsing result of an incomplete operation")
	}

	t = time.Now()
	rec, err := transcription.Parse(fetched.Result, fetched.Job)
	var dateErr *transcription.DateParseError
	switch {
	case errors.As(err, &dateErr) && !p.cfg.StrictDates:
		log.Warn().Err(err).Msg("Unparseable date, writing null")
	case err != nil:
		return nil, &StageError{Stage: KindParse, Err: err}
	}
	p.cfg.Metrics.RecordStage("parse", time.Since(t).Seconds())

	for _, stage := range p.cfg.Stages {
		t = time.Now()
		rec, err = stage.Apply(ctx, rec)
		if err != nil {
			return nil, &StageError{Stage: stage.Name(), Err: err}
		}
		p.cfg.Metrics.RecordStage(stage.Name(), time.Since(t).Seconds())
	}

	t = time.Now()
	if err := p.cfg.Sink.Write(ctx, rec); err != nil {
		return nil, &StageError{Stage: KindSink, Err: err}
	}
	p.cfg.Metrics.RecordStage("sink", time.Since(t).Seconds())
	return rec, nil
}
