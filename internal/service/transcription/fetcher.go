// Package transcription polls long-running recognition operations and
// flattens their results into output records.
package transcription

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/service/stt"
)

// TimeoutPolicy decides what happens when retries run out before the
// operation completes.
type TimeoutPolicy string

const (
	// TimeoutFail fails the record with ErrTranscriptionTimeout.
	TimeoutFail TimeoutPolicy = "fail"
	// TimeoutBestEffort returns the last response with Done=false.
	TimeoutBestEffort TimeoutPolicy = "best_effort"
)

// FetchConfig is the polling schedule.
type FetchConfig struct {
	MinInitialWait time.Duration
	RetryInterval  time.Duration
	MaxRetries     int
	TimeoutPolicy  TimeoutPolicy
}

// DefaultFetchConfig waits at least 5s after the first check, then checks up
// to 10 more times two minutes apart.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		MinInitialWait: 5 * time.Second,
		RetryInterval:  120 * time.Second,
		MaxRetries:     10,
		TimeoutPolicy:  TimeoutFail,
	}
}

// FetchResult bundles the operation outcome with the job that referenced it.
type FetchResult struct {
	Job    models.JobDescriptor
	Done   bool
	Result *models.TranscriptionResult
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Fetcher polls an operation until it completes or the schedule is exhausted.
type Fetcher struct {
	client  stt.OperationClient
	cfg     FetchConfig
	metrics *metrics.Metrics
	sleep   SleepFunc
	logger  zerolog.Logger
}

// NewFetcher creates a fetcher that sleeps on the wall clock.
func NewFetcher(client stt.OperationClient, cfg FetchConfig, m *metrics.Metrics) *Fetcher {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		metrics: m,
		sleep:   sleepContext,
		logger:  logging.WithComponent("fetcher"),
	}
}

// WithSleep replaces the sleep function, mostly for tests.
func (f *Fetcher) WithSleep(sleep SleepFunc) *Fetcher {
	f.sleep = sleep
	return f
}

// Fetch checks the job's operation immediately and returns without waiting
// when it is already done. Otherwise it waits InitialWait(job.Duration),
// checks again, then checks up to MaxRetries more times RetryInterval apart.
func (f *Fetcher) Fetch(ctx context.Context, job models.JobDescriptor) (*FetchResult, error) {
	log := f.logger.With().Str("operationId", job.OperationID).Logger()

	op, err := f.check(ctx, job.OperationID)
	if err != nil {
		return nil, err
	}

	wait := f.InitialWait(job.Duration)
	for attempt := 0; !op.Done && attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait = f.cfg.RetryInterval
		}
		log.Debug().
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Operation pending, waiting")

		if err := f.sleep(ctx, wait); err != nil {
			return nil, err
		}
		f.metrics.RecordPollWait(wait.Seconds())

		op, err = f.check(ctx, job.OperationID)
		if err != nil {
			return nil, err
		}
	}

	if !op.Done {
		f.metrics.RecordTranscriptionTimeout()
		if f.cfg.TimeoutPolicy == TimeoutBestEffort {
			log.Warn().Msg("Operation still pending after last check, continuing with partial result")
			return &FetchResult{Job: job, Done: false, Result: op.Result}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrTranscriptionTimeout, job.OperationID)
	}
	if op.Err != nil {
		return nil, &OperationError{Operation: job.OperationID, Err: op.Err}
	}

	log.Debug().Msg("Operation complete")
	return &FetchResult{Job: job, Done: true, Result: op.Result}, nil
}

// InitialWait is half the audio duration, never less than MinInitialWait.
// Unknown or unparseable durations wait MinInitialWait.
func (f *Fetcher) InitialWait(duration string) time.Duration {
	secs, err := strconv.ParseFloat(duration, 64)
	if duration == models.DurationUnknown || err != nil || secs <= 0 {
		return f.cfg.MinInitialWait
	}
	half := time.Duration(secs / 2 * float64(time.Second))
	if half < f.cfg.MinInitialWait {
		return f.cfg.MinInitialWait
	}
	return half
}

func (f *Fetcher) check(ctx context.Context, name string) (*stt.Operation, error) {
	f.metrics.RecordPoll()
	op, err := f.client.GetOperation(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get operation %s: %w", name, err)
	}
	return op, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
