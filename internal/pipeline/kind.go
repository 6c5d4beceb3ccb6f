package pipeline

import (
	"context"
	"errors"
	"fmt"

	"speech-analytics-pipeline/internal/decoder"
	"speech-analytics-pipeline/internal/service/categorize"
	"speech-analytics-pipeline/internal/service/nlp"
	"speech-analytics-pipeline/internal/service/redact"
	"speech-analytics-pipeline/internal/service/transcription"
	"speech-analytics-pipeline/internal/sink"
)

// Error kinds used as metric labels and dead-letter headers.
const (
	KindDecode     = "decode"
	KindFetch      = "fetch"
	KindTimeout    = "timeout"
	KindOperation  = "operation"
	KindDate       = "date"
	KindParse      = "parse"
	KindAnalysis   = "analysis"
	KindRedaction  = "redaction"
	KindCategorize = "categorize"
	KindSink       = "sink"
	KindCanceled   = "canceled"
	KindUnknown    = "unknown"
)

// StageError attributes a failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Kind maps err to a stable label. Cancellation wins over every other kind so
// records interrupted by shutdown are not dead-lettered.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var (
		decodeErr    *decoder.DecodeError
		opErr        *transcription.OperationError
		dateErr      *transcription.DateParseError
		analysisErr  *nlp.AnalysisServiceError
		redactErr    *redact.RedactionServiceError
		categorizErr *categorize.CategorizeError
		writeErr     *sink.WriteError
		stageErr     *StageError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.Is(err, transcription.ErrTranscriptionTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &opErr):
		return KindOperation
	case errors.As(err, &dateErr):
		return KindDate
	case errors.Is(err, transcription.ErrNoWords), errors.Is(err, transcription.ErrMalformedTiming):
		return KindParse
	case errors.As(err, &analysisErr):
		return KindAnalysis
	case errors.As(err, &redactErr):
		return KindRedaction
	case errors.As(err, &categorizErr):
		return KindCategorize
	case errors.As(err, &writeErr):
		return KindSink
	case errors.As(err, &stageErr):
		return stageErr.Stage
	default:
		return KindUnknown
	}
}
