package transcription

import (
	"errors"
	"fmt"
)

// ErrTranscriptionTimeout is returned when an operation is still running after
// the last scheduled status check.
var ErrTranscriptionTimeout = errors.New("transcription operation did not complete")

// ErrNoWords is returned when a completed transcription carries no word timings.
var ErrNoWords = errors.New("transcription has no words")

// OperationError is a completed operation that finished with an error status.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// DateParseError reports a source date that could not be interpreted.
type DateParseError struct {
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("unparseable date %q: %v", e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// ErrMalformedTiming is returned when a word time offset is not a decimal
// number of seconds.
var ErrMalformedTiming = errors.New("malformed word time offset")
