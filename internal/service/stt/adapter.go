// Package stt defines the client used to check long-running transcription operations.
package stt

import (
	"context"

	"speech-analytics-pipeline/internal/models"
)

// Operation is the status of a long-running recognition.
type Operation struct {
	Name string
	Done bool

	// Result is the recognition response; nil until the operation is done.
	Result *models.TranscriptionResult

	// Err is set when the operation finished with an error status.
	Err error
}

// OperationClient checks the status of long-running recognition operations
// (Google, mock, etc.).
type OperationClient interface {
	// GetOperation performs one status check of the named operation.
	GetOperation(ctx context.Context, name string) (*Operation, error)
}
