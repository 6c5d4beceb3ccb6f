// Package decoder turns raw job-completion payloads into job descriptors.
package decoder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"speech-analytics-pipeline/internal/models"
)

// DecodeError reports a malformed inbound message.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode job message: %v", e.Err)
	}
	return fmt.Sprintf("decode job message: field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	errMissing    = errors.New("missing required value")
	errInvalidUTF = errors.New("payload is not valid UTF-8")
)

// flexString accepts JSON strings, numbers, booleans and null.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*f = flexString(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("unsupported value %s", b)
		}
		*f = flexString(n.String())
	}
	return nil
}

type wireMessage struct {
	OperationID flexString `json:"sttnameid"`
	FileID      flexString `json:"fileid"`
	DLP         flexString `json:"dlp"`
	FileName    flexString `json:"filename"`
	CallID      flexString `json:"callid"`
	Date        flexString `json:"date"`
	Year        flexString `json:"year"`
	Month       flexString `json:"month"`
	Day         flexString `json:"day"`
	StartTime   flexString `json:"starttime"`
	Duration    flexString `json:"duration"`
	Stereo      flexString `json:"stereo"`
}

// Decode parses a UTF-8 JSON payload into a JobDescriptor.
func Decode(payload []byte) (models.JobDescriptor, error) {
	if !utf8.Valid(payload) {
		return models.JobDescriptor{}, &DecodeError{Err: errInvalidUTF}
	}

	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return models.JobDescriptor{}, &DecodeError{Err: err}
	}

	job := models.JobDescriptor{
		OperationID: strings.TrimSpace(string(msg.OperationID)),
		FileID:      string(msg.FileID),
		FileName:    string(msg.FileName),
		CallID:      string(msg.CallID),
		DLP:         string(msg.DLP),
		SourceDate:  string(msg.Date),
		StartTime:   string(msg.StartTime),
		Duration:    normalizeDuration(string(msg.Duration)),
	}
	if job.OperationID == "" {
		return models.JobDescriptor{}, &DecodeError{Field: "sttnameid", Err: errMissing}
	}

	stereo, err := parseStereo(string(msg.Stereo))
	if err != nil {
		return models.JobDescriptor{}, &DecodeError{Field: "stereo", Err: err}
	}
	job.IsStereo = stereo

	for _, f := range []struct {
		name string
		raw  flexString
		dst  **int
	}{
		{"year", msg.Year, &job.Year},
		{"month", msg.Month, &job.Month},
		{"day", msg.Day, &job.Day},
	} {
		v, err := parseOptionalInt(string(f.raw))
		if err != nil {
			return models.JobDescriptor{}, &DecodeError{Field: f.name, Err: err}
		}
		*f.dst = v
	}

	return job, nil
}

func parseStereo(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, errMissing
	default:
		return false, fmt.Errorf("expected true or false, got %q", raw)
	}
}

// parseOptionalInt treats empty and "undefined" (what the producer emits for
// absent metadata) as null.
func parseOptionalInt(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" || raw == "null" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func normalizeDuration(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "undefined" {
		return models.DurationUnknown
	}
	return raw
}
