// Package models defines the data structures flowing through the enrichment pipeline.
package models

// DurationUnknown is the duration placeholder sent when the producer could not
// probe the audio length.
const DurationUnknown = "NA"

// JobMessage is the wire shape of a job-completion notification as published
// to the input topic. All values are strings.
type JobMessage struct {
	OperationID string `json:"sttnameid"`
	FileID      string `json:"fileid"`
	DLP         string `json:"dlp"`
	FileName    string `json:"filename"`
	CallID      string `json:"callid"`
	Date        string `json:"date"`
	Year        string `json:"year"`
	Month       string `json:"month"`
	Day         string `json:"day"`
	StartTime   string `json:"starttime"`
	Duration    string `json:"duration"`
	Stereo      string `json:"stereo"`
}

// JobDescriptor is the decoded, immutable description of one transcription job.
type JobDescriptor struct {
	OperationID string
	FileID      string
	FileName    string
	CallID      string
	DLP         string
	SourceDate  string
	Year        *int
	Month       *int
	Day         *int
	StartTime   string
	Duration    string
	IsStereo    bool
}

// DLPRequested reports whether the job asked for redaction.
func (j JobDescriptor) DLPRequested() bool {
	return DLPRequested(j.DLP)
}

// DLPRequested accepts exactly the two spellings the producers emit.
func DLPRequested(v string) bool {
	return v == "true" || v == "True"
}
