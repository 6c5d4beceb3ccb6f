// Package mock provides an STT operation client for running without cloud
// credentials. Operations report "not done" for a configurable number of polls
// and then complete with a canned two-speaker call.
package mock

import (
	"context"
	"sync"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/service/stt"
)

// DefaultResult is a short two-channel call: the agent on channel 1 and the
// caller on channel 2. Words also carry the matching speaker tag.
var DefaultResult = models.TranscriptionResult{
	Results: []models.SegmentResult{
		{
			ChannelTag: 1,
			Alternatives: []models.Alternative{{
				Transcript: "Thank you for calling, how can I help?",
				Confidence: 0.94,
				Words: []models.WordInfo{
					{Word: "Thank", StartTime: "0.400s", EndTime: "0.700s", Confidence: 0.95, SpeakerTag: 1},
					{Word: "you", StartTime: "0.700s", EndTime: "0.900s", Confidence: 0.97, SpeakerTag: 1},
					{Word: "for", StartTime: "0.900s", EndTime: "1.100s", Confidence: 0.96, SpeakerTag: 1},
					{Word: "calling,", StartTime: "1.100s", EndTime: "1.600s", Confidence: 0.93, SpeakerTag: 1},
					{Word: "how", StartTime: "1.800s", EndTime: "2s", Confidence: 0.92, SpeakerTag: 1},
					{Word: "can", StartTime: "2s", EndTime: "2.200s", Confidence: 0.94, SpeakerTag: 1},
					{Word: "I", StartTime: "2.200s", EndTime: "2.300s", Confidence: 0.98, SpeakerTag: 1},
					{Word: "help?", StartTime: "2.300s", EndTime: "2.700s", Confidence: 0.91, SpeakerTag: 1},
				},
			}},
		},
		{
			ChannelTag: 2,
			Alternatives: []models.Alternative{{
				Transcript: "I want to cancel my subscription.",
				Confidence: 0.91,
				Words: []models.WordInfo{
					{Word: "I", StartTime: "3.500s", EndTime: "3.600s", Confidence: 0.97, SpeakerTag: 2},
					{Word: "want", StartTime: "3.600s", EndTime: "3.900s", Confidence: 0.93, SpeakerTag: 2},
					{Word: "to", StartTime: "3.900s", EndTime: "4s", Confidence: 0.96, SpeakerTag: 2},
					{Word: "cancel", StartTime: "4s", EndTime: "4.500s", Confidence: 0.90, SpeakerTag: 2},
					{Word: "my", StartTime: "4.500s", EndTime: "4.700s", Confidence: 0.95, SpeakerTag: 2},
					{Word: "subscription.", StartTime: "4.700s", EndTime: "5.600s", Confidence: 0.89, SpeakerTag: 2},
				},
			}},
		},
	},
}

// Adapter implements stt.OperationClient with in-memory operations.
type Adapter struct {
	mu           sync.Mutex
	pendingPolls int                                    // polls answered "not done" per operation
	polls        map[string]int                         // polls seen per operation
	results      map[string]*models.TranscriptionResult // registered results by operation name
	failures     map[string]error                       // operations that finish with an error
}

// New creates a mock adapter whose operations complete after pendingPolls checks.
func New(pendingPolls int) *Adapter {
	return &Adapter{
		pendingPolls: pendingPolls,
		polls:        make(map[string]int),
		results:      make(map[string]*models.TranscriptionResult),
		failures:     make(map[string]error),
	}
}

// Add registers the result returned for name once it completes.
func (a *Adapter) Add(name string, result *models.TranscriptionResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[name] = result
}

// Fail makes name finish with err.
func (a *Adapter) Fail(name string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[name] = err
}

// Polls returns how many status checks name has received.
func (a *Adapter) Polls(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.polls[name]
}

// GetOperation performs one status check. Unknown names complete with DefaultResult.
func (a *Adapter) GetOperation(ctx context.Context, name string) (*stt.Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.polls[name]++
	if a.polls[name] <= a.pendingPolls {
		return &stt.Operation{Name: name}, nil
	}
	if err, ok := a.failures[name]; ok {
		return &stt.Operation{Name: name, Done: true, Err: err}, nil
	}

	result, ok := a.results[name]
	if !ok {
		r := DefaultResult
		result = &r
	}
	return &stt.Operation{Name: name, Done: true, Result: result}, nil
}
