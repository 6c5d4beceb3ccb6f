// Package google provides a Google Cloud Speech-to-Text operation client.
package google

import (
	"context"
	"encoding/json"
	"fmt"

	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"
	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/retry"
	"speech-analytics-pipeline/internal/service/gcp"
	"speech-analytics-pipeline/internal/service/stt"
)

// Adapter implements stt.OperationClient using the Speech-to-Text
// long-running operations API.
type Adapter struct {
	handle *gcp.Handle[*speech.Client]
	policy retry.Policy
}

// New creates a Google STT adapter. The client is dialed on first use;
// credentials come from cfg or GOOGLE_APPLICATION_CREDENTIALS.
func New(cfg gcp.ClientConfig, policy retry.Policy) *Adapter {
	opts := cfg.Options()
	return &Adapter{
		handle: gcp.NewHandle(
			func(ctx context.Context) (*speech.Client, error) {
				return speech.NewClient(ctx, opts...)
			},
			func(c *speech.Client) error { return c.Close() },
		),
		policy: policy,
	}
}

// GetOperation performs one status check of the named operation.
func (a *Adapter) GetOperation(ctx context.Context, name string) (*stt.Operation, error) {
	client, err := a.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	var op *longrunningpb.Operation
	err = retry.Do(ctx, a.policy, func(ctx context.Context) error {
		var err error
		op, err = client.LROClient.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: name})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get operation %s: %w", name, err)
	}
	return toOperation(op)
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	return a.handle.Close()
}

func toOperation(op *longrunningpb.Operation) (*stt.Operation, error) {
	out := &stt.Operation{Name: op.GetName(), Done: op.GetDone()}

	if st := op.GetError(); st != nil {
		out.Err = status.ErrorProto(st)
		return out, nil
	}

	if resp := op.GetResponse(); resp != nil {
		var rr speechpb.LongRunningRecognizeResponse
		if err := resp.UnmarshalTo(&rr); err != nil {
			return nil, fmt.Errorf("unmarshal recognize response: %w", err)
		}
		result, err := ConvertResponse(&rr)
		if err != nil {
			return nil, err
		}
		out.Result = result
	}
	return out, nil
}

// ConvertResponse renders the response in its REST/JSON form (durations as
// "1.500s") and decodes the paths the parser reads.
func ConvertResponse(resp *speechpb.LongRunningRecognizeResponse) (*models.TranscriptionResult, error) {
	b, err := protojson.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("render recognize response: %w", err)
	}
	var result models.TranscriptionResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}
	return &result, nil
}
