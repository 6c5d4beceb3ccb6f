package mock

import (
	"context"
	"errors"
	"testing"

	"speech-analytics-pipeline/internal/models"
)

func TestAdapter_CompletesAfterPendingPolls(t *testing.T) {
	adapter := New(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		op, err := adapter.GetOperation(ctx, "op-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if op.Done {
			t.Fatalf("poll %d: expected pending operation", i+1)
		}
	}

	op, err := adapter.GetOperation(ctx, "op-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !op.Done || op.Result == nil {
		t.Fatal("expected completed operation with result")
	}
	if len(op.Result.Results) != len(DefaultResult.Results) {
		t.Errorf("expected default result, got %d segments", len(op.Result.Results))
	}
	if adapter.Polls("op-1") != 3 {
		t.Errorf("expected 3 polls, got %d", adapter.Polls("op-1"))
	}
}

func TestAdapter_RegisteredResult(t *testing.T) {
	adapter := New(0)
	want := &models.TranscriptionResult{Results: []models.SegmentResult{{ChannelTag: 7}}}
	adapter.Add("op-2", want)

	op, err := adapter.GetOperation(context.Background(), "op-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Result != want {
		t.Error("expected registered result")
	}
}

func TestAdapter_Failure(t *testing.T) {
	adapter := New(0)
	adapter.Fail("op-3", errors.New("audio unreadable"))

	op, err := adapter.GetOperation(context.Background(), "op-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !op.Done || op.Err == nil {
		t.Errorf("expected failed operation, got %+v", op)
	}
}

func TestAdapter_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(0).GetOperation(ctx, "op"); err == nil {
		t.Error("expected error on canceled context")
	}
}
