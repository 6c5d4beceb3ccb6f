package gcp

import (
	"context"
	"errors"
	"testing"
)

type fakeClient struct {
	id     int
	closed bool
}

func TestHandle_DialsOnce(t *testing.T) {
	dials := 0
	h := NewHandle(func(context.Context) (*fakeClient, error) {
		dials++
		return &fakeClient{id: dials}, nil
	}, func(c *fakeClient) error {
		c.closed = true
		return nil
	})

	first, err := h.Get(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := h.Get(context.Background())

	if first != second {
		t.Error("expected the same client on repeated Get")
	}
	if dials != 1 {
		t.Errorf("expected 1 dial, got %d", dials)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !first.closed {
		t.Error("expected client to be closed")
	}
}

func TestHandle_FailedDialIsRetried(t *testing.T) {
	dials := 0
	h := NewHandle(func(context.Context) (*fakeClient, error) {
		dials++
		if dials == 1 {
			return nil, errors.New("no credentials")
		}
		return &fakeClient{id: dials}, nil
	}, nil)

	if _, err := h.Get(context.Background()); err == nil {
		t.Fatal("expected first Get to fail")
	}
	c, err := h.Get(context.Background())
	if err != nil {
		t.Fatalf("expected second Get to succeed, got %v", err)
	}
	if c.id != 2 {
		t.Errorf("expected client from second dial, got %d", c.id)
	}
}

func TestHandle_CloseWithoutDial(t *testing.T) {
	h := NewHandle(func(context.Context) (*fakeClient, error) {
		t.Fatal("dial should not be called")
		return nil, nil
	}, func(*fakeClient) error { return errors.New("should not close") })

	if err := h.Close(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestClientConfig_Options(t *testing.T) {
	if got := len((ClientConfig{}).Options()); got != 0 {
		t.Errorf("expected no options for empty config, got %d", got)
	}
	cfg := ClientConfig{CredentialsFile: "/secrets/key.json", Endpoint: "dlp.googleapis.com:443"}
	if got := len(cfg.Options()); got != 2 {
		t.Errorf("expected 2 options, got %d", got)
	}
}
