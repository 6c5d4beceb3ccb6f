// Package elasticsearch indexes records for transcript search.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"speech-analytics-pipeline/internal/models"
)

// Writer implements sink.Writer. Documents are keyed by file id, so a
// redelivered record replaces its earlier copy.
type Writer struct {
	es    *elasticsearch.Client
	index string
}

// New creates the Elasticsearch client.
func New(addrs []string, index string) (*Writer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addrs})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Writer{es: es, index: index}, nil
}

// Ping checks if Elasticsearch is available.
func (w *Writer) Ping(ctx context.Context) error {
	res, err := w.es.Ping(w.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

// Name identifies the backend.
func (w *Writer) Name() string {
	return "elasticsearch"
}

// Write indexes rec under its file id, or its operation id when the file id is empty.
func (w *Writer) Write(ctx context.Context, rec *models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	id := rec.FileID
	if id == "" {
		id = rec.OperationID
	}
	req := esapi.IndexRequest{
		Index:      w.index,
		DocumentID: id,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}

	res, err := req.Do(ctx, w.es)
	if err != nil {
		return fmt.Errorf("index record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index record failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// Close is a no-op; the client holds no persistent connections of its own.
func (w *Writer) Close() error {
	return nil
}
