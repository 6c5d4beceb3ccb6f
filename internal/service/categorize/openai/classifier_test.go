package openai

import (
	"errors"
	"testing"

	"speech-analytics-pipeline/internal/retry"
)

func TestCategorySchema(t *testing.T) {
	schema := CategorySchema([]string{"billing", "sales"})

	if schema["type"] != "object" {
		t.Errorf("expected object schema, got %v", schema["type"])
	}
	if schema["additionalProperties"] != false {
		t.Error("expected additionalProperties false")
	}
	required, ok := schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "category" {
		t.Errorf("unexpected required %v", schema["required"])
	}

	props := schema["properties"].(map[string]any)
	category := props["category"].(map[string]any)
	enum := category["enum"].([]any)
	if len(enum) != 2 || enum[0] != "billing" || enum[1] != "sales" {
		t.Errorf("unexpected enum %v", enum)
	}
	if _, ok := schema["$schema"]; ok {
		t.Error("expected $schema to be removed")
	}
}

func TestParseCategory(t *testing.T) {
	got, err := ParseCategory(` {"category": " billing "} `)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "billing" {
		t.Errorf("expected billing, got %q", got)
	}

	if _, err := ParseCategory("not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestClassifyError_PlainErrorIsPermanent(t *testing.T) {
	if retry.Retryable(classifyError(errors.New("bad request"))) {
		t.Error("expected plain error to be permanent")
	}
}
