// Package openai classifies transcripts with the OpenAI Responses API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"speech-analytics-pipeline/internal/retry"
)

const instructions = `You label customer service call transcripts.
Choose exactly one category from the allowed values that best describes the
main purpose of the call. Respond with JSON only.`

type categoryResponse struct {
	Category string `json:"category" jsonschema:"description=One of the allowed call categories"`
}

// Classifier implements categorize.Classifier.
type Classifier struct {
	client *openai.Client
	model  string
	policy retry.Policy
}

// New creates a classifier using apiKey and model.
func New(apiKey, model string, policy retry.Policy) *Classifier {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Classifier{client: &client, model: model, policy: policy}
}

// Classify asks the model to choose one of labels for transcript.
func (c *Classifier) Classify(ctx context.Context, transcript string, labels []string) (string, error) {
	if c.model == "" {
		return "", errors.New("openai classifier: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(200),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(transcript, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        "CallCategory",
					Schema:      CategorySchema(labels),
					Strict:      openai.Bool(true),
					Description: openai.String("Call category JSON"),
					Type:        "json_schema",
				},
			},
		},
	}

	var resp *responses.Response
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var err error
		resp, err = c.client.Responses.New(ctx, params)
		return classifyError(err)
	})
	if err != nil {
		return "", fmt.Errorf("responses.new: %w", err)
	}
	return ParseCategory(resp.OutputText())
}

// ParseCategory extracts the category from the model's JSON output.
func ParseCategory(output string) (string, error) {
	var out categoryResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &out); err != nil {
		return "", fmt.Errorf("unmarshal category: %w", err)
	}
	return strings.TrimSpace(out.Category), nil
}

// CategorySchema is the strict output schema with category restricted to labels.
func CategorySchema(labels []string) map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	b, err := reflector.Reflect(categoryResponse{}).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		panic(err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")

	schema["additionalProperties"] = false
	schema["required"] = []string{"category"}
	if props, ok := schema["properties"].(map[string]any); ok {
		if category, ok := props["category"].(map[string]any); ok {
			enum := make([]any, len(labels))
			for i, l := range labels {
				enum[i] = l
			}
			category["enum"] = enum
		}
	}
	return schema
}

// classifyError marks rate limiting and server errors as retryable.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return retry.Transient(err)
		}
	}
	return err
}
