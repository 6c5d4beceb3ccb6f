// Package google provides a Cloud Natural Language analyzer.
package google

import (
	"context"
	"fmt"

	language "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/retry"
	"speech-analytics-pipeline/internal/service/gcp"
	"speech-analytics-pipeline/internal/service/nlp"
)

// Analyzer implements nlp.Analyzer with the Natural Language API.
type Analyzer struct {
	handle *gcp.Handle[*language.Client]
	policy retry.Policy
}

// New creates an analyzer. The client is dialed on first use.
func New(cfg gcp.ClientConfig, policy retry.Policy) *Analyzer {
	opts := cfg.Options()
	return &Analyzer{
		handle: gcp.NewHandle(
			func(ctx context.Context) (*language.Client, error) {
				return language.NewClient(ctx, opts...)
			},
			func(c *language.Client) error { return c.Close() },
		),
		policy: policy,
	}
}

// AnalyzeSentiment returns the document and per-sentence sentiment of text.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) (*nlp.DocumentSentiment, error) {
	client, err := a.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("language client: %w", err)
	}

	var resp *languagepb.AnalyzeSentimentResponse
	err = retry.Do(ctx, a.policy, func(ctx context.Context) error {
		var err error
		resp, err = client.AnalyzeSentiment(ctx, &languagepb.AnalyzeSentimentRequest{
			Document:     plainText(text),
			EncodingType: languagepb.EncodingType_UTF8,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return toDocumentSentiment(resp), nil
}

// AnalyzeEntitySentiment returns the entities found in text with their sentiment score.
func (a *Analyzer) AnalyzeEntitySentiment(ctx context.Context, text string) ([]models.Entity, error) {
	client, err := a.handle.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("language client: %w", err)
	}

	var resp *languagepb.AnalyzeEntitySentimentResponse
	err = retry.Do(ctx, a.policy, func(ctx context.Context) error {
		var err error
		resp, err = client.AnalyzeEntitySentiment(ctx, &languagepb.AnalyzeEntitySentimentRequest{
			Document:     plainText(text),
			EncodingType: languagepb.EncodingType_UTF8,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return toEntities(resp), nil
}

// Close releases the underlying client.
func (a *Analyzer) Close() error {
	return a.handle.Close()
}

func plainText(text string) *languagepb.Document {
	return &languagepb.Document{
		Type:   languagepb.Document_PLAIN_TEXT,
		Source: &languagepb.Document_Content{Content: text},
	}
}

func toDocumentSentiment(resp *languagepb.AnalyzeSentimentResponse) *nlp.DocumentSentiment {
	doc := &nlp.DocumentSentiment{
		Score:     float64(resp.GetDocumentSentiment().GetScore()),
		Magnitude: float64(resp.GetDocumentSentiment().GetMagnitude()),
		Sentences: make([]models.Sentence, 0, len(resp.GetSentences())),
	}
	for _, s := range resp.GetSentences() {
		doc.Sentences = append(doc.Sentences, models.Sentence{
			Sentence:  s.GetText().GetContent(),
			Sentiment: float64(s.GetSentiment().GetScore()),
			Magnitude: float64(s.GetSentiment().GetMagnitude()),
		})
	}
	return doc
}

func toEntities(resp *languagepb.AnalyzeEntitySentimentResponse) []models.Entity {
	entities := make([]models.Entity, 0, len(resp.GetEntities()))
	for _, e := range resp.GetEntities() {
		entities = append(entities, models.Entity{
			Name:      e.GetName(),
			Type:      e.GetType().String(),
			Sentiment: float64(e.GetSentiment().GetScore()),
		})
	}
	return entities
}
