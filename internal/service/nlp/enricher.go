// Package nlp attaches document, sentence and entity sentiment to records.
package nlp

import (
	"context"
	"fmt"

	"speech-analytics-pipeline/internal/models"
)

// DocumentSentiment is the result of a document sentiment analysis.
type DocumentSentiment struct {
	Score     float64
	Magnitude float64
	Sentences []models.Sentence
}

// Analyzer calls a text-analysis service (Google, mock, etc.).
type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (*DocumentSentiment, error)
	AnalyzeEntitySentiment(ctx context.Context, text string) ([]models.Entity, error)
}

// AnalysisServiceError is a failed call to the analysis service.
type AnalysisServiceError struct {
	Op  string
	Err error
}

func (e *AnalysisServiceError) Error() string {
	return fmt.Sprintf("analysis %s: %v", e.Op, e.Err)
}

func (e *AnalysisServiceError) Unwrap() error {
	return e.Err
}

// Enricher merges sentiment analysis into records.
type Enricher struct {
	analyzer Analyzer
}

// NewEnricher creates an enricher backed by analyzer.
func NewEnricher(analyzer Analyzer) *Enricher {
	return &Enricher{analyzer: analyzer}
}

// Enrich sets the document score and magnitude and appends the sentence and
// entity sentiment of rec's transcript. Records with an empty transcript are
// returned unchanged.
func (e *Enricher) Enrich(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if rec.Transcript == "" {
		return rec, nil
	}

	doc, err := e.analyzer.AnalyzeSentiment(ctx, rec.Transcript)
	if err != nil {
		return nil, &AnalysisServiceError{Op: "analyzeSentiment", Err: err}
	}
	entities, err := e.analyzer.AnalyzeEntitySentiment(ctx, rec.Transcript)
	if err != nil {
		return nil, &AnalysisServiceError{Op: "analyzeEntitySentiment", Err: err}
	}

	rec.SentimentScore = models.Float64(doc.Score)
	rec.Magnitude = models.Float64(doc.Magnitude)
	rec.Sentences = append(rec.Sentences, doc.Sentences...)
	rec.Entities = append(rec.Entities, entities...)
	return rec, nil
}
