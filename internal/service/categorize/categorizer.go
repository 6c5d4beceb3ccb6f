// Package categorize assigns a call category to the nlcategory field.
package categorize

import (
	"context"
	"fmt"
	"slices"

	"speech-analytics-pipeline/internal/models"
)

// DefaultLabels are used when no labels are configured.
var DefaultLabels = []string{"billing", "cancellation", "technical_support", "sales", "complaint", "general_inquiry"}

// Classifier picks one of labels for a transcript (OpenAI, etc.).
type Classifier interface {
	Classify(ctx context.Context, transcript string, labels []string) (string, error)
}

// CategorizeError is a failed classification call.
type CategorizeError struct {
	Err error
}

func (e *CategorizeError) Error() string {
	return fmt.Sprintf("categorize: %v", e.Err)
}

func (e *CategorizeError) Unwrap() error {
	return e.Err
}

// Categorizer fills NLCategory. A nil classifier leaves the placeholder in place.
type Categorizer struct {
	classifier Classifier
	labels     []string
}

// New creates a categorizer. Empty labels fall back to DefaultLabels.
func New(classifier Classifier, labels []string) *Categorizer {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return &Categorizer{classifier: classifier, labels: labels}
}

// Labels returns the configured labels.
func (c *Categorizer) Labels() []string {
	return c.labels
}

// Categorize sets rec.NLCategory to the classifier's label. Answers outside
// the configured labels keep models.CategoryUnset.
func (c *Categorizer) Categorize(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if c.classifier == nil || rec.Transcript == "" {
		return rec, nil
	}

	label, err := c.classifier.Classify(ctx, rec.Transcript, c.labels)
	if err != nil {
		return nil, &CategorizeError{Err: err}
	}
	if slices.Contains(c.labels, label) {
		rec.NLCategory = label
	} else {
		rec.NLCategory = models.CategoryUnset
	}
	return rec, nil
}
