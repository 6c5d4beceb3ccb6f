// Package mock provides a keyword-based analyzer for running without cloud credentials.
package mock

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/service/nlp"
)

var (
	sentenceEnd = regexp.MustCompile(`[^.!?]+[.!?]*`)
	positive    = map[string]bool{"thanks": true, "thank": true, "great": true, "good": true, "love": true, "happy": true, "resolved": true}
	negative    = map[string]bool{"cancel": true, "bad": true, "angry": true, "problem": true, "broken": true, "refund": true, "terrible": true}
)

// Analyzer scores text by counting positive and negative keywords. Capitalized
// words that do not start a sentence are reported as entities.
type Analyzer struct{}

// New creates a mock analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// AnalyzeSentiment scores the whole text and each sentence.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) (*nlp.DocumentSentiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := &nlp.DocumentSentiment{Sentences: []models.Sentence{}}
	for _, s := range sentenceEnd.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		score, magnitude := scoreText(s)
		doc.Sentences = append(doc.Sentences, models.Sentence{Sentence: s, Sentiment: score, Magnitude: magnitude})
		doc.Magnitude += magnitude
	}
	doc.Score, _ = scoreText(text)
	return doc, nil
}

// AnalyzeEntitySentiment reports capitalized words inside sentences as OTHER entities.
func (a *Analyzer) AnalyzeEntitySentiment(ctx context.Context, text string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entities := []models.Entity{}
	seen := make(map[string]bool)
	for _, s := range sentenceEnd.FindAllString(text, -1) {
		fields := strings.Fields(s)
		for i, f := range fields {
			name := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
			if i == 0 || name == "" || name == "I" || !unicode.IsUpper([]rune(name)[0]) || seen[name] {
				continue
			}
			seen[name] = true
			score, _ := scoreText(s)
			entities = append(entities, models.Entity{Name: name, Type: "OTHER", Sentiment: score})
		}
	}
	return entities, nil
}

// scoreText returns a score in [-1, 1] and the count of sentiment words.
func scoreText(text string) (float64, float64) {
	var pos, neg float64
	for _, f := range strings.Fields(strings.ToLower(text)) {
		w := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) })
		switch {
		case positive[w]:
			pos++
		case negative[w]:
			neg++
		}
	}
	if pos+neg == 0 {
		return 0, 0
	}
	return (pos - neg) / (pos + neg), pos + neg
}
