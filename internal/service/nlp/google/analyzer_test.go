package google

import (
	"testing"

	"cloud.google.com/go/language/apiv1/languagepb"
)

func TestToDocumentSentiment(t *testing.T) {
	resp := &languagepb.AnalyzeSentimentResponse{
		DocumentSentiment: &languagepb.Sentiment{Score: 0.5, Magnitude: 1.5},
		Sentences: []*languagepb.Sentence{
			{
				Text:      &languagepb.TextSpan{Content: "I love it."},
				Sentiment: &languagepb.Sentiment{Score: 0.75, Magnitude: 0.75},
			},
			{
				Text:      &languagepb.TextSpan{Content: "Thanks."},
				Sentiment: &languagepb.Sentiment{Score: 0.25, Magnitude: 0.25},
			},
		},
	}

	doc := toDocumentSentiment(resp)
	if doc.Score != 0.5 || doc.Magnitude != 1.5 {
		t.Errorf("unexpected document sentiment %+v", doc)
	}
	if len(doc.Sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(doc.Sentences))
	}
	if doc.Sentences[0].Sentence != "I love it." || doc.Sentences[0].Sentiment != 0.75 {
		t.Errorf("unexpected sentence %+v", doc.Sentences[0])
	}
}

func TestToDocumentSentiment_Empty(t *testing.T) {
	doc := toDocumentSentiment(&languagepb.AnalyzeSentimentResponse{})
	if doc.Score != 0 || len(doc.Sentences) != 0 {
		t.Errorf("expected zero sentiment, got %+v", doc)
	}
}

func TestToEntities(t *testing.T) {
	resp := &languagepb.AnalyzeEntitySentimentResponse{
		Entities: []*languagepb.Entity{
			{Name: "Acme", Type: languagepb.Entity_ORGANIZATION, Sentiment: &languagepb.Sentiment{Score: -0.5}},
			{Name: "Paris", Type: languagepb.Entity_LOCATION},
		},
	}

	entities := toEntities(resp)
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Name != "Acme" || entities[0].Type != "ORGANIZATION" || entities[0].Sentiment != -0.5 {
		t.Errorf("unexpected entity %+v", entities[0])
	}
	if entities[1].Type != "LOCATION" || entities[1].Sentiment != 0 {
		t.Errorf("unexpected entity %+v", entities[1])
	}
}

func TestPlainText(t *testing.T) {
	doc := plainText("hello")
	if doc.GetType() != languagepb.Document_PLAIN_TEXT {
		t.Errorf("expected PLAIN_TEXT, got %v", doc.GetType())
	}
	if doc.GetContent() != "hello" {
		t.Errorf("expected content 'hello', got %q", doc.GetContent())
	}
}
