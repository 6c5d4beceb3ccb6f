// Package mock provides a pattern-based masker for running without cloud credentials.
package mock

import (
	"context"
	"regexp"
)

// DefaultPatterns cover phone numbers, emails, card numbers and SSNs.
var DefaultPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d(?:[ -]?\d){12,15}\b`),
	regexp.MustCompile(`(?:\(\d{3}\)\s?|\b\d{3}-)?\b\d{3}-\d{4}\b`),
}

// Masker replaces every match of its patterns with the mask.
type Masker struct {
	patterns []*regexp.Regexp
	mask     string
}

// New creates a masker. With no patterns, DefaultPatterns are used.
func New(mask string, patterns ...*regexp.Regexp) *Masker {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Masker{patterns: patterns, mask: mask}
}

// MaskText replaces sensitive spans in text.
func (m *Masker) MaskText(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, p := range m.patterns {
		text = p.ReplaceAllLiteralString(text, m.mask)
	}
	return text, nil
}
