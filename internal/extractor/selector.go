package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cybernews/internal/config"
	"cybernews/internal/models"
)

// SelectorStrategy applies per-source CSS selector rules.
type SelectorStrategy struct {
	rules config.SelectorConfig
}

// NewSelectorStrategy creates a strategy for the given rules.
func NewSelectorStrategy(rules config.SelectorConfig) *SelectorStrategy {
	return &SelectorStrategy{rules: rules}
}

// Name implements Strategy.
func (s *SelectorStrategy) Name() string {
	return config.StrategySelector
}

// TryExtract implements Strategy.
func (s *SelectorStrategy) TryExtract(raw models.RawFetchResult) (models.ExtractedRecord, bool) {
	doc, err := parseDocument(raw)
	if err != nil {
		return models.ExtractedRecord{}, false
	}

	var rec models.ExtractedRecord

	if s.rules.Title != "" {
		rec.Title = selectionText(doc.Find(s.rules.Title).First())
	}

	if s.rules.Body != "" {
		rec.Body = selectorBody(doc.Find(s.rules.Body))
	}

	if s.rules.Date != "" {
		el := doc.Find(s.rules.Date).First()
		rec.PublishedAt = firstNonEmpty(attr(el, "datetime"), attr(el, "content"), selectionText(el))
	}

	return rec, rec.Title != "" || rec.Body != "" || rec.PublishedAt != ""
}

// selectorBody joins the paragraphs of every matched element, or their
// plain text when they hold no paragraphs.
func selectorBody(sel *goquery.Selection) string {
	var parts []string

	sel.Each(func(_ int, s *goquery.Selection) {
		text := joinParagraphs(s, 1)
		if text == "" {
			text = selectionText(s)
		}

		if text != "" {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, "\n")
}
