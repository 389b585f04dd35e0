package extractor

import (
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"

	"cybernews/internal/config"
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// ReadabilityStrategy extracts the main content block with go-readability.
type ReadabilityStrategy struct{}

// NewReadabilityStrategy creates the strategy.
func NewReadabilityStrategy() *ReadabilityStrategy {
	return &ReadabilityStrategy{}
}

// Name implements Strategy.
func (s *ReadabilityStrategy) Name() string {
	return config.StrategyReadability
}

// TryExtract implements Strategy.
func (s *ReadabilityStrategy) TryExtract(raw models.RawFetchResult) (models.ExtractedRecord, bool) {
	r, err := decodeBody(raw)
	if err != nil {
		return models.ExtractedRecord{}, false
	}

	pageURL, err := url.Parse(raw.URL)
	if err != nil || pageURL.Host == "" {
		pageURL = nil
	}

	article, err := readability.FromReader(r, pageURL)
	if err != nil {
		return models.ExtractedRecord{}, false
	}

	rec := models.ExtractedRecord{
		Title: utils.NormalizeWhitespace(article.Title()),
	}

	var textBuf strings.Builder
	if err := article.RenderText(&textBuf); err == nil {
		rec.Body = utils.NormalizeWhitespace(textBuf.String())
	}

	return rec, rec.Title != "" || rec.Body != ""
}
