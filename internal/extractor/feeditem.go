package extractor

import (
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// MethodFeed names fields taken from a feed entry.
const MethodFeed = "feed"

// FeedItem serves the headline, summary and date a feed advertised for an
// article. It does not look at the fetched page, so it still yields fields
// when the page itself was blocked.
type FeedItem struct {
	Title     string
	Summary   string
	Published string
}

// Name implements Strategy.
func (f FeedItem) Name() string {
	return MethodFeed
}

// TryExtract implements Strategy.
func (f FeedItem) TryExtract(models.RawFetchResult) (models.ExtractedRecord, bool) {
	rec := models.ExtractedRecord{
		Title:       utils.NormalizeWhitespace(f.Title),
		Body:        HTMLToText(f.Summary),
		PublishedAt: utils.NormalizeWhitespace(f.Published),
	}

	return rec, rec.Title != "" || rec.Body != "" || rec.PublishedAt != ""
}
