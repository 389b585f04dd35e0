package discovery

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// FeedDiscoverer reads RSS, Atom and JSON feeds.
type FeedDiscoverer struct {
	maxItems int
}

// NewFeedDiscoverer creates a feed discoverer; maxItems <= 0 means no limit.
func NewFeedDiscoverer(maxItems int) *FeedDiscoverer {
	return &FeedDiscoverer{maxItems: maxItems}
}

// Discover parses the feed and returns one link per item with a URL.
func (d *FeedDiscoverer) Discover(raw models.RawFetchResult) ([]Link, error) {
	if len(raw.Body) == 0 {
		return nil, ErrEmptyBody
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	seen := make(map[string]bool, len(feed.Items))
	links := make([]Link, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}

		link := utils.ResolveURL(raw.URL, item.Link)
		if seen[link] {
			continue
		}

		seen[link] = true

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		links = append(links, Link{
			URL:       link,
			Title:     utils.NormalizeWhitespace(item.Title),
			Summary:   summary,
			Published: publishedString(item),
		})

		if d.maxItems > 0 && len(links) >= d.maxItems {
			break
		}
	}

	if len(links) == 0 {
		return nil, ErrNoLinks
	}

	return links, nil
}

func publishedString(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	}

	return item.Updated
}
