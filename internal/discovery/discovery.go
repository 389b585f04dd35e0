// Package discovery finds article URLs on feed and listing pages.
package discovery

import (
	"errors"

	"cybernews/internal/config"
	"cybernews/internal/models"
)

// Discovery errors.
var (
	ErrEmptyBody = errors.New("no content to discover links from")
	ErrNoLinks   = errors.New("no article links found")
)

// Link is an article found on an index page. Feed entries also carry the
// headline, summary and date the feed advertised.
type Link struct {
	URL       string
	Title     string
	Summary   string
	Published string
}

// Discoverer extracts article links from a fetched index page.
type Discoverer interface {
	Discover(raw models.RawFetchResult) ([]Link, error)
}

// ForSource returns the discoverers of a source in priority order together
// with the URL each one expects.
func ForSource(src config.SourceConfig) []Entry {
	var entries []Entry

	if src.FeedURL != "" {
		entries = append(entries, Entry{URL: src.FeedURL, Discoverer: NewFeedDiscoverer(0)})
	}

	if src.Listing != nil {
		listing := NewListingDiscoverer(src.Listing.LinkSelector, src.Listing.MaxLinks)

		entries = append(entries, Entry{URL: src.Listing.URL, Discoverer: listing})

		for _, backup := range src.GetAllURLs() {
			if backup != src.Listing.URL {
				entries = append(entries, Entry{URL: backup, Discoverer: listing})
			}
		}
	}

	return entries
}

// Entry pairs an index URL with the discoverer that understands it.
type Entry struct {
	Discoverer Discoverer
	URL        string
}
