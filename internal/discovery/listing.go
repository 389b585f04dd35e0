package discovery

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// ListingDiscoverer selects article links on an HTML index page.
type ListingDiscoverer struct {
	selector string
	maxLinks int
}

// NewListingDiscoverer creates a discoverer matching anchors with selector.
// The selector may match anchors directly or containers holding them.
func NewListingDiscoverer(selector string, maxLinks int) *ListingDiscoverer {
	return &ListingDiscoverer{selector: selector, maxLinks: maxLinks}
}

// Discover returns resolved, de-duplicated article links in page order.
func (d *ListingDiscoverer) Discover(raw models.RawFetchResult) ([]Link, error) {
	if len(raw.Body) == 0 {
		return nil, ErrEmptyBody
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing: %w", err)
	}

	seen := make(map[string]bool)

	var links []Link

	doc.Find(d.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		anchor := s
		if goquery.NodeName(s) != "a" {
			anchor = s.Find("a[href]").First()
		}

		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)

		if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return true
		}

		link := utils.ResolveURL(raw.URL, href)
		if !utils.IsValidURL(link) || seen[link] {
			return true
		}

		seen[link] = true
		links = append(links, Link{
			URL:   link,
			Title: utils.NormalizeWhitespace(anchor.Text()),
		})

		return d.maxLinks <= 0 || len(links) < d.maxLinks
	})

	if len(links) == 0 {
		return nil, ErrNoLinks
	}

	return links, nil
}
