package extractor

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"

	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// strictPolicy strips every tag. Policies are safe for concurrent use.
var strictPolicy = bluemonday.StrictPolicy()

// decodeBody converts the fetched body to UTF-8 using the declared or
// sniffed charset.
func decodeBody(raw models.RawFetchResult) (io.Reader, error) {
	r, err := charset.NewReader(bytes.NewReader(raw.Body), raw.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}

	return r, nil
}

// parseDocument decodes and parses the body as HTML.
func parseDocument(raw models.RawFetchResult) (*goquery.Document, error) {
	r, err := decodeBody(raw)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	return doc, nil
}

// HTMLToText strips markup from an HTML fragment and collapses whitespace.
func HTMLToText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return utils.NormalizeWhitespace(fragment)
	}

	// Keep block boundaries as spaces before tags disappear.
	spaced := strings.NewReplacer("<", " <", ">", "> ").Replace(fragment)

	return utils.NormalizeWhitespace(html.UnescapeString(strictPolicy.Sanitize(spaced)))
}

// selectionText returns the whitespace-collapsed text of a selection.
func selectionText(s *goquery.Selection) string {
	return utils.NormalizeWhitespace(s.Text())
}

// joinParagraphs collects the text of the selection's paragraphs, skipping
// fragments shorter than minRunes.
func joinParagraphs(s *goquery.Selection, minRunes int) string {
	var parts []string

	s.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := selectionText(p)
		if len([]rune(text)) >= minRunes {
			parts = append(parts, text)
		}
	})

	return strings.Join(parts, "\n")
}

// stripChrome removes elements that never hold article text.
func stripChrome(doc *goquery.Document) {
	doc.Find("script, style, noscript, iframe, nav, header, footer, aside, form").Remove()
	doc.Find("[class*='cookie'], [id*='cookie'], [class*='share'], [class*='social'], [class*='comment']").Remove()
}
