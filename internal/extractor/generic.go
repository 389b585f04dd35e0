package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cybernews/internal/config"
	"cybernews/internal/models"
)

// minParagraphRunes drops captions, bylines and link lists from generic bodies.
const minParagraphRunes = 40

// contentContainers are tried in order when looking for the article body.
var contentContainers = []string{
	"article",
	"main",
	"[role='main']",
	"#content",
	".content",
	".entry-content",
	".post",
	"section",
	"body",
}

// datePatterns find publication dates in running text.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2}, \d{4}\b`),
	regexp.MustCompile(`\b\d{1,2} (?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]* \d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`),
}

// GenericStrategy applies layout-independent heuristics: the first heading
// as title, long paragraphs of the main container as body, table rows when
// there are no paragraphs, and the first date-looking string.
type GenericStrategy struct{}

// NewGenericStrategy creates the strategy.
func NewGenericStrategy() *GenericStrategy {
	return &GenericStrategy{}
}

// Name implements Strategy.
func (s *GenericStrategy) Name() string {
	return config.StrategyGeneric
}

// TryExtract implements Strategy.
func (s *GenericStrategy) TryExtract(raw models.RawFetchResult) (models.ExtractedRecord, bool) {
	doc, err := parseDocument(raw)
	if err != nil {
		return models.ExtractedRecord{}, false
	}

	pageTitle := selectionText(doc.Find("title").First())

	stripChrome(doc)

	rec := models.ExtractedRecord{
		Title: firstNonEmpty(selectionText(doc.Find("h1").First()), selectionText(doc.Find("h2").First()), pageTitle),
		Body:  genericBody(doc),
	}

	rec.PublishedAt = findDate(selectionText(doc.Find("body")))

	return rec, rec.Title != "" || rec.Body != "" || rec.PublishedAt != ""
}

func genericBody(doc *goquery.Document) string {
	for _, selector := range contentContainers {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}

		if body := joinParagraphs(container, minParagraphRunes); body != "" {
			return body
		}
	}

	return tableBody(doc)
}

// tableBody reads advisory-style pages that lay text out in table cells.
func tableBody(doc *goquery.Document) string {
	var rows []string

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		if text := selectionText(tr); len([]rune(text)) >= minParagraphRunes {
			rows = append(rows, text)
		}
	})

	if len(rows) == 0 {
		return ""
	}

	return strings.Join(rows, "\n")
}

func findDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}

	return ""
}
