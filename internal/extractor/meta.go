package extractor

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cybernews/internal/config"
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// articleTypes are the schema.org types carrying article fields.
var articleTypes = map[string]bool{
	"Article":              true,
	"NewsArticle":          true,
	"ReportageNewsArticle": true,
	"AnalysisNewsArticle":  true,
	"BlogPosting":          true,
	"Report":               true,
	"TechArticle":          true,
}

// MetaStrategy reads structured data: JSON-LD article objects first, then
// OpenGraph and standard meta tags.
type MetaStrategy struct{}

// NewMetaStrategy creates the strategy.
func NewMetaStrategy() *MetaStrategy {
	return &MetaStrategy{}
}

// Name implements Strategy.
func (s *MetaStrategy) Name() string {
	return config.StrategyMeta
}

// TryExtract implements Strategy.
func (s *MetaStrategy) TryExtract(raw models.RawFetchResult) (models.ExtractedRecord, bool) {
	doc, err := parseDocument(raw)
	if err != nil {
		return models.ExtractedRecord{}, false
	}

	rec := fromJSONLD(doc)

	if rec.Title == "" {
		rec.Title = firstNonEmpty(
			metaContent(doc, `meta[property="og:title"]`),
			metaContent(doc, `meta[name="twitter:title"]`),
			metaContent(doc, `meta[name="title"]`),
			selectionText(doc.Find("title").First()),
		)
	}

	if rec.Body == "" {
		rec.Body = HTMLToText(firstNonEmpty(
			metaContent(doc, `meta[property="og:description"]`),
			metaContent(doc, `meta[name="description"]`),
			metaContent(doc, `meta[name="twitter:description"]`),
		))
	}

	if rec.PublishedAt == "" {
		rec.PublishedAt = firstNonEmpty(
			metaContent(doc, `meta[property="article:published_time"]`),
			metaContent(doc, `meta[name="pubdate"]`),
			metaContent(doc, `meta[name="publish-date"]`),
			metaContent(doc, `meta[name="date"]`),
			metaContent(doc, `meta[itemprop="datePublished"]`),
			attr(doc.Find("time[datetime]").First(), "datetime"),
		)
	}

	return rec, rec.Title != "" || rec.Body != "" || rec.PublishedAt != ""
}

// fromJSONLD returns the fields of the first article object found in
// ld+json scripts.
func fromJSONLD(doc *goquery.Document) models.ExtractedRecord {
	var rec models.ExtractedRecord

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}

		obj := findArticleObject(data)
		if obj == nil {
			return true
		}

		rec.Title = utils.NormalizeWhitespace(stringField(obj, "headline", "name"))
		rec.Body = HTMLToText(stringField(obj, "articleBody", "text", "description"))
		rec.PublishedAt = strings.TrimSpace(stringField(obj, "datePublished", "dateCreated"))

		return false
	})

	return rec
}

func findArticleObject(data any) map[string]any {
	switch v := data.(type) {
	case []any:
		for _, item := range v {
			if obj := findArticleObject(item); obj != nil {
				return obj
			}
		}
	case map[string]any:
		if isArticleType(v["@type"]) {
			return v
		}

		if graph, ok := v["@graph"]; ok {
			return findArticleObject(graph)
		}
	}

	return nil
}

func isArticleType(t any) bool {
	switch v := t.(type) {
	case string:
		return articleTypes[v]
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && articleTypes[s] {
				return true
			}
		}
	}

	return false
}

func stringField(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}

	return ""
}

func metaContent(doc *goquery.Document, selector string) string {
	return attr(doc.Find(selector).First(), "content")
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)

	return utils.NormalizeWhitespace(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
