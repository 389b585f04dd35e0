// Package models defines the records that flow through the ingestion pipeline.
package models

import "time"

// RawFetchResult is the outcome of a single fetch, successful or not.
// Body is nil when every attempt failed.
type RawFetchResult struct {
	FetchedAt    time.Time `json:"fetchedAt"`
	SourceID     string    `json:"sourceId"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType,omitempty"`
	Error        string    `json:"error,omitempty"`
	Body         []byte    `json:"-"`
	HTTPStatus   int       `json:"httpStatus"`
	AttemptCount int       `json:"attemptCount"`
}

// OK reports whether the fetch produced a body.
func (r RawFetchResult) OK() bool {
	return r.Body != nil
}

// ExtractedRecord holds the fields pulled out of a page. Fields that could not
// be extracted are left empty and Partial is set.
type ExtractedRecord struct {
	SourceID         string `json:"sourceId"`
	URL              string `json:"url"`
	Title            string `json:"title,omitempty"`
	Body             string `json:"body,omitempty"`
	PublishedAt      string `json:"publishedAt,omitempty"`
	ExtractionMethod string `json:"extractionMethod"`
	Partial          bool   `json:"partial"`
}

// Complete reports whether both title and body are present.
func (r ExtractedRecord) Complete() bool {
	return r.Title != "" && r.Body != ""
}

// MissingFields lists the fields the extractor could not fill.
func (r ExtractedRecord) MissingFields() []string {
	var missing []string
	if r.Title == "" {
		missing = append(missing, "title")
	}

	if r.Body == "" {
		missing = append(missing, "body")
	}

	if r.PublishedAt == "" {
		missing = append(missing, "published_at")
	}

	return missing
}

// NormalizedArticle is the canonical article shape used by dedup and classification.
type NormalizedArticle struct {
	FetchedAt   time.Time  `json:"fetchedAt"`
	PublishedAt *time.Time `json:"publishedAt"`
	ID          string     `json:"id"`
	SourceID    string     `json:"sourceId"`
	SourceName  string     `json:"sourceName"`
	SourceTier  SourceTier `json:"sourceTier"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	SearchTitle string     `json:"-"`
	SearchBody  string     `json:"-"`
	Provenance  []string   `json:"provenance"`
	Partial     bool       `json:"partial"`
}

// SearchText returns the lowercased, punctuation-free title and body.
func (a NormalizedArticle) SearchText() string {
	if a.SearchBody == "" {
		return a.SearchTitle
	}

	if a.SearchTitle == "" {
		return a.SearchBody
	}

	return a.SearchTitle + " " + a.SearchBody
}

// Recency is the best known timestamp for ordering: publication time when
// known, fetch time otherwise.
func (a NormalizedArticle) Recency() time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}

	return a.FetchedAt
}

// ClassifiedArticle is a NormalizedArticle with its classification attached.
type ClassifiedArticle struct {
	NormalizedArticle

	Severity        Severity     `json:"severity"`
	AttackTypes     []AttackType `json:"attackTypes"`
	Sectors         []Sector     `json:"sectors"`
	KeywordsMatched []string     `json:"keywordsMatched"`
	CVEs            []string     `json:"cves,omitempty"`
	ThreatActors    []string     `json:"threatActors,omitempty"`
	SeverityScore   float64      `json:"severityScore"`
}

// HasAttackType reports whether the article was tagged with t.
func (c ClassifiedArticle) HasAttackType(t AttackType) bool {
	for _, at := range c.AttackTypes {
		if at == t {
			return true
		}
	}

	return false
}

// HasSector reports whether the article was tagged with s.
func (c ClassifiedArticle) HasSector(s Sector) bool {
	for _, sec := range c.Sectors {
		if sec == s {
			return true
		}
	}

	return false
}
