package pipeline

import (
	"fmt"
	"time"

	"cybernews/internal/fetcher"
	"cybernews/internal/models"
)

// DegradedItem is an article that was kept with missing fields.
type DegradedItem struct {
	URL     string   `json:"url"`
	Method  string   `json:"method"`
	Missing []string `json:"missing"`
}

// SourceReport describes what happened to one source during a run.
type SourceReport struct {
	SourceID   string         `json:"sourceId"`
	EntryURL   string         `json:"entryUrl,omitempty"`
	FailedURLs []string       `json:"failedUrls,omitempty"`
	Degraded   []DegradedItem `json:"degraded,omitempty"`
	Errors     []string       `json:"errors,omitempty"`
	Links      int            `json:"links"`
	Articles   int            `json:"articles"`
	Dropped    int            `json:"dropped"`
	Failed     bool           `json:"failed"`
}

func (r *SourceReport) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

// RunReport summarizes a pipeline run.
type RunReport struct {
	Started    time.Time               `json:"started"`
	Finished   time.Time               `json:"finished"`
	BySeverity map[models.Severity]int `json:"bySeverity"`
	Sources    []SourceReport          `json:"sources"`
	Errors     []string                `json:"errors,omitempty"`
	Fetch      fetcher.AttemptStats    `json:"fetch"`
	Normalized int                     `json:"normalized"`
	Unique     int                     `json:"unique"`
	Irrelevant int                     `json:"irrelevant"`
	Classified int                     `json:"classified"`
	Dispatched int                     `json:"dispatched"`
	Suppressed int                     `json:"suppressed"`
	Failed     int                     `json:"failed"`
}

// FailedSources lists the ids of sources that produced nothing.
func (r RunReport) FailedSources() []string {
	var ids []string

	for _, s := range r.Sources {
		if s.Failed {
			ids = append(ids, s.SourceID)
		}
	}

	return ids
}

// String returns a one-line summary.
func (r RunReport) String() string {
	return fmt.Sprintf(
		"sources=%d failed_sources=%d normalized=%d unique=%d classified=%d dispatched=%d suppressed=%d failed=%d duration=%s",
		len(r.Sources), len(r.FailedSources()), r.Normalized, r.Unique, r.Classified,
		r.Dispatched, r.Suppressed, r.Failed, r.Finished.Sub(r.Started).Round(time.Millisecond),
	)
}
