package fetcher

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cybernews/internal/logger"
	"cybernews/internal/models"
)

// AttemptResult records the outcome of one fetch of a URL.
type AttemptResult struct {
	Timestamp  time.Time
	SourceID   string
	URL        string
	Error      string
	Attempts   int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// AttemptLog collects fetch outcomes across a run. It is safe for concurrent use.
type AttemptLog struct {
	entries map[string][]AttemptResult
	mu      sync.Mutex
}

// NewAttemptLog creates an empty log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{entries: make(map[string][]AttemptResult)}
}

// Record appends the outcome of a fetch.
func (l *AttemptLog) Record(result models.RawFetchResult, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[result.URL] = append(l.entries[result.URL], AttemptResult{
		Timestamp:  result.FetchedAt,
		SourceID:   result.SourceID,
		URL:        result.URL,
		Error:      result.Error,
		Attempts:   result.AttemptCount,
		Duration:   duration,
		StatusCode: result.HTTPStatus,
		Success:    result.OK(),
	})
}

// Get returns the recorded outcomes for a URL.
func (l *AttemptLog) Get(url string) []AttemptResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]AttemptResult(nil), l.entries[url]...)
}

// Reset clears the log.
func (l *AttemptLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string][]AttemptResult)
}

// AttemptStats summarizes the log.
type AttemptStats struct {
	SourceFailures map[string]int
	TotalURLs      int
	SuccessfulURLs int
	FailedURLs     int
	TotalAttempts  int
}

// Stats computes statistics over everything recorded so far. A URL counts
// as successful if any of its fetches produced a body.
func (l *AttemptLog) Stats() AttemptStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := AttemptStats{SourceFailures: make(map[string]int)}

	for _, results := range l.entries {
		stats.TotalURLs++

		urlSuccess := false

		for _, r := range results {
			stats.TotalAttempts += r.Attempts

			if r.Success {
				urlSuccess = true
			}
		}

		if urlSuccess {
			stats.SuccessfulURLs++
		} else {
			stats.FailedURLs++
			stats.SourceFailures[results[0].SourceID]++
		}
	}

	return stats
}

// String returns a one-line summary.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"URLs: %d total, %d success, %d failed | Attempts: %d",
		s.TotalURLs,
		s.SuccessfulURLs,
		s.FailedURLs,
		s.TotalAttempts,
	)
}

// LogSummary logs the failed URLs and the overall statistics.
func (l *AttemptLog) LogSummary(log *logger.Logger) {
	l.mu.Lock()

	urls := make([]string, 0, len(l.entries))
	for url := range l.entries {
		urls = append(urls, url)
	}

	sort.Strings(urls)

	var failed []AttemptResult

	for _, url := range urls {
		results := l.entries[url]
		if last := results[len(results)-1]; !last.Success {
			failed = append(failed, last)
		}
	}

	l.mu.Unlock()

	for _, r := range failed {
		log.Warn("url failed",
			"source", r.SourceID,
			"url", r.URL,
			"attempts", r.Attempts,
			"status", r.StatusCode,
			"error", r.Error)
	}

	log.Info("fetch summary", "stats", l.Stats().String())
}
