package models

import "time"

// AlertRecord is a single dispatched notification.
type AlertRecord struct {
	DispatchedAt  time.Time `json:"dispatchedAt"`
	ID            string    `json:"id"`
	ArticleID     string    `json:"articleId"`
	DedupKey      string    `json:"dedupKey"`
	Channel       string    `json:"channel"`
	Severity      Severity  `json:"severity"`
	SourceName    string    `json:"sourceName"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Published     string    `json:"published,omitempty"`
	Message       string    `json:"message"`
	LastError     string    `json:"lastError,omitempty"`
	SeverityScore float64   `json:"severityScore"`
}

// DigestItem is one ranked entry of a digest.
type DigestItem struct {
	Article         ClassifiedArticle `json:"article"`
	AlreadyNotified bool              `json:"alreadyNotified"`
}

// Digest is an aggregated summary of classified articles since the previous digest.
type Digest struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Since       time.Time    `json:"since"`
	Items       []DigestItem `json:"items"`
	Total       int          `json:"total"`
}
