// Package formatter renders alert, digest and listing text.
package formatter

import (
	"fmt"
	"strings"

	"cybernews/internal/models"
)

// DateLayout is how publication dates appear in messages.
const DateLayout = "02 Jan 2006"

// DefaultPreview is how many digest items are spelled out.
const DefaultPreview = 3

// TestMessage is sent by the operator test command.
const TestMessage = "TEST ALERT: This is a test of the cybersecurity alert system. " +
	"You will receive messages like this for critical security alerts."

// AlertMessage formats a single article alert.
func AlertMessage(a models.ClassifiedArticle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "SECURITY ALERT: %s\n\n%s\n\n", sourceLabel(a), a.Title)
	fmt.Fprintf(&sb, "Severity: %s (score %.1f)\n", strings.ToUpper(string(a.Severity)), a.SeverityScore)
	fmt.Fprintf(&sb, "Date: %s", PublishedLabel(a.NormalizedArticle))

	if len(a.CVEs) > 0 {
		fmt.Fprintf(&sb, "\nCVEs: %s", strings.Join(a.CVEs, ", "))
	}

	if a.URL != "" {
		fmt.Fprintf(&sb, "\n\nMore info: %s", a.URL)
	}

	return sb.String()
}

// DigestMessage formats a digest, listing the first preview items and
// counting the rest.
func DigestMessage(d models.Digest, preview int) string {
	if preview <= 0 {
		preview = DefaultPreview
	}

	var sb strings.Builder

	sb.WriteString("SECURITY DIGEST: Top Critical News\n\n")

	for i, item := range d.Items {
		if i == preview {
			break
		}

		marker := ""
		if item.AlreadyNotified {
			marker = " (already notified)"
		}

		fmt.Fprintf(&sb, "%d. %s: %s%s\n", i+1, sourceLabel(item.Article), item.Article.Title, marker)
	}

	if len(d.Items) > preview {
		fmt.Fprintf(&sb, "\n+%d more critical alerts.", len(d.Items)-preview)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// PublishedLabel renders the publication date or "unknown".
func PublishedLabel(a models.NormalizedArticle) string {
	if a.PublishedAt == nil {
		return "unknown"
	}

	return a.PublishedAt.Format(DateLayout)
}

func sourceLabel(a models.ClassifiedArticle) string {
	if a.SourceName != "" {
		return a.SourceName
	}

	return a.SourceID
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}
