package formatter

import (
	"strings"
	"testing"
	"time"

	"cybernews/internal/models"
)

func sample(title string, sev models.Severity, score float64) models.ClassifiedArticle {
	published := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

	return models.ClassifiedArticle{
		NormalizedArticle: models.NormalizedArticle{
			SourceID:    "cert-in",
			SourceName:  "CERT-In",
			Title:       title,
			URL:         "https://cert-in.example/a",
			PublishedAt: &published,
		},
		Severity:      sev,
		SeverityScore: score,
	}
}

func TestAlertMessage(t *testing.T) {
	a := sample("Critical flaw in VPN", models.SeverityHigh, 12)
	a.CVEs = []string{"CVE-2024-3400"}

	expected := "SECURITY ALERT: CERT-In\n\nCritical flaw in VPN\n\n" +
		"Severity: HIGH (score 12.0)\nDate: 02 Sep 2024\nCVEs: CVE-2024-3400\n\n" +
		"More info: https://cert-in.example/a"

	if got := AlertMessage(a); got != expected {
		t.Errorf("AlertMessage() =\n%q\nwant\n%q", got, expected)
	}
}

func TestAlertMessage_UnknownDateNoURL(t *testing.T) {
	a := sample("Advisory", models.SeverityMedium, 4)
	a.PublishedAt = nil
	a.URL = ""
	a.SourceName = ""

	got := AlertMessage(a)

	if !strings.HasPrefix(got, "SECURITY ALERT: cert-in\n") {
		t.Errorf("expected source id fallback, got %q", got)
	}

	if !strings.HasSuffix(got, "Date: unknown") {
		t.Errorf("expected unknown date and no link, got %q", got)
	}
}

func TestDigestMessage(t *testing.T) {
	d := models.Digest{Items: []models.DigestItem{
		{Article: sample("One", models.SeverityHigh, 9), AlreadyNotified: true},
		{Article: sample("Two", models.SeverityHigh, 8)},
		{Article: sample("Three", models.SeverityMedium, 5)},
		{Article: sample("Four", models.SeverityMedium, 4)},
		{Article: sample("Five", models.SeverityMedium, 4)},
	}}

	expected := "SECURITY DIGEST: Top Critical News\n\n" +
		"1. CERT-In: One (already notified)\n" +
		"2. CERT-In: Two\n" +
		"3. CERT-In: Three\n\n" +
		"+2 more critical alerts."

	if got := DigestMessage(d, 3); got != expected {
		t.Errorf("DigestMessage() =\n%q\nwant\n%q", got, expected)
	}

	short := models.Digest{Items: d.Items[:1]}
	if got := DigestMessage(short, 0); strings.Contains(got, "more critical alerts") {
		t.Errorf("unexpected overflow line in %q", got)
	}
}

func TestTable(t *testing.T) {
	got := Table([]string{"A", "Title"}, [][]string{
		{"1", "  short  "},
		{"22", "サイバー攻撃"},
	})

	expected := strings.Join([]string{
		"| A   | Title        |",
		"| --- | ------------ |",
		"| 1   | short        |",
		"| 22  | サイバー攻撃 |",
	}, "\n")

	if got != expected {
		t.Errorf("Table() =\n%s\nwant\n%s", got, expected)
	}
}

func TestTable_TruncatesLongCells(t *testing.T) {
	got := Table([]string{"T"}, [][]string{{strings.Repeat("x", 100)}})

	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	if !strings.Contains(lines[2], "...") {
		t.Errorf("expected truncated cell, got %q", lines[2])
	}
}

func TestAlertTable(t *testing.T) {
	got := AlertTable([]models.AlertRecord{{ID: "x1", Severity: models.SeverityHigh, SourceName: "CERT-In", Title: "t", LastError: "timeout"}})

	if !strings.Contains(got, "| x1 ") || !strings.Contains(got, "timeout") {
		t.Errorf("unexpected table:\n%s", got)
	}
}
