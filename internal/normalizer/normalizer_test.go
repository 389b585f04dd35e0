package normalizer

import (
	"testing"
	"time"

	"cybernews/internal/config"
	"cybernews/internal/models"
)

func testRegistry() Registry {
	return Registry{
		"cert-in":  {Name: "CERT-In", Tier: models.TierGovernment},
		"thehindu": {Name: "The Hindu", Tier: models.TierMedia},
	}
}

func TestNormalize(t *testing.T) {
	n := New(testRegistry(), nil, nil)
	fetched := time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)

	rec := models.ExtractedRecord{
		SourceID:         "cert-in",
		URL:              " https://cert-in.org.in/a/1 ",
		Title:            "  Critical​ Vulnerability in\tApache  ",
		Body:             "Remote code\nexecution — patch now!",
		PublishedAt:      "Original Issue Date: September 02, 2024",
		ExtractionMethod: "selector",
	}

	a := n.Normalize(rec, fetched)

	if a.Title != "Critical Vulnerability in Apache" {
		t.Errorf("Title = %q", a.Title)
	}

	if a.SearchTitle != "critical vulnerability in apache" {
		t.Errorf("SearchTitle = %q", a.SearchTitle)
	}

	if a.Body != "Remote code execution — patch now!" {
		t.Errorf("Body = %q", a.Body)
	}

	if a.SearchBody != "remote code execution patch now" {
		t.Errorf("SearchBody = %q", a.SearchBody)
	}

	if a.SourceTier != models.TierGovernment || a.SourceName != "CERT-In" {
		t.Errorf("source = %s/%s", a.SourceName, a.SourceTier)
	}

	if a.URL != "https://cert-in.org.in/a/1" {
		t.Errorf("URL = %q", a.URL)
	}

	if a.PublishedAt == nil || !a.PublishedAt.Equal(time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishedAt = %v", a.PublishedAt)
	}

	if !a.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v", a.FetchedAt)
	}

	if len(a.Provenance) != 1 || a.Provenance[0] != "cert-in" {
		t.Errorf("Provenance = %v", a.Provenance)
	}
}

func TestNormalize_IDIsStable(t *testing.T) {
	n := New(testRegistry(), nil, nil)

	a := n.Normalize(models.ExtractedRecord{SourceID: "thehindu", URL: "https://h/1", Title: "Ransomware Attack!"}, time.Now())
	b := n.Normalize(models.ExtractedRecord{SourceID: "thehindu", URL: "https://h/1", Title: "ransomware   attack"}, time.Now().Add(time.Hour))

	if a.ID == "" || a.ID != b.ID {
		t.Errorf("ids differ: %q vs %q", a.ID, b.ID)
	}

	c := n.Normalize(models.ExtractedRecord{SourceID: "cert-in", URL: "https://h/1", Title: "Ransomware Attack!"}, time.Now())
	if c.ID == a.ID {
		t.Error("different sources produced the same id")
	}
}

func TestNormalize_UnparseableDateIsNil(t *testing.T) {
	n := New(testRegistry(), nil, nil)

	a := n.Normalize(models.ExtractedRecord{SourceID: "thehindu", URL: "https://h/1", Title: "T", PublishedAt: "sometime last week"}, time.Now())

	if a.PublishedAt != nil {
		t.Errorf("PublishedAt = %v, want nil", a.PublishedAt)
	}
}

func TestNormalize_UnknownSourceIsMedia(t *testing.T) {
	n := New(testRegistry(), nil, nil)

	a := n.Normalize(models.ExtractedRecord{SourceID: "blog", URL: "https://b/1", Title: "T"}, time.Now())

	if a.SourceTier != models.TierMedia || a.SourceName != "blog" {
		t.Errorf("source = %s/%s", a.SourceName, a.SourceTier)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2024-09-02T08:30:00+05:30", time.Date(2024, 9, 2, 3, 0, 0, 0, time.UTC)},
		{"2024-09-02", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"Mon, 02 Sep 2024 10:00:00 +0000", time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)},
		{"Sep 2, 2024", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"Sept. 2, 2024", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"2nd September 2024", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"Published: 02/09/2024", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
		{"Updated on 02-09-2024 IST", time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ParseDate(tt.raw, DefaultLayouts)
		if err != nil {
			t.Errorf("ParseDate(%q) error: %v", tt.raw, err)

			continue
		}

		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDate_CustomLayoutsInOrder(t *testing.T) {
	// Month-first layout listed before the default day-first reading.
	got, err := ParseDate("09/02/2024", []string{"01/02/2006", "02/01/2006"})
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}

	if got.Month() != time.September || got.Day() != 2 {
		t.Errorf("ParseDate = %v, want 2 Sep", got)
	}

	if _, err := ParseDate("2024-09-02", []string{"02/01/2006"}); err == nil {
		t.Error("expected ErrDateParse for non-matching layouts")
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("ﬁrewall bypass‍"); got != "firewall bypass" {
		t.Errorf("CleanText = %q", got)
	}
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{
		{ID: "cert-in", Name: "CERT-In", Tier: "government"},
		{ID: "ht", Tier: "media"},
	}}

	reg := RegistryFromConfig(cfg)

	if reg["cert-in"].Tier != models.TierGovernment || reg["ht"].Name != "ht" {
		t.Errorf("registry = %+v", reg)
	}
}
