package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/alert"
	"cybernews/internal/config"
	"cybernews/internal/fetcher"
	"cybernews/internal/logger"
	"cybernews/internal/models"
	"cybernews/internal/store"
)

type recordingSink struct {
	sent []models.AlertRecord
	mu   sync.Mutex
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, rec models.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, rec)

	return nil
}

func articlePage(title string, paragraphs ...string) string {
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<p>%s</p>\n", p)
	}

	return fmt.Sprintf(`<!DOCTYPE html><html><head><title>%s</title></head>
<body><nav><a href="/">Home</a></nav><article><h1>%s</h1>%s</article></body></html>`, title, title, body.String())
}

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>News</title><link>%[1]s</link><description>d</description>
<item><title>Hackers leak customer data from retail chain</title><link>%[1]s/story</link>
<pubDate>Mon, 02 Sep 2024 10:00:00 +0000</pubDate><description>Retail breach.</description></item>
<item><title>Phishing wave targets bank customers</title><link>%[1]s/blocked</link>
<pubDate>Mon, 02 Sep 2024 11:00:00 +0000</pubDate><description>Short.</description></item>
</channel></rss>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/primary", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/backup", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage("CERT-In warns of critical ransomware campaign",
			"A critical ransomware campaign is exploiting a vulnerability in widely used VPN appliances across government networks.",
			"Organisations are urged to patch immediately, as the ransomware operators move laterally within hours of initial access.",
		))
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, feedTemplate, "http://"+r.Host)
	})
	mux.HandleFunc("/story", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage("Hackers leak customer data from retail chain",
			"Hackers claimed to have stolen customer data from a national retail chain and published samples on a leak site.",
			"The company said it is investigating the breach together with external forensic experts and law enforcement.",
		))
	})
	mux.HandleFunc("/blocked", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func testConfig(base, articlesPath string) *config.Config {
	cfg := &config.Config{
		Sources: []config.SourceConfig{
			{ID: "cert-in", Name: "CERT-In", Tier: "government", URLs: []string{base + "/primary", base + "/backup"}, Enabled: true},
			{ID: "news", Name: "Daily News", Tier: "media", FeedURL: base + "/feed.xml", Enabled: true},
			{ID: "down", Name: "Down", Tier: "media", URLs: []string{"http://127.0.0.1:1/none"}, Enabled: true},
			{ID: "off", Name: "Off", Tier: "media", URLs: []string{base + "/backup"}},
		},
		Fetch: config.FetchPolicy{
			MaxAttempts:    2,
			TimeoutSeconds: 2,
		},
		Classification: config.ClassificationConfig{
			Thresholds: config.Thresholds{High: 6, Medium: 3, Low: 1},
		},
		Storage: config.StorageConfig{ArticlesPath: articlesPath},
	}
	cfg.ApplyDefaults()

	return cfg
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRun_EndToEnd(t *testing.T) {
	srv := newServer(t)
	articlesPath := filepath.Join(t.TempDir(), "articles.json")
	cfg := testConfig(srv.URL, articlesPath)
	require.NoError(t, cfg.Validate())

	sink := &recordingSink{}
	engine := alert.NewEngine(store.NewMemoryHistory(), sink)

	p, err := Build(cfg, engine, logger.Discard(), fetcher.WithSleep(noSleep))
	require.NoError(t, err)

	report := p.Run(context.Background())

	require.Len(t, report.Sources, 3, "disabled sources are skipped")
	assert.Equal(t, []string{"down"}, report.FailedSources())

	gov := report.Sources[0]
	assert.Equal(t, srv.URL+"/backup", gov.EntryURL)
	assert.Equal(t, []string{srv.URL + "/primary"}, gov.FailedURLs)
	assert.Equal(t, 1, gov.Articles)

	news := report.Sources[1]
	assert.Equal(t, srv.URL+"/feed.xml", news.EntryURL)
	assert.Equal(t, 2, news.Links)
	assert.Equal(t, 2, news.Articles, "blocked page still yields a partial record from the feed")
	require.Len(t, news.Degraded, 1)
	assert.Equal(t, srv.URL+"/blocked", news.Degraded[0].URL)
	assert.Contains(t, news.Degraded[0].Missing, "body")

	assert.Equal(t, 3, report.Normalized)
	assert.Equal(t, 3, report.Classified)
	assert.GreaterOrEqual(t, report.Dispatched, 1)
	assert.Equal(t, 6, report.Fetch.TotalURLs)
	assert.Equal(t, 3, report.Fetch.FailedURLs)
	assert.Equal(t, 1, report.Fetch.SourceFailures["down"])

	saved, err := store.NewArticleStore(articlesPath).Load()
	require.NoError(t, err)
	assert.Len(t, saved, 3)

	first := len(sink.sent)

	again := p.Run(context.Background())
	assert.Zero(t, again.Dispatched, "second run must not re-dispatch")
	assert.Len(t, sink.sent, first)
}

func TestNew_RejectsBadProfile(t *testing.T) {
	cfg := testConfig("http://example.test", "")
	cfg.Sources[0].Strategies = []string{"ocr"}

	_, err := New(Deps{Config: cfg})
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestRun_RelevanceFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, articlePage("Local cricket team wins the regional final",
			"The local cricket team won the regional final on Sunday after a tense chase in front of a packed stadium.",
			"Fans celebrated late into the evening and the captain thanked supporters for their backing all season.",
		))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL, "")
	cfg.Sources = []config.SourceConfig{{ID: "news", Tier: "media", URLs: []string{srv.URL + "/sport"}, Enabled: true}}
	cfg.ApplyDefaults()
	cfg.Classification.RelevanceFilter = true

	p, err := Build(cfg, nil, logger.Discard(), fetcher.WithSleep(noSleep))
	require.NoError(t, err)

	report := p.Run(context.Background())

	assert.Equal(t, 1, report.Unique)
	assert.Equal(t, 1, report.Irrelevant)
	assert.Zero(t, report.Classified)
}
