// Package pipeline runs the ingestion chain: fetch, extract, normalize,
// deduplicate, classify and alert.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"cybernews/internal/alert"
	"cybernews/internal/classifier"
	"cybernews/internal/config"
	"cybernews/internal/dedup"
	"cybernews/internal/discovery"
	"cybernews/internal/extractor"
	"cybernews/internal/fetcher"
	"cybernews/internal/logger"
	"cybernews/internal/metrics"
	"cybernews/internal/models"
	"cybernews/internal/normalizer"
	"cybernews/internal/store"
)

// Deps are the collaborators of a pipeline.
type Deps struct {
	Config     *config.Config
	Fetcher    *fetcher.Fetcher
	Attempts   *fetcher.AttemptLog
	Extractor  *extractor.Extractor
	Normalizer *normalizer.Normalizer
	Dedup      *dedup.Deduplicator
	Classifier *classifier.Classifier
	Engine     *alert.Engine
	Articles   *store.ArticleStore
	Log        *logger.Logger
}

// Pipeline runs every enabled source through the chain.
type Pipeline struct {
	deps     Deps
	profiles map[string]extractor.Profile
	log      *logger.Logger
	now      func() time.Time
}

// New validates the extraction profiles of all enabled sources and returns
// a pipeline. A bad profile is a configuration error.
func New(deps Deps) (*Pipeline, error) {
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}

	p := &Pipeline{
		deps:     deps,
		profiles: make(map[string]extractor.Profile),
		log:      log,
		now:      time.Now,
	}

	for _, src := range deps.Config.GetEnabledSources() {
		profile, err := extractor.BuildProfile(src)
		if err != nil {
			return nil, err
		}

		p.profiles[src.ID] = profile
		log.Debug("Source profile", "source", src.ID, "strategies", profile.Names())
	}

	return p, nil
}

// Build wires a pipeline from configuration.
func Build(cfg *config.Config, engine *alert.Engine, log *logger.Logger, opts ...fetcher.Option) (*Pipeline, error) {
	rates := fetcher.NewRateRegistry(time.Duration(cfg.Fetch.MinRequestIntervalMs) * time.Millisecond)
	for _, src := range cfg.Sources {
		rates.Set(src.ID, cfg.Fetch.MinInterval(src))
	}

	attempts := fetcher.NewAttemptLog()

	fetchOpts := []fetcher.Option{fetcher.WithLogger(log), fetcher.WithAttemptLog(attempts)}
	if cfg.Fetch.RespectRobots {
		robots := fetcher.NewRobotsCache(&http.Client{Timeout: cfg.Fetch.GetTimeout()}, log)
		fetchOpts = append(fetchOpts, fetcher.WithRobots(robots))
	}

	fetchOpts = append(fetchOpts, opts...)

	var articles *store.ArticleStore
	if cfg.Storage.ArticlesPath != "" {
		articles = store.NewArticleStore(cfg.Storage.ArticlesPath)
	}

	return New(Deps{
		Config:   cfg,
		Fetcher:  fetcher.New(cfg.Fetch, rates, fetchOpts...),
		Attempts: attempts,
		Extractor: extractor.New(
			extractor.QualityFromConfig(cfg.Extraction.MinBodyLength, cfg.Extraction.MaxBoilerplateRatio),
			log,
		),
		Normalizer: normalizer.New(normalizer.RegistryFromConfig(cfg), cfg.Normalization.DateLayouts, log),
		Dedup:      dedup.New(cfg.Dedup.SimilarityThreshold, cfg.Dedup.DedupWindow()),
		Classifier: classifier.FromConfig(cfg.Classification),
		Engine:     engine,
		Articles:   articles,
		Log:        log,
	})
}

// Run executes one ingestion pass. Failures of single sources or articles
// are recorded in the report and never abort the run.
func (p *Pipeline) Run(ctx context.Context) RunReport {
	report := RunReport{
		Started:    p.now(),
		BySeverity: make(map[models.Severity]int),
	}

	if p.deps.Attempts != nil {
		p.deps.Attempts.Reset()
	}

	sources := p.deps.Config.GetEnabledSources()
	results := make([][]models.NormalizedArticle, len(sources))
	report.Sources = make([]SourceReport, len(sources))

	var g errgroup.Group

	g.SetLimit(max(p.deps.Config.Fetch.MaxConcurrentSources, 1))

	for i, src := range sources {
		g.Go(func() error {
			results[i], report.Sources[i] = p.collectSource(ctx, src)

			return nil
		})
	}

	_ = g.Wait()

	var all []models.NormalizedArticle
	for _, r := range results {
		all = append(all, r...)
	}

	report.Normalized = len(all)

	unique := p.deps.Dedup.Dedupe(all)
	report.Unique = len(unique)

	classified := make([]models.ClassifiedArticle, 0, len(unique))

	for _, a := range unique {
		if p.deps.Config.Classification.RelevanceFilter && !p.deps.Classifier.Relevant(a) {
			report.Irrelevant++

			continue
		}

		c := p.deps.Classifier.Classify(a)
		metrics.RecordClassified(string(c.Severity))

		classified = append(classified, c)
		report.BySeverity[c.Severity]++
	}

	report.Classified = len(classified)

	p.alert(ctx, classified, &report)
	p.save(classified, &report)

	if p.deps.Attempts != nil {
		report.Fetch = p.deps.Attempts.Stats()
	}

	report.Finished = p.now()
	p.log.Info("Run finished", "summary", report.String())

	return report
}

func (p *Pipeline) alert(ctx context.Context, articles []models.ClassifiedArticle, report *RunReport) {
	if p.deps.Engine == nil {
		return
	}

	for _, a := range articles {
		d, err := p.deps.Engine.Evaluate(ctx, a)

		switch {
		case err != nil:
			report.Failed++
			report.Errors = append(report.Errors, err.Error())
		case d.State == alert.StateDispatched:
			report.Dispatched++
		case d.State == alert.StateSuppressed:
			report.Suppressed++
		}
	}
}

func (p *Pipeline) save(articles []models.ClassifiedArticle, report *RunReport) {
	if p.deps.Articles == nil {
		return
	}

	saved, err := p.deps.Articles.Load()
	if err != nil {
		p.log.Warn("Failed to load saved articles, overwriting", "path", p.deps.Articles.Path(), "error", err)
	}

	if err := p.deps.Articles.Save(store.Merge(saved, articles)); err != nil {
		p.log.Error("Failed to save articles", "path", p.deps.Articles.Path(), "error", err)
		report.Errors = append(report.Errors, err.Error())
	}
}

// collectSource discovers and processes the articles of one source.
func (p *Pipeline) collectSource(ctx context.Context, src config.SourceConfig) ([]models.NormalizedArticle, SourceReport) {
	report := SourceReport{SourceID: src.ID}
	log := p.log.With("source", src.ID)

	entries := discovery.ForSource(src)
	if len(entries) == 0 {
		return p.collectDirect(ctx, src, &report, log), report
	}

	links := p.discover(ctx, src, entries, &report, log)
	if len(links) == 0 {
		report.Failed = true
		log.Error("No entry point yielded article links", "tried", len(entries))

		return nil, report
	}

	report.Links = len(links)

	var articles []models.NormalizedArticle

	for _, link := range links {
		if ctx.Err() != nil {
			report.addError(ctx.Err())

			break
		}

		if a, ok := p.processLink(ctx, src, link, &report); ok {
			articles = append(articles, a)
		}
	}

	report.Articles = len(articles)

	if len(articles) == 0 {
		report.Failed = true
	}

	return articles, report
}

// discover walks the entry points in priority order and returns the links
// of the first one that yields any.
func (p *Pipeline) discover(ctx context.Context, src config.SourceConfig, entries []discovery.Entry, report *SourceReport, log *logger.Logger) []discovery.Link {
	for _, entry := range entries {
		raw := p.deps.Fetcher.Fetch(ctx, src.ID, entry.URL)
		if !raw.OK() {
			report.FailedURLs = append(report.FailedURLs, entry.URL)

			continue
		}

		links, err := entry.Discoverer.Discover(raw)
		if err != nil {
			log.Warn("Discovery failed", "url", entry.URL, "error", err)
			report.addError(fmt.Errorf("%s: %w", entry.URL, err))

			continue
		}

		if len(links) > 0 {
			report.EntryURL = entry.URL

			return links
		}
	}

	return nil
}

// collectDirect treats the source URLs as alternative article pages and
// stops at the first that yields an article.
func (p *Pipeline) collectDirect(ctx context.Context, src config.SourceConfig, report *SourceReport, log *logger.Logger) []models.NormalizedArticle {
	for _, u := range src.GetAllURLs() {
		if ctx.Err() != nil {
			report.addError(ctx.Err())

			break
		}

		report.Links++

		if a, ok := p.processLink(ctx, src, discovery.Link{URL: u}, report); ok {
			report.EntryURL = u
			report.Articles = 1

			return []models.NormalizedArticle{a}
		}

		log.Warn("Source URL yielded no article, trying next", "url", u)
	}

	report.Failed = true

	return nil
}

// processLink runs one article through fetch, extraction, validation and
// normalization.
func (p *Pipeline) processLink(ctx context.Context, src config.SourceConfig, link discovery.Link, report *SourceReport) (models.NormalizedArticle, bool) {
	raw := p.deps.Fetcher.Fetch(ctx, src.ID, link.URL)
	if !raw.OK() {
		report.FailedURLs = append(report.FailedURLs, link.URL)
	}

	rec := p.deps.Extractor.Extract(raw, p.profiles[src.ID])

	if link.Title != "" || link.Summary != "" || link.Published != "" {
		rec = p.deps.Extractor.Supplement(rec, extractor.FeedItem{
			Title:     link.Title,
			Summary:   link.Summary,
			Published: link.Published,
		}, raw)
	}

	if err := normalizer.Validate(rec); err != nil {
		if !errors.Is(err, normalizer.ErrEmptyRecord) {
			report.addError(fmt.Errorf("%s: %w", link.URL, err))
		}

		report.Dropped++

		return models.NormalizedArticle{}, false
	}

	if rec.Partial {
		report.Degraded = append(report.Degraded, DegradedItem{
			URL:     link.URL,
			Method:  rec.ExtractionMethod,
			Missing: rec.MissingFields(),
		})
	}

	fetchedAt := raw.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = p.now()
	}

	return p.deps.Normalizer.Normalize(rec, fetchedAt), true
}
