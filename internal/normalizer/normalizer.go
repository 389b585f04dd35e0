// Package normalizer canonicalizes extracted records into articles.
package normalizer

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/models"
	"cybernews/pkg/fingerprint"
	"cybernews/pkg/utils"
)

// SourceInfo is the registry data the normalizer needs about a source.
type SourceInfo struct {
	Name string
	Tier models.SourceTier
}

// Registry maps source ids to their static information.
type Registry map[string]SourceInfo

// RegistryFromConfig builds the registry from the configured sources.
func RegistryFromConfig(cfg *config.Config) Registry {
	reg := make(Registry, len(cfg.Sources))

	for _, src := range cfg.Sources {
		reg[src.ID] = SourceInfo{Name: src.DisplayName(), Tier: models.SourceTier(src.Tier)}
	}

	return reg
}

// Normalizer turns extracted records into normalized articles.
type Normalizer struct {
	registry Registry
	log      *logger.Logger
	layouts  []string
}

// New creates a normalizer. Empty layouts select DefaultLayouts.
func New(registry Registry, layouts []string, log *logger.Logger) *Normalizer {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Normalizer{
		registry: registry,
		log:      log,
		layouts:  layouts,
	}
}

// Normalize cleans text, computes the stable id, parses the publication date
// and looks up the source tier. It never fails: an unparseable date becomes
// nil and an unknown source is treated as media.
func (n *Normalizer) Normalize(rec models.ExtractedRecord, fetchedAt time.Time) models.NormalizedArticle {
	log := n.log.With("source", rec.SourceID, "url", rec.URL)

	title := CleanText(rec.Title)
	body := CleanText(rec.Body)

	info, ok := n.registry[rec.SourceID]
	if !ok || !info.Tier.Valid() {
		log.Warn("source missing from registry, assuming media tier")

		info = SourceInfo{Name: firstNonEmpty(info.Name, rec.SourceID), Tier: models.TierMedia}
	}

	article := models.NormalizedArticle{
		ID:          fingerprint.ArticleID(rec.SourceID, rec.URL, title),
		SourceID:    rec.SourceID,
		SourceName:  info.Name,
		SourceTier:  info.Tier,
		URL:         strings.TrimSpace(rec.URL),
		Title:       title,
		Body:        body,
		SearchTitle: utils.SearchForm(title),
		SearchBody:  utils.SearchForm(body),
		FetchedAt:   fetchedAt,
		Provenance:  []string{rec.SourceID},
		Partial:     rec.Partial,
	}

	if rec.PublishedAt != "" {
		published, err := ParseDate(rec.PublishedAt, n.layouts)
		if err != nil {
			log.Debug("publication date left empty", "raw", rec.PublishedAt, "error", err)
		} else {
			article.PublishedAt = published
		}
	}

	return article
}

// CleanText applies NFKC normalization, drops control and zero-width
// characters and collapses whitespace. Casing and punctuation are kept.
func CleanText(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}

		return r
	}, s)

	return utils.NormalizeWhitespace(s)
}

// ErrEmptyRecord marks a record with neither title nor body.
var ErrEmptyRecord = errors.New("record has neither title nor body")

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
