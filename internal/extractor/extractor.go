// Package extractor pulls structured fields out of fetched pages by trying an
// ordered list of strategies and keeping whatever each one manages to find.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/metrics"
	"cybernews/internal/models"
)

// MethodNone marks a record no strategy contributed to.
const MethodNone = "none"

// ErrUnknownStrategy is returned when a profile names a strategy that does not exist.
var ErrUnknownStrategy = fmt.Errorf("%w: unknown extraction strategy", config.ErrConfiguration)

// Strategy is one way of extracting fields from a page. It returns false
// when it found nothing at all.
type Strategy interface {
	Name() string
	TryExtract(raw models.RawFetchResult) (models.ExtractedRecord, bool)
}

// Profile is the ordered list of strategies used for a source.
type Profile []Strategy

// Names lists the strategy names of the profile.
func (p Profile) Names() []string {
	names := make([]string, 0, len(p))
	for _, s := range p {
		names = append(names, s.Name())
	}

	return names
}

// BuildProfile turns the strategy names of a source into a profile.
func BuildProfile(src config.SourceConfig) (Profile, error) {
	profile := make(Profile, 0, len(src.Strategies))

	for _, name := range src.Strategies {
		switch name {
		case config.StrategyReadability:
			profile = append(profile, NewReadabilityStrategy())
		case config.StrategyMeta:
			profile = append(profile, NewMetaStrategy())
		case config.StrategySelector:
			profile = append(profile, NewSelectorStrategy(src.Selectors))
		case config.StrategyGeneric:
			profile = append(profile, NewGenericStrategy())
		default:
			return nil, fmt.Errorf("%w: %s in source %s", ErrUnknownStrategy, name, src.ID)
		}
	}

	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: source %s has no strategies", config.ErrConfiguration, src.ID)
	}

	return profile, nil
}

// Extractor applies profiles to fetched pages.
type Extractor struct {
	log     *logger.Logger
	quality Quality
}

// New creates an extractor enforcing quality.
func New(quality Quality, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Discard()
	}

	return &Extractor{log: log, quality: quality}
}

// Extract tries the strategies of profile in order. The first strategy
// producing an acceptable title and body wins; otherwise the best fields
// found across all strategies are merged and the record is marked partial.
// A fetch without a body yields an empty partial record.
func (e *Extractor) Extract(raw models.RawFetchResult, profile Profile) models.ExtractedRecord {
	empty := models.ExtractedRecord{
		SourceID:         raw.SourceID,
		URL:              raw.URL,
		ExtractionMethod: MethodNone,
		Partial:          true,
	}

	if !raw.OK() || len(bytes.TrimSpace(raw.Body)) == 0 {
		metrics.RecordExtraction(MethodNone, true)

		return empty
	}

	log := e.log.With("source", raw.SourceID, "url", raw.URL)

	var merged mergeState

	for _, strategy := range profile {
		rec, ok := strategy.TryExtract(raw)
		if !ok {
			log.Debug("strategy found nothing", "strategy", strategy.Name())

			continue
		}

		rec = e.applyQuality(rec, strategy.Name(), log)

		if rec.Complete() {
			rec.SourceID = raw.SourceID
			rec.URL = raw.URL
			rec.ExtractionMethod = strategy.Name()
			rec.Partial = false

			if rec.PublishedAt == "" {
				rec.PublishedAt = merged.rec.PublishedAt
			}

			metrics.RecordExtraction(rec.ExtractionMethod, false)

			return rec
		}

		merged.add(rec, strategy.Name())
	}

	out := merged.result(empty)

	log.Warn("partial extraction",
		"method", out.ExtractionMethod,
		"missing", strings.Join(out.MissingFields(), ","))
	metrics.RecordExtraction(out.ExtractionMethod, true)

	return out
}

// applyQuality drops fields that fail the quality checks so later
// strategies get a chance to supply them.
func (e *Extractor) applyQuality(rec models.ExtractedRecord, strategy string, log *logger.Logger) models.ExtractedRecord {
	if rec.Title != "" {
		if err := e.quality.CheckTitle(rec.Title); err != nil {
			log.Debug("title rejected", "strategy", strategy, "error", err)
			rec.Title = ""
		}
	}

	if rec.Body != "" {
		if err := e.quality.CheckBody(rec.Body); err != nil {
			log.Debug("body rejected", "strategy", strategy, "error", err)
			rec.Body = ""
		}
	}

	return rec
}

// Supplement fills the fields rec is missing from extra, e.g. the headline
// and summary a feed advertised for a page that could not be extracted.
func (e *Extractor) Supplement(rec models.ExtractedRecord, extra Strategy, raw models.RawFetchResult) models.ExtractedRecord {
	if !rec.Partial && rec.PublishedAt != "" {
		return rec
	}

	add, ok := extra.TryExtract(raw)
	if !ok {
		return rec
	}

	add = e.applyQuality(add, extra.Name(), e.log)

	var merged mergeState
	if rec.ExtractionMethod != MethodNone {
		merged.add(rec, rec.ExtractionMethod)
	}

	merged.add(add, extra.Name())

	base := rec
	base.ExtractionMethod = MethodNone
	out := merged.result(base)
	out.Partial = !out.Complete()

	return out
}

// mergeState accumulates the first non-empty value of each field.
type mergeState struct {
	rec     models.ExtractedRecord
	methods []string
}

func (m *mergeState) add(rec models.ExtractedRecord, method string) {
	contributed := false

	if m.rec.Title == "" && rec.Title != "" {
		m.rec.Title = rec.Title
		contributed = true
	}

	if m.rec.Body == "" && rec.Body != "" {
		m.rec.Body = rec.Body
		contributed = true
	}

	if m.rec.PublishedAt == "" && rec.PublishedAt != "" {
		m.rec.PublishedAt = rec.PublishedAt
		contributed = true
	}

	if contributed {
		m.methods = append(m.methods, method)
	}
}

func (m *mergeState) result(base models.ExtractedRecord) models.ExtractedRecord {
	base.Title = m.rec.Title
	base.Body = m.rec.Body
	base.PublishedAt = m.rec.PublishedAt
	base.Partial = true

	if len(m.methods) > 0 {
		base.ExtractionMethod = strings.Join(m.methods, "+")
	}

	return base
}

