// Package classifier scores articles for severity and tags attack types,
// sectors, CVE identifiers and threat actors.
//
// Classification is a pure function of the article text and the dictionary,
// thresholds and multipliers the Classifier was built with.
package classifier

import (
	"regexp"
	"strings"

	"cybernews/internal/config"
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

var cvePattern = regexp.MustCompile(`(?i)\bCVE-\d{4}-\d{4,7}\b`)

// Classifier assigns severity and tags to normalized articles.
type Classifier struct {
	severity    *matcher
	attackTypes []labeled
	sectors     []labeled
	actors      *matcher
	relevance   *matcher
	thresholds  config.Thresholds
	multipliers Multipliers
}

// New builds a classifier from a dictionary, severity thresholds and tier
// multipliers.
func New(dict Dictionary, thresholds config.Thresholds, multipliers Multipliers) *Classifier {
	c := &Classifier{
		severity:    newMatcher(false),
		actors:      newMatcher(false),
		relevance:   newMatcher(true),
		thresholds:  thresholds,
		multipliers: multipliers,
	}

	for _, term := range dict.High {
		c.severity.add(term, term, WeightHigh)
	}

	for _, term := range dict.Medium {
		c.severity.add(term, term, WeightMedium)
	}

	for _, term := range dict.Low {
		c.severity.add(term, term, WeightLow)
	}

	for _, at := range AttackTypeOrder {
		c.attackTypes = append(c.attackTypes, newLabeled(string(at), dict.AttackTypes[at]))
	}

	for _, sec := range SectorOrder {
		c.sectors = append(c.sectors, newLabeled(string(sec), dict.Sectors[sec]))
	}

	for _, actor := range dict.ThreatActors {
		c.actors.add(actor, actor, 0)
	}

	for _, term := range dict.Relevance {
		c.relevance.add(term, term, 0)
	}

	return c
}

// FromConfig builds a classifier from the classification config section.
func FromConfig(cfg config.ClassificationConfig) *Classifier {
	return New(DictionaryFromConfig(cfg), cfg.Thresholds, MultipliersFromConfig(cfg.TierMultipliers))
}

// Classify scores and tags a normalized article.
func (c *Classifier) Classify(a models.NormalizedArticle) models.ClassifiedArticle {
	tokens := strings.Fields(searchText(a))

	sum, keywords := c.weightedSum(tokens)
	score := Score(sum, c.multipliers.For(a.SourceTier))

	return models.ClassifiedArticle{
		NormalizedArticle: a,
		Severity:          SeverityFor(score, c.thresholds),
		SeverityScore:     score,
		KeywordsMatched:   keywords,
		AttackTypes:       tagged[models.AttackType](c.attackTypes, tokens),
		Sectors:           tagged[models.Sector](c.sectors, tokens),
		CVEs:              ExtractCVEs(a.Title + "\n" + a.Body),
		ThreatActors:      labels(c.actors.find(tokens)),
	}
}

// Relevant reports whether the article mentions any cybersecurity term.
// Government sources are always relevant.
func (c *Classifier) Relevant(a models.NormalizedArticle) bool {
	if a.SourceTier == models.TierGovernment {
		return true
	}

	return c.relevance.contains(strings.Fields(searchText(a)))
}

// weightedSum returns the weighted occurrence count and the distinct matched
// keywords ordered by first occurrence.
func (c *Classifier) weightedSum(tokens []string) (int, []string) {
	sum := 0
	matches := c.severity.find(tokens)

	for _, m := range matches {
		sum += m.phrase.weight
	}

	return sum, labels(matches)
}

// ExtractCVEs returns the CVE identifiers in text, upper-cased and
// de-duplicated in first-seen order.
func ExtractCVEs(text string) []string {
	found := cvePattern.FindAllString(text, -1)
	if len(found) == 0 {
		return nil
	}

	for i := range found {
		found[i] = strings.ToUpper(found[i])
	}

	return utils.UniqueStrings(found)
}

// labeled is the term set of one tag. Each tag is matched on its own so
// overlapping terms of different tags can all fire.
type labeled struct {
	m     *matcher
	label string
}

func newLabeled(label string, terms []string) labeled {
	m := newMatcher(false)
	for _, term := range terms {
		m.add(term, label, 0)
	}

	return labeled{label: label, m: m}
}

func tagged[T ~string](tags []labeled, tokens []string) []T {
	var out []T

	for _, tag := range tags {
		if tag.m.contains(tokens) {
			out = append(out, T(tag.label))
		}
	}

	return out
}

func labels(matches []match) []string {
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.phrase.label)
	}

	return utils.UniqueStrings(out)
}

func searchText(a models.NormalizedArticle) string {
	if text := a.SearchText(); text != "" {
		return text
	}

	return utils.SearchForm(a.Title + " " + a.Body)
}
