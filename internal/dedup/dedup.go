// Package dedup merges near-duplicate articles reported by several sources.
//
// Merging is greedy and single pass: each article is compared with the
// canonical record of every cluster formed so far and joins the first one it
// matches. This is not globally optimal clustering; an article that would
// match two clusters joins the earlier one.
package dedup

import (
	"time"

	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// Deduplicator detects duplicates by title similarity and publication window.
type Deduplicator struct {
	threshold float64
	window    time.Duration
}

// New creates a deduplicator. Titles whose similarity is at least threshold
// and whose publication times are at most window apart are duplicates.
func New(threshold float64, window time.Duration) *Deduplicator {
	return &Deduplicator{threshold: threshold, window: window}
}

type cluster struct {
	canonical  models.NormalizedArticle
	tokens     map[string]struct{}
	provenance []string
}

// Dedupe returns one canonical article per group of duplicates, in the order
// each group was first seen. The canonical article comes from the highest
// tier source, ties going to the earliest fetch, and carries the source ids
// of every article merged into it.
func (d *Deduplicator) Dedupe(articles []models.NormalizedArticle) []models.NormalizedArticle {
	clusters := make([]*cluster, 0, len(articles))

	for _, a := range articles {
		tokens := tokenSet(a.Title)

		var match *cluster

		if len(tokens) > 0 {
			for _, c := range clusters {
				if d.duplicates(c, a, tokens) {
					match = c

					break
				}
			}
		}

		if match == nil {
			clusters = append(clusters, &cluster{
				canonical:  a,
				tokens:     tokens,
				provenance: provenanceOf(a),
			})

			continue
		}

		match.provenance = utils.UniqueStrings(append(match.provenance, provenanceOf(a)...))

		if preferred(a, match.canonical) {
			match.canonical = a
			match.tokens = tokens
		}
	}

	out := make([]models.NormalizedArticle, 0, len(clusters))

	for _, c := range clusters {
		canonical := c.canonical
		canonical.Provenance = c.provenance
		out = append(out, canonical)
	}

	return out
}

func (d *Deduplicator) duplicates(c *cluster, a models.NormalizedArticle, tokens map[string]struct{}) bool {
	if len(c.tokens) == 0 || Similarity(c.tokens, tokens) < d.threshold {
		return false
	}

	return withinWindow(c.canonical.PublishedAt, a.PublishedAt, d.window)
}

// Similarity is the token-overlap ratio: shared tokens divided by the size of
// the larger token set.
func Similarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0

	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}

	return float64(shared) / float64(max(len(a), len(b)))
}

func withinWindow(a, b *time.Time, window time.Duration) bool {
	if a == nil || b == nil {
		return true
	}

	diff := a.Sub(*b)
	if diff < 0 {
		diff = -diff
	}

	return diff <= window
}

// preferred reports whether a should replace the current canonical article.
func preferred(a, current models.NormalizedArticle) bool {
	if a.SourceTier.Rank() != current.SourceTier.Rank() {
		return a.SourceTier.Rank() > current.SourceTier.Rank()
	}

	return a.FetchedAt.Before(current.FetchedAt)
}

func provenanceOf(a models.NormalizedArticle) []string {
	if len(a.Provenance) > 0 {
		return a.Provenance
	}

	return []string{a.SourceID}
}

func tokenSet(title string) map[string]struct{} {
	tokens := utils.Tokens(title)
	set := make(map[string]struct{}, len(tokens))

	for _, tok := range tokens {
		set[tok] = struct{}{}
	}

	return set
}
