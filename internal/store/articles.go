package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cybernews/internal/models"
)

// ArticleSummary aggregates a saved article set.
type ArticleSummary struct {
	BySeverity  map[models.Severity]int `json:"bySeverity"`
	BySource    map[string]int          `json:"bySource"`
	Total       int                     `json:"total"`
	WithCVEs    int                     `json:"withCves"`
	Unpublished int                     `json:"unpublished"`
}

type articleDocument struct {
	GeneratedAt time.Time                  `json:"generatedAt"`
	Articles    []models.ClassifiedArticle `json:"articles"`
	Summary     ArticleSummary             `json:"summary"`
}

// ArticleStore saves classified articles as a single JSON document.
type ArticleStore struct {
	now  func() time.Time
	path string
}

// NewArticleStore creates a store writing to path.
func NewArticleStore(path string) *ArticleStore {
	return &ArticleStore{path: path, now: time.Now}
}

// Path returns the document location.
func (s *ArticleStore) Path() string {
	return s.path
}

// Save writes articles, most recent first.
func (s *ArticleStore) Save(articles []models.ClassifiedArticle) error {
	sorted := make([]models.ClassifiedArticle, len(articles))
	copy(sorted, articles)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Recency().After(sorted[j].Recency())
	})

	doc := articleDocument{
		GeneratedAt: s.now().UTC(),
		Articles:    sorted,
		Summary:     Summarize(sorted),
	}

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal articles: %w", ErrStore, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrStore, err)
	}

	if err := os.WriteFile(s.path, jsonData, 0o644); err != nil {
		return fmt.Errorf("%w: write articles: %w", ErrStore, err)
	}

	return nil
}

// Load reads the saved articles. A missing document yields no articles.
func (s *ArticleStore) Load() ([]models.ClassifiedArticle, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: read articles: %w", ErrStore, err)
	}

	var doc articleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse articles: %w", ErrStore, err)
	}

	return doc.Articles, nil
}

// Merge combines previously saved articles with fresh ones. Fresh articles
// replace saved ones with the same id but keep the first fetch time, so a
// re-fetched article is not new to the digest.
func Merge(saved, fresh []models.ClassifiedArticle) []models.ClassifiedArticle {
	index := make(map[string]int, len(saved)+len(fresh))
	out := make([]models.ClassifiedArticle, 0, len(saved)+len(fresh))

	for _, list := range [][]models.ClassifiedArticle{saved, fresh} {
		for _, a := range list {
			if i, ok := index[a.ID]; ok {
				if first := out[i].FetchedAt; !first.IsZero() && first.Before(a.FetchedAt) {
					a.FetchedAt = first
				}

				out[i] = a

				continue
			}

			index[a.ID] = len(out)
			out = append(out, a)
		}
	}

	return out
}

// Summarize counts articles by severity and source.
func Summarize(articles []models.ClassifiedArticle) ArticleSummary {
	sum := ArticleSummary{
		Total:      len(articles),
		BySeverity: make(map[models.Severity]int),
		BySource:   make(map[string]int),
	}

	for _, a := range articles {
		sum.BySeverity[a.Severity]++
		sum.BySource[a.SourceID]++

		if len(a.CVEs) > 0 {
			sum.WithCVEs++
		}

		if a.PublishedAt == nil {
			sum.Unpublished++
		}
	}

	return sum
}
