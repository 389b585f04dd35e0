package alert

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cybernews/internal/formatter"
	"cybernews/internal/metrics"
	"cybernews/internal/models"
	"cybernews/pkg/fingerprint"
)

// Track adds a medium or high article to the digest buffer without
// evaluating it. Evaluate tracks every article it sees.
func (e *Engine) Track(a models.ClassifiedArticle) {
	if !a.Severity.AtLeast(models.SeverityMedium) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	key := fingerprint.DedupKey(a.ID, string(a.Severity))

	if b, ok := e.buffer[a.ID]; ok {
		if b.key != key {
			b.notified = false
		}

		b.article = a
		b.key = key

		return
	}

	e.buffer[a.ID] = &buffered{article: a, key: key}
}

// LastDigest returns when the previous digest was sent, or the watermark
// given with WithDigestSince.
func (e *Engine) LastDigest() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastDigest
}

func (e *Engine) markNotified(articleID, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.buffer[articleID]; ok && b.key == key {
		b.notified = true
	}
}

// Buffered returns the number of articles waiting for the next digest.
func (e *Engine) Buffered() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.buffer)
}

// BuildDigest ranks the buffered articles without sending or clearing
// anything.
func (e *Engine) BuildDigest(ctx context.Context) models.Digest {
	d, _ := e.buildDigest(ctx)

	return d
}

// buildDigest also returns the dedup key each snapshotted article had, so
// only unchanged entries are cleared after a successful send.
func (e *Engine) buildDigest(ctx context.Context) (models.Digest, map[string]string) {
	e.mu.Lock()
	snapshot := make([]buffered, 0, len(e.buffer))

	for _, b := range e.buffer {
		snapshot = append(snapshot, *b)
	}

	since := e.lastDigest
	e.mu.Unlock()

	items := make([]models.DigestItem, 0, len(snapshot))
	keys := make(map[string]string, len(snapshot))

	for _, b := range snapshot {
		keys[b.article.ID] = b.key
		notified := b.notified
		if !notified {
			if has, err := e.history.Has(ctx, b.key); err == nil {
				notified = has
			}
		}

		items = append(items, models.DigestItem{Article: b.article, AlreadyNotified: notified})
	}

	Rank(items)

	total := len(items)
	if e.digestMax > 0 && len(items) > e.digestMax {
		items = items[:e.digestMax]
	}

	return models.Digest{
		GeneratedAt: e.now().UTC(),
		Since:       since,
		Items:       items,
		Total:       total,
	}, keys
}

// Digest sends one summary of everything buffered since the previous digest
// and empties the buffer. Per-article dispatch state is left untouched. When
// the sink fails the buffer is kept for the next attempt.
func (e *Engine) Digest(ctx context.Context) (models.Digest, error) {
	d, keys := e.buildDigest(ctx)

	if len(d.Items) == 0 {
		metrics.RecordDigest("empty")
		e.log.Debug("Digest skipped, nothing buffered")

		return d, nil
	}

	rec := models.AlertRecord{
		ID:           e.newID(),
		Channel:      ChannelDigest,
		Title:        fmt.Sprintf("Security digest: %d items", d.Total),
		Message:      formatter.DigestMessage(d, e.preview),
		DispatchedAt: d.GeneratedAt,
	}

	if err := e.sink.Send(ctx, rec); err != nil {
		metrics.RecordDigest("failed")
		e.log.Warn("Digest delivery failed", "error", err, "items", d.Total)

		return d, fmt.Errorf("%w: digest: %w", ErrSinkDelivery, err)
	}

	e.mu.Lock()
	for id, key := range keys {
		if b, ok := e.buffer[id]; ok && b.key == key {
			delete(e.buffer, id)
		}
	}

	e.lastDigest = d.GeneratedAt
	e.mu.Unlock()

	metrics.RecordDigest("sent")
	e.log.Info("Digest sent", "items", d.Total)

	return d, nil
}

// Rank orders digest items by severity score, then source tier, then
// recency, all descending. Article id breaks remaining ties.
func Rank(items []models.DigestItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Article, items[j].Article

		if a.SeverityScore != b.SeverityScore {
			return a.SeverityScore > b.SeverityScore
		}

		if ra, rb := a.SourceTier.Rank(), b.SourceTier.Rank(); ra != rb {
			return ra > rb
		}

		if ta, tb := a.Recency(), b.Recency(); !ta.Equal(tb) {
			return ta.After(tb)
		}

		return a.ID < b.ID
	})
}
