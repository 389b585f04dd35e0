package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/models"
	"cybernews/internal/store"
)

func TestDigest_RankingAndNotifiedFlag(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := newTestEngine(sink, store.NewMemoryHistory())

	gov5 := classified("gov5", models.TierGovernment, models.SeverityMedium, 5)
	media9 := classified("media9", models.TierMedia, models.SeverityHigh, 9)
	gov9 := classified("gov9", models.TierGovernment, models.SeverityHigh, 9)

	e.Track(gov5)
	e.Track(media9)

	_, err := e.Evaluate(ctx, gov9)
	require.NoError(t, err)

	e.Track(classified("low", models.TierGovernment, models.SeverityLow, 2))
	assert.Equal(t, 3, e.Buffered())

	d, err := e.Digest(ctx)
	require.NoError(t, err)

	require.Len(t, d.Items, 3)
	assert.Equal(t, "gov9", d.Items[0].Article.ID)
	assert.Equal(t, "media9", d.Items[1].Article.ID)
	assert.Equal(t, "gov5", d.Items[2].Article.ID)
	assert.True(t, d.Items[0].AlreadyNotified)
	assert.False(t, d.Items[1].AlreadyNotified)

	sent := sink.records()
	require.Len(t, sent, 2)
	assert.Equal(t, ChannelDigest, sent[1].Channel)
	assert.Contains(t, sent[1].Message, "1. Source gov9: Title gov9 (already notified)")

	assert.Zero(t, e.Buffered())
	assert.Equal(t, StateDispatched, e.State("gov9:high"), "digest leaves dispatch state alone")

	again, err := e.Evaluate(ctx, gov9)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, again.Reason)
}

func TestDigest_RecencyBreaksTies(t *testing.T) {
	older := classified("older", models.TierMedia, models.SeverityHigh, 7)
	newer := classified("newer", models.TierMedia, models.SeverityHigh, 7)
	later := now.Add(time.Hour)
	newer.PublishedAt = &later

	items := []models.DigestItem{{Article: older}, {Article: newer}}
	Rank(items)

	assert.Equal(t, "newer", items[0].Article.ID)
}

func TestDigest_FailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("down")}
	e := newTestEngine(sink, store.NewMemoryHistory())

	e.Track(classified("m", models.TierMedia, models.SeverityMedium, 4))

	_, err := e.Digest(ctx)
	require.ErrorIs(t, err, ErrSinkDelivery)
	assert.Equal(t, 1, e.Buffered())

	sink.setErr(nil)

	d, err := e.Digest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Total)
	assert.Zero(t, e.Buffered())
}

func TestDigest_EmptySendsNothing(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(sink, store.NewMemoryHistory())

	d, err := e.Digest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.Empty(t, sink.records())
}

func TestDigest_MaxItemsKeepsTotal(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(store.NewMemoryHistory(), sink, WithDigestLimits(2, 1))

	for i, id := range []string{"a", "b", "c", "d"} {
		e.Track(classified(id, models.TierMedia, models.SeverityHigh, float64(10-i)))
	}

	d, err := e.Digest(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Items, 2)
	assert.Equal(t, 4, d.Total)
	assert.Contains(t, sink.records()[0].Message, "+1 more critical alerts.")
}

func TestDigest_EscalationResetsNotifiedFlag(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := newTestEngine(sink, store.NewMemoryHistory())

	_, err := e.Evaluate(ctx, classified("a", models.TierMedia, models.SeverityMedium, 4))
	require.NoError(t, err)

	sink.setErr(errors.New("gateway down"))

	_, err = e.Evaluate(ctx, classified("a", models.TierMedia, models.SeverityHigh, 8))
	require.ErrorIs(t, err, ErrSinkDelivery)

	d := e.BuildDigest(ctx)
	require.Len(t, d.Items, 1)
	assert.Equal(t, models.SeverityHigh, d.Items[0].Article.Severity)
	assert.False(t, d.Items[0].AlreadyNotified, "the high alert was never delivered")
}

type hookSink struct {
	onSend func()
}

func (s *hookSink) Name() string { return "hook" }

func (s *hookSink) Send(context.Context, models.AlertRecord) error {
	if s.onSend != nil {
		s.onSend()
	}

	return nil
}

func TestDigest_KeepsArticleUpdatedDuringSend(t *testing.T) {
	ctx := context.Background()
	sink := &hookSink{}
	e := NewEngine(store.NewMemoryHistory(), sink, WithClock(func() time.Time { return now }))

	e.Track(classified("a", models.TierMedia, models.SeverityMedium, 4))
	e.Track(classified("b", models.TierMedia, models.SeverityMedium, 4))

	sink.onSend = func() {
		e.Track(classified("a", models.TierMedia, models.SeverityHigh, 8))
	}

	d, err := e.Digest(ctx)
	require.NoError(t, err)
	assert.Len(t, d.Items, 2)

	sink.onSend = nil

	next := e.BuildDigest(ctx)
	require.Len(t, next.Items, 1, "the escalated article waits for the next digest")
	assert.Equal(t, models.SeverityHigh, next.Items[0].Article.Severity)
}

func TestDigest_SinceWatermark(t *testing.T) {
	since := now.Add(-24 * time.Hour)
	e := NewEngine(store.NewMemoryHistory(), &recordingSink{},
		WithClock(func() time.Time { return now }), WithDigestSince(since))

	assert.Equal(t, since, e.LastDigest())

	e.Track(classified("a", models.TierMedia, models.SeverityHigh, 8))

	d, err := e.Digest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, since, d.Since)
	assert.Equal(t, now, e.LastDigest())
}
