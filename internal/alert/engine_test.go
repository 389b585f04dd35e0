package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/config"
	"cybernews/internal/models"
	"cybernews/internal/store"
)

type recordingSink struct {
	err  error
	sent []models.AlertRecord
	mu   sync.Mutex
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, rec models.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.sent = append(s.sent, rec)

	return nil
}

func (s *recordingSink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.err = err
}

func (s *recordingSink) records() []models.AlertRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.AlertRecord(nil), s.sent...)
}

var now = time.Date(2024, 9, 2, 12, 0, 0, 0, time.UTC)

func newTestEngine(sink *recordingSink, history store.History) *Engine {
	n := 0

	return NewEngine(history, sink,
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string {
			n++

			return fmt.Sprintf("rec-%d", n)
		}),
	)
}

func classified(id string, tier models.SourceTier, sev models.Severity, score float64) models.ClassifiedArticle {
	published := now.Add(-time.Hour)

	return models.ClassifiedArticle{
		NormalizedArticle: models.NormalizedArticle{
			ID:          id,
			SourceID:    string(tier) + "-src",
			SourceName:  "Source " + id,
			SourceTier:  tier,
			Title:       "Title " + id,
			URL:         "https://example.test/" + id,
			PublishedAt: &published,
			FetchedAt:   now,
		},
		Severity:      sev,
		SeverityScore: score,
	}
}

func TestEvaluate_DispatchOnceThenSuppress(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	history := store.NewMemoryHistory()
	e := newTestEngine(sink, history)
	a := classified("a1", models.TierGovernment, models.SeverityHigh, 12)

	assert.Equal(t, StateUnseen, e.State("a1:high"))

	d, err := e.Evaluate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, d.State)
	assert.Equal(t, "a1:high", d.DedupKey)
	require.NotNil(t, d.Record)
	assert.Equal(t, "rec-1", d.Record.ID)
	assert.Contains(t, d.Record.Message, "SECURITY ALERT: Source a1")

	d, err = e.Evaluate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, StateSuppressed, d.State)
	assert.Equal(t, ReasonDuplicate, d.Reason)
	assert.Nil(t, d.Record)

	assert.Len(t, sink.records(), 1)

	has, err := history.Has(ctx, "a1:high")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestEvaluate_NewSeverityTierDispatchesAgain(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := newTestEngine(sink, store.NewMemoryHistory())

	_, err := e.Evaluate(ctx, classified("a1", models.TierMedia, models.SeverityMedium, 4))
	require.NoError(t, err)

	d, err := e.Evaluate(ctx, classified("a1", models.TierMedia, models.SeverityHigh, 9))
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, d.State)
	assert.Len(t, sink.records(), 2)
}

func TestEvaluate_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	history := store.NewMemoryHistory()
	e := newTestEngine(sink, history)

	for _, sev := range []models.Severity{models.SeverityNone, models.SeverityLow} {
		d, err := e.Evaluate(ctx, classified("x", models.TierMedia, sev, 1))
		require.NoError(t, err)
		assert.Equal(t, StateSuppressed, d.State)
		assert.Equal(t, ReasonBelowThreshold, d.Reason)
	}

	assert.Empty(t, sink.records())

	size, _ := history.Size(ctx)
	assert.Zero(t, size)
}

func TestEvaluate_MinSeverityLow(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(store.NewMemoryHistory(), sink, WithMinSeverity(models.SeverityLow))

	d, err := e.Evaluate(context.Background(), classified("x", models.TierMedia, models.SeverityLow, 2))
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, d.State)

	d, err = e.Evaluate(context.Background(), classified("y", models.TierMedia, models.SeverityNone, 0))
	require.NoError(t, err)
	assert.Equal(t, StateSuppressed, d.State)
}

func TestEvaluate_ConcurrentAtMostOnce(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(store.NewMemoryHistory(), sink)
	a := classified("race", models.TierGovernment, models.SeverityHigh, 10)

	var wg sync.WaitGroup

	for range 32 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = e.Evaluate(context.Background(), a)
		}()
	}

	wg.Wait()

	assert.Len(t, sink.records(), 1)
	assert.Equal(t, StateDispatched, e.State("race:high"))
}

func TestEvaluate_SinkFailureKeepsRecordRetryable(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("gateway down")}
	history := store.NewMemoryHistory()
	e := newTestEngine(sink, history)
	a := classified("f1", models.TierMedia, models.SeverityHigh, 8)

	d, err := e.Evaluate(ctx, a)
	require.ErrorIs(t, err, ErrSinkDelivery)
	assert.Equal(t, StateEvaluated, d.State)
	assert.Equal(t, StateEvaluated, e.State("f1:high"))

	has, err := history.Has(ctx, "f1:high")
	require.NoError(t, err)
	assert.False(t, has, "failed delivery must not be recorded")

	pending, err := e.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "f1:high", pending[0].DedupKey)
	assert.Equal(t, "gateway down", pending[0].LastError)

	// Still failing: replay keeps it pending.
	report, err := e.Replay(ctx)
	require.ErrorIs(t, err, ErrSinkDelivery)
	assert.Equal(t, 1, report.Failed)

	sink.setErr(nil)

	report, err = e.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReplayReport{Delivered: 1}, report)
	assert.Len(t, sink.records(), 1)
	assert.Equal(t, StateDispatched, e.State("f1:high"))

	pending, _ = e.Pending()
	assert.Empty(t, pending)

	d, err = e.Evaluate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, d.Reason)
}

func TestEvaluate_RetryAfterFailureDispatches(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("down")}
	e := newTestEngine(sink, store.NewMemoryHistory())
	a := classified("r1", models.TierMedia, models.SeverityMedium, 5)

	_, err := e.Evaluate(ctx, a)
	require.Error(t, err)

	sink.setErr(nil)

	d, err := e.Evaluate(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, StateDispatched, d.State)

	// The stale pending copy is skipped on replay, not sent twice.
	report, err := e.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReplayReport{Skipped: 1}, report)
	assert.Len(t, sink.records(), 1)
}

func TestEvaluate_HistoryErrorWrapped(t *testing.T) {
	e := NewEngine(failingHistory{}, &recordingSink{})

	_, err := e.Evaluate(context.Background(), classified("h", models.TierMedia, models.SeverityHigh, 9))
	require.ErrorIs(t, err, ErrHistory)
}

func TestSendTest(t *testing.T) {
	sink := &recordingSink{}
	history := store.NewMemoryHistory()
	e := newTestEngine(sink, history)

	require.NoError(t, e.SendTest(context.Background()))

	sent := sink.records()
	require.Len(t, sent, 1)
	assert.Equal(t, ChannelTest, sent[0].Channel)
	assert.Contains(t, sent[0].Message, "TEST ALERT")

	size, _ := history.Size(context.Background())
	assert.Zero(t, size)
}

func TestOptionsFromConfig(t *testing.T) {
	e := NewEngine(store.NewMemoryHistory(), &recordingSink{}, OptionsFromConfig(config.AlertsConfig{
		MinSeverity:    "high",
		Channel:        "sms",
		DigestMaxItems: 5,
		DigestPreview:  2,
	})...)

	assert.Equal(t, models.SeverityHigh, e.minSeverity)
	assert.Equal(t, "sms", e.channel)
	assert.Equal(t, 5, e.digestMax)
	assert.Equal(t, 2, e.preview)
}

type failingHistory struct{}

var errBackend = errors.New("backend down")

func (failingHistory) Has(context.Context, string) (bool, error)     { return false, errBackend }
func (failingHistory) Reserve(context.Context, string) (bool, error) { return false, errBackend }
func (failingHistory) Record(context.Context, string) error          { return errBackend }
func (failingHistory) Release(context.Context, string) error         { return errBackend }
func (failingHistory) Size(context.Context) (int, error)             { return 0, errBackend }
