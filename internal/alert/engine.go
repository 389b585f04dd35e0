// Package alert decides which classified articles become notifications.
//
// Every article is tracked by its dedup key (article id plus severity tier)
// through the states unseen, evaluated, suppressed and dispatched. A key is
// dispatched at most once: it is reserved in the history before delivery,
// recorded after a successful send and released again when the sink fails,
// leaving the record pending for replay.
package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"cybernews/internal/config"
	"cybernews/internal/formatter"
	"cybernews/internal/logger"
	"cybernews/internal/metrics"
	"cybernews/internal/models"
	"cybernews/internal/notify"
	"cybernews/internal/store"
	"cybernews/pkg/fingerprint"
)

var (
	// ErrSinkDelivery is returned when the notification sink failed. The
	// record stays pending and its dedup key stays unrecorded.
	ErrSinkDelivery = errors.New("sink delivery failed")
	// ErrHistory is returned when the alert history could not be consulted.
	ErrHistory = errors.New("alert history unavailable")
)

// State is the lifecycle position of a dedup key.
type State string

// Alert states.
const (
	StateUnseen     State = "unseen"
	StateEvaluated  State = "evaluated"
	StateSuppressed State = "suppressed"
	StateDispatched State = "dispatched"
)

// Suppression reasons.
const (
	ReasonBelowThreshold = "below threshold"
	ReasonDuplicate      = "already dispatched"
)

// Channel names.
const (
	ChannelDigest = "digest"
	ChannelTest   = "test"
)

// Decision is the outcome of evaluating one article.
type Decision struct {
	Record   *models.AlertRecord
	State    State
	DedupKey string
	Reason   string
}

type buffered struct {
	article  models.ClassifiedArticle
	key      string
	notified bool
}

// Engine evaluates classified articles against the alert history.
type Engine struct {
	history     store.History
	pending     store.PendingStore
	sink        notify.Sink
	log         *logger.Logger
	now         func() time.Time
	newID       func() string
	states      map[string]State
	buffer      map[string]*buffered
	lastDigest  time.Time
	minSeverity models.Severity
	channel     string
	digestMax   int
	preview     int
	mu          sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPending sets where failed records are kept.
func WithPending(p store.PendingStore) Option {
	return func(e *Engine) { e.pending = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the record id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithMinSeverity sets the lowest severity that is dispatched.
func WithMinSeverity(s models.Severity) Option {
	return func(e *Engine) { e.minSeverity = s }
}

// WithChannel names the channel of individual alerts.
func WithChannel(channel string) Option {
	return func(e *Engine) { e.channel = channel }
}

// WithDigestLimits caps digest size and the number of items spelled out in
// the digest message.
func WithDigestLimits(maxItems, preview int) Option {
	return func(e *Engine) {
		e.digestMax = maxItems
		e.preview = preview
	}
}

// WithDigestSince resumes digesting from a previously persisted watermark.
func WithDigestSince(t time.Time) Option {
	return func(e *Engine) { e.lastDigest = t }
}

// OptionsFromConfig translates the alerts config section.
func OptionsFromConfig(cfg config.AlertsConfig) []Option {
	opts := []Option{WithDigestLimits(cfg.DigestMaxItems, cfg.DigestPreview)}

	if sev, err := models.ParseSeverity(cfg.MinSeverity); err == nil && sev != models.SeverityNone {
		opts = append(opts, WithMinSeverity(sev))
	}

	if cfg.Channel != "" {
		opts = append(opts, WithChannel(cfg.Channel))
	}

	return opts
}

// NewEngine creates an engine dispatching through sink.
func NewEngine(history store.History, sink notify.Sink, opts ...Option) *Engine {
	e := &Engine{
		history:     history,
		sink:        sink,
		pending:     store.NewMemoryPending(),
		log:         logger.Discard(),
		now:         time.Now,
		newID:       uuid.NewString,
		states:      make(map[string]State),
		buffer:      make(map[string]*buffered),
		minSeverity: models.SeverityMedium,
		channel:     "alert",
		preview:     formatter.DefaultPreview,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// State returns the state of a dedup key.
func (e *Engine) State(key string) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.states[key]; ok {
		return st
	}

	return StateUnseen
}

// setState moves key to st. Dispatched is terminal.
func (e *Engine) setState(key string, st State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.states[key] == StateDispatched {
		return
	}

	e.states[key] = st
}

// Evaluate decides whether a classified article is dispatched. A sink
// failure returns ErrSinkDelivery with the decision left in the evaluated
// state; the record is kept pending.
func (e *Engine) Evaluate(ctx context.Context, a models.ClassifiedArticle) (Decision, error) {
	key := fingerprint.DedupKey(a.ID, string(a.Severity))
	log := e.log.With("article_id", a.ID, "dedup_key", key)

	e.setState(key, StateEvaluated)
	e.Track(a)

	d := Decision{DedupKey: key, State: StateEvaluated}

	if a.Severity == models.SeverityNone || !a.Severity.AtLeast(e.minSeverity) {
		return e.suppress(d, ReasonBelowThreshold, log), nil
	}

	reserved, err := e.history.Reserve(ctx, key)
	if err != nil {
		return d, fmt.Errorf("%w: reserve %s: %w", ErrHistory, key, err)
	}

	if !reserved {
		return e.suppress(d, ReasonDuplicate, log), nil
	}

	rec := e.newRecord(a, key)
	d.Record = &rec

	if err := e.sink.Send(ctx, rec); err != nil {
		e.fail(ctx, &rec, err, log)

		return d, fmt.Errorf("%w: %s: %w", ErrSinkDelivery, key, err)
	}

	if err := e.history.Record(ctx, key); err != nil {
		log.Error("Failed to record dispatched alert", "error", err)
	}

	e.markNotified(a.ID, key)
	e.setState(key, StateDispatched)
	metrics.RecordAlert("dispatched")
	log.Info("Alert dispatched", "severity", a.Severity, "score", a.SeverityScore, "title", a.Title)

	d.State = StateDispatched

	return d, nil
}

func (e *Engine) suppress(d Decision, reason string, log *logger.Logger) Decision {
	e.setState(d.DedupKey, StateSuppressed)
	metrics.RecordAlert("suppressed")
	log.Debug("Alert suppressed", "reason", reason)

	d.State = StateSuppressed
	d.Reason = reason

	return d
}

// fail releases the reservation and parks the record for replay.
func (e *Engine) fail(ctx context.Context, rec *models.AlertRecord, sendErr error, log *logger.Logger) {
	rec.LastError = sendErr.Error()

	if err := e.history.Release(ctx, rec.DedupKey); err != nil {
		log.Error("Failed to release reservation", "error", err)
	}

	if err := e.pending.Add(*rec); err != nil {
		log.Error("Failed to keep pending alert", "error", err, "record", rec.ID)
	}

	metrics.RecordAlert("failed")
	e.updatePendingGauge()
	log.Warn("Alert delivery failed, kept for replay", "record", rec.ID, "error", sendErr)
}

func (e *Engine) newRecord(a models.ClassifiedArticle, key string) models.AlertRecord {
	published := ""
	if a.PublishedAt != nil {
		published = a.PublishedAt.Format(time.RFC3339)
	}

	return models.AlertRecord{
		ID:            e.newID(),
		ArticleID:     a.ID,
		DedupKey:      key,
		Channel:       e.channel,
		Severity:      a.Severity,
		SourceName:    a.SourceName,
		Title:         a.Title,
		URL:           a.URL,
		Published:     published,
		SeverityScore: a.SeverityScore,
		Message:       formatter.AlertMessage(a),
		DispatchedAt:  e.now().UTC(),
	}
}

// Pending lists records whose delivery failed.
func (e *Engine) Pending() ([]models.AlertRecord, error) {
	return e.pending.List()
}

// ReplayReport summarizes a replay.
type ReplayReport struct {
	Delivered int
	Skipped   int
	Failed    int
}

// Replay re-sends pending records. Records whose key was dispatched in the
// meantime are dropped without sending.
func (e *Engine) Replay(ctx context.Context) (ReplayReport, error) {
	var report ReplayReport

	records, err := e.pending.List()
	if err != nil {
		return report, err
	}

	var errs []error

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := e.log.With("record", rec.ID, "dedup_key", rec.DedupKey)

		reserved, err := e.history.Reserve(ctx, rec.DedupKey)
		if err != nil {
			return report, fmt.Errorf("%w: reserve %s: %w", ErrHistory, rec.DedupKey, err)
		}

		if !reserved {
			report.Skipped++

			if err := e.pending.Remove(rec.ID); err != nil {
				log.Error("Failed to drop pending alert", "error", err)
			}

			continue
		}

		rec.DispatchedAt = e.now().UTC()

		if err := e.sink.Send(ctx, rec); err != nil {
			report.Failed++

			e.fail(ctx, &rec, err, log)
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrSinkDelivery, rec.DedupKey, err))

			continue
		}

		if err := e.history.Record(ctx, rec.DedupKey); err != nil {
			log.Error("Failed to record replayed alert", "error", err)
		}

		if err := e.pending.Remove(rec.ID); err != nil {
			log.Error("Failed to drop pending alert", "error", err)
		}

		e.setState(rec.DedupKey, StateDispatched)
		metrics.RecordAlert("replayed")
		log.Info("Pending alert replayed")

		report.Delivered++
	}

	e.updatePendingGauge()

	return report, errors.Join(errs...)
}

// SendTest sends a fixed test message through the sink. It bypasses history.
func (e *Engine) SendTest(ctx context.Context) error {
	rec := models.AlertRecord{
		ID:           e.newID(),
		Channel:      ChannelTest,
		Title:        "Test alert",
		Message:      formatter.TestMessage,
		DispatchedAt: e.now().UTC(),
	}

	if err := e.sink.Send(ctx, rec); err != nil {
		return fmt.Errorf("%w: test: %w", ErrSinkDelivery, err)
	}

	return nil
}

func (e *Engine) updatePendingGauge() {
	if records, err := e.pending.List(); err == nil {
		metrics.SetPending(len(records))
	}
}
