// Package app wires the long-lived collaborators shared by the commands.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cybernews/internal/alert"
	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/models"
	"cybernews/internal/notify"
	"cybernews/internal/store"
)

// ErrNoArticleStore is returned when a digest of saved articles is requested
// without storage.articles_path.
var ErrNoArticleStore = fmt.Errorf("%w: storage.articles_path is required for saved digests", config.ErrConfiguration)

// App holds the configured stores, sink and alert engine.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	History store.History
	Pending store.PendingStore
	Sink    notify.Sink
	Engine  *alert.Engine
	Digests *store.DigestState
}

// Open loads the configuration at path and builds every collaborator.
func Open(ctx context.Context, path string) (*App, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return FromConfig(ctx, cfg, logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
}

// FromConfig builds the collaborators from an already loaded config.
func FromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	history, err := store.OpenHistory(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open alert history: %w", err)
	}

	pending, err := store.OpenPending(cfg.Storage)
	if err != nil {
		closeHistory(history)

		return nil, fmt.Errorf("failed to open pending alerts: %w", err)
	}

	sink, err := notify.FromConfig(cfg.Sinks, log)
	if err != nil {
		closeHistory(history)

		return nil, err
	}

	opts := append(alert.OptionsFromConfig(cfg.Alerts), alert.WithLogger(log), alert.WithPending(pending))

	digests := store.OpenDigestState(cfg.Storage)
	if digests != nil {
		since, err := digests.Load()
		if err != nil {
			closeHistory(history)

			return nil, fmt.Errorf("failed to read digest state: %w", err)
		}

		opts = append(opts, alert.WithDigestSince(since))
	}

	return &App{
		Config:  cfg,
		Log:     log,
		History: history,
		Pending: pending,
		Sink:    sink,
		Engine:  alert.NewEngine(history, sink, opts...),
		Digests: digests,
	}, nil
}

// Digest sends a digest of what the engine buffered and advances the
// persisted watermark when something was sent.
func (a *App) Digest(ctx context.Context) (models.Digest, error) {
	d, err := a.Engine.Digest(ctx)
	if err != nil || len(d.Items) == 0 {
		return d, err
	}

	a.saveWatermark(d.GeneratedAt)

	return d, nil
}

// DigestSaved digests the saved medium and high articles first fetched
// after the previous digest. With preview set nothing is sent or persisted.
func (a *App) DigestSaved(ctx context.Context, preview bool) (models.Digest, error) {
	if a.Config.Storage.ArticlesPath == "" {
		return models.Digest{}, ErrNoArticleStore
	}

	articles, err := store.NewArticleStore(a.Config.Storage.ArticlesPath).Load()
	if err != nil {
		return models.Digest{}, err
	}

	since := a.Engine.LastDigest()
	covered := since

	for _, art := range articles {
		if !art.FetchedAt.After(since) {
			continue
		}

		a.Engine.Track(art)

		if art.FetchedAt.After(covered) {
			covered = art.FetchedAt
		}
	}

	if preview {
		return a.Engine.BuildDigest(ctx), nil
	}

	d, err := a.Engine.Digest(ctx)
	if err != nil {
		return d, err
	}

	if covered.After(since) {
		a.saveWatermark(covered)
	}

	return d, nil
}

func (a *App) saveWatermark(t time.Time) {
	if a.Digests == nil {
		return
	}

	if err := a.Digests.Save(t); err != nil {
		a.Log.Error("Failed to persist digest watermark", "error", err)
	}
}

// Close releases the history backend.
func (a *App) Close() {
	closeHistory(a.History)
}

func closeHistory(h store.History) {
	if c, ok := h.(io.Closer); ok {
		_ = c.Close()
	}
}
