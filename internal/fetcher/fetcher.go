// Package fetcher retrieves source pages with retries, backoff, identity
// rotation and per-source rate limiting.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"cybernews/internal/config"
	"cybernews/internal/logger"
	"cybernews/internal/metrics"
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// Fetch errors.
var (
	// ErrTransientFetch wraps every network, timeout and status failure. It is
	// never fatal to the pipeline.
	ErrTransientFetch       = errors.New("transient fetch error")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrDisallowedByRobots   = errors.New("disallowed by robots.txt")
)

// Fetcher performs HTTP retrieval for the pipeline.
type Fetcher struct {
	client     *http.Client
	rates      *RateRegistry
	robots     *RobotsCache
	attempts   *AttemptLog
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	identities []config.Identity
	policy     config.FetchPolicy
	next       atomic.Uint64
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithRobots enables robots.txt checks through the given cache.
func WithRobots(r *RobotsCache) Option {
	return func(f *Fetcher) { f.robots = r }
}

// WithAttemptLog records every fetch into log.
func WithAttemptLog(log *AttemptLog) Option {
	return func(f *Fetcher) { f.attempts = log }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = fn }
}

// WithClock replaces the time source.
func WithClock(fn func() time.Time) Option {
	return func(f *Fetcher) { f.now = fn }
}

// New creates a fetcher for the policy. A nil registry disables rate limiting.
func New(policy config.FetchPolicy, rates *RateRegistry, opts ...Option) *Fetcher {
	if rates == nil {
		rates = NewRateRegistry(0)
	}

	identities := policy.IdentityPool
	if len(identities) == 0 {
		identities = config.DefaultIdentities()
	}

	f := &Fetcher{
		client:     &http.Client{},
		rates:      rates,
		log:        logger.Discard(),
		sleep:      sleepContext,
		now:        time.Now,
		identities: identities,
		policy:     policy,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch retrieves url for a source. It never returns an error: after the
// attempt budget is spent the result carries a nil Body and the last failure.
func (f *Fetcher) Fetch(ctx context.Context, sourceID, url string) models.RawFetchResult {
	start := time.Now()
	result := models.RawFetchResult{SourceID: sourceID, URL: url}

	defer func() {
		metrics.RecordFetch(sourceID, time.Since(start))

		if f.attempts != nil {
			f.attempts.Record(result, time.Since(start))
		}
	}()

	log := f.log.With("source", sourceID, "host", utils.Host(url), "url", url)

	if f.robots != nil && !f.robots.Allowed(ctx, url) {
		log.Warn("skipping url disallowed by robots.txt")
		metrics.RecordFetchAttempt(sourceID, "robots")

		result.Error = ErrDisallowedByRobots.Error()
		result.FetchedAt = f.now()

		return result
	}

	maxAttempts := max(f.policy.MaxAttempts, 1)
	first := f.next.Add(1) - 1

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := f.rates.Wait(ctx, sourceID); err != nil {
			lastErr = fmt.Errorf("%w: rate limiter: %w", ErrTransientFetch, err)

			break
		}

		result.AttemptCount = attempt + 1

		body, status, contentType, err := f.attempt(ctx, url, f.identity(first, attempt))
		result.HTTPStatus = status

		if err == nil {
			metrics.RecordFetchAttempt(sourceID, "ok")

			result.Body = body
			result.ContentType = contentType
			result.FetchedAt = f.now()

			log.Debug("fetched", "attempts", result.AttemptCount, "bytes", len(body))

			return result
		}

		metrics.RecordFetchAttempt(sourceID, "error")

		lastErr = err
		log.Warn("fetch attempt failed",
			"attempt", attempt+1,
			"max_attempts", maxAttempts,
			"status", status,
			"error", err)

		if attempt == maxAttempts-1 {
			break
		}

		if err := f.sleep(ctx, f.policy.BackoffDelay(attempt)); err != nil {
			lastErr = fmt.Errorf("%w: %w", ErrTransientFetch, err)

			break
		}
	}

	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	result.FetchedAt = f.now()
	log.Error("fetch failed", "attempts", result.AttemptCount, "error", result.Error)

	return result
}

// attempt performs one request bounded by the policy timeout.
func (f *Fetcher) attempt(ctx context.Context, url string, identity config.Identity) ([]byte, int, string, error) {
	if timeout := f.policy.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: failed to create request: %w", ErrTransientFetch, err)
	}

	req.Header = utils.BuildHeaders(identity.UserAgent, identity.Headers)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("%w: request failed: %w", ErrTransientFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		return nil, resp.StatusCode, "", fmt.Errorf("%w: %w: %d", ErrTransientFetch, ErrUnexpectedStatusCode, resp.StatusCode)
	}

	limit := int64(f.policy.MaxBodyKb) * 1024
	if limit <= 0 {
		limit = 4 << 20
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp.StatusCode, "", fmt.Errorf("%w: failed to read response body: %w", ErrTransientFetch, err)
	}

	if body == nil {
		body = []byte{}
	}

	return body, resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

// identity picks the client for an attempt. Each fetch starts at its own
// offset and advances one identity per attempt, so retries rotate even while
// other sources share the fetcher.
func (f *Fetcher) identity(first uint64, attempt int) config.Identity {
	return f.identities[(first+uint64(attempt))%uint64(len(f.identities))]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
