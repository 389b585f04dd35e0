package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateRegistry enforces a minimum interval between requests to the same
// source. Sources never block each other.
type RateRegistry struct {
	sources         map[string]*sourceRate
	now             func() time.Time
	mu              sync.RWMutex
	defaultInterval time.Duration
}

type sourceRate struct {
	last     time.Time
	limiter  *rate.Limiter
	mu       sync.Mutex
	interval time.Duration
}

// NewRateRegistry creates a registry applying defaultInterval to sources
// without their own setting.
func NewRateRegistry(defaultInterval time.Duration) *RateRegistry {
	return &RateRegistry{
		sources:         make(map[string]*sourceRate),
		now:             time.Now,
		defaultInterval: defaultInterval,
	}
}

// Set configures the interval of one source.
func (r *RateRegistry) Set(sourceID string, interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources[sourceID] = newSourceRate(interval)
}

// Wait blocks until the source may be requested again, then records the
// request time. Callers for the same source are serialized.
func (r *RateRegistry) Wait(ctx context.Context, sourceID string) error {
	s := r.get(sourceID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.last = r.now()

	return nil
}

// LastRequest returns when the source was last requested.
func (r *RateRegistry) LastRequest(sourceID string) (time.Time, bool) {
	r.mu.RLock()
	s, ok := r.sources[sourceID]
	r.mu.RUnlock()

	if !ok {
		return time.Time{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last, !s.last.IsZero()
}

// Interval returns the interval applied to a source.
func (r *RateRegistry) Interval(sourceID string) time.Duration {
	return r.get(sourceID).interval
}

func (r *RateRegistry) get(sourceID string) *sourceRate {
	r.mu.RLock()
	s, ok := r.sources[sourceID]
	r.mu.RUnlock()

	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after taking the write lock.
	if s, ok := r.sources[sourceID]; ok {
		return s
	}

	s = newSourceRate(r.defaultInterval)
	r.sources[sourceID] = s

	return s
}

func newSourceRate(interval time.Duration) *sourceRate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &sourceRate{
		limiter:  rate.NewLimiter(limit, 1),
		interval: interval,
	}
}
