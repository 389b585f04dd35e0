// Package store persists alert history, pending alerts and classified
// articles between runs.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrStore wraps persistence failures.
var ErrStore = errors.New("store error")

// History remembers which dedup keys have been dispatched.
//
// Reserve claims a key before delivery so that concurrent evaluations of the
// same key dispatch at most once. A reserved key is either made permanent
// with Record or handed back with Release when delivery fails.
type History interface {
	Has(ctx context.Context, key string) (bool, error)
	Reserve(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
	Size(ctx context.Context) (int, error)
}

type keyState int

const (
	stateReserved keyState = iota + 1
	stateRecorded
)

// MemoryHistory keeps history in process memory.
type MemoryHistory struct {
	keys map[string]keyState
	mu   sync.Mutex
}

// NewMemoryHistory creates an empty in-memory history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{keys: make(map[string]keyState)}
}

// Has reports whether key was recorded.
func (h *MemoryHistory) Has(_ context.Context, key string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.keys[key] == stateRecorded, nil
}

// Reserve claims key if it is neither reserved nor recorded.
func (h *MemoryHistory) Reserve(_ context.Context, key string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.keys[key]; ok {
		return false, nil
	}

	h.keys[key] = stateReserved

	return true, nil
}

// Record marks key as dispatched.
func (h *MemoryHistory) Record(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.keys[key] = stateRecorded

	return nil
}

// Release drops a reservation. Recorded keys are kept.
func (h *MemoryHistory) Release(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.keys[key] == stateReserved {
		delete(h.keys, key)
	}

	return nil
}

// Size returns the number of recorded keys.
func (h *MemoryHistory) Size(_ context.Context) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0

	for _, st := range h.keys {
		if st == stateRecorded {
			n++
		}
	}

	return n, nil
}

func (h *MemoryHistory) load(keys []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, k := range keys {
		h.keys[k] = stateRecorded
	}
}
