package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DigestStateFile is the default state file name, kept next to the article store.
const DigestStateFile = "digest_state.json"

type digestDocument struct {
	Since time.Time `json:"since"`
}

// DigestState persists the digest watermark: articles first fetched at or
// before it have been covered by a digest.
type DigestState struct {
	path string
}

// NewDigestState creates a state file at path.
func NewDigestState(path string) *DigestState {
	return &DigestState{path: path}
}

// Load returns the watermark, or the zero time when no digest was sent yet.
func (s *DigestState) Load() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, nil
	}

	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read digest state: %w", ErrStore, err)
	}

	var doc digestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, fmt.Errorf("%w: parse digest state: %w", ErrStore, err)
	}

	return doc.Since, nil
}

// Save replaces the watermark.
func (s *DigestState) Save(since time.Time) error {
	data, err := json.Marshal(digestDocument{Since: since.UTC()})
	if err != nil {
		return fmt.Errorf("%w: marshal digest state: %w", ErrStore, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrStore, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: write digest state: %w", ErrStore, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace digest state: %w", ErrStore, err)
	}

	return nil
}
