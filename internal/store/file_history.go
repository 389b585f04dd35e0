package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type historyEntry struct {
	RecordedAt time.Time `json:"recordedAt"`
	Key        string    `json:"key"`
}

// FileHistory is a MemoryHistory backed by an append-only JSON lines file.
// Reservations live only in memory; recorded keys survive restarts.
type FileHistory struct {
	*MemoryHistory

	now  func() time.Time
	path string
	mu   sync.Mutex
}

// NewFileHistory opens the history at path, loading any recorded keys.
func NewFileHistory(path string) (*FileHistory, error) {
	h := &FileHistory{
		MemoryHistory: NewMemoryHistory(),
		path:          path,
		now:           time.Now,
	}

	keys, err := readHistory(path)
	if err != nil {
		return nil, err
	}

	h.load(keys)

	return h, nil
}

// Record marks key as dispatched and appends it to the file.
func (h *FileHistory) Record(ctx context.Context, key string) error {
	recorded, err := h.Has(ctx, key)
	if err != nil {
		return err
	}

	if recorded {
		return nil
	}

	if err := h.appendEntry(historyEntry{Key: key, RecordedAt: h.now().UTC()}); err != nil {
		return err
	}

	return h.MemoryHistory.Record(ctx, key)
}

func (h *FileHistory) appendEntry(e historyEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return appendJSONLine(h.path, e)
}

func readHistory(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: open history: %w", ErrStore, err)
	}
	defer f.Close()

	var keys []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e historyEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%w: history line %q: %w", ErrStore, line, err)
		}

		keys = append(keys, e.Key)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read history: %w", ErrStore, err)
	}

	return keys, nil
}

func appendJSONLine(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrStore, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrStore, err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrStore, path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStore, path, err)
	}

	return nil
}
