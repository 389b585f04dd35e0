package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cybernews/internal/models"
)

// PendingStore keeps alerts whose delivery failed until they are replayed.
type PendingStore interface {
	Add(rec models.AlertRecord) error
	Remove(id string) error
	List() ([]models.AlertRecord, error)
}

// MemoryPending is an in-process PendingStore.
type MemoryPending struct {
	records []models.AlertRecord
	mu      sync.Mutex
}

// NewMemoryPending creates an empty pending list.
func NewMemoryPending() *MemoryPending {
	return &MemoryPending{}
}

// Add appends rec, replacing an earlier record with the same dedup key.
func (p *MemoryPending) Add(rec models.AlertRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, r := range p.records {
		if r.DedupKey == rec.DedupKey {
			p.records[i] = rec

			return nil
		}
	}

	p.records = append(p.records, rec)

	return nil
}

// Remove deletes the record with id.
func (p *MemoryPending) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, r := range p.records {
		if r.ID == id {
			p.records = append(p.records[:i], p.records[i+1:]...)

			return nil
		}
	}

	return nil
}

// List returns a copy of the pending records in insertion order.
func (p *MemoryPending) List() ([]models.AlertRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.AlertRecord, len(p.records))
	copy(out, p.records)

	return out, nil
}

// FilePending persists the pending list as JSON lines, rewriting the file on
// every change so that removed records do not come back after a restart.
type FilePending struct {
	mem  *MemoryPending
	path string
	mu   sync.Mutex
}

// NewFilePending opens the pending list at path.
func NewFilePending(path string) (*FilePending, error) {
	p := &FilePending{mem: NewMemoryPending(), path: path}

	records, err := readPending(path)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		_ = p.mem.Add(r)
	}

	return p, nil
}

// Add stores rec and rewrites the file.
func (p *FilePending) Add(rec models.AlertRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.mem.Add(rec)

	return p.flush()
}

// Remove deletes the record with id and rewrites the file.
func (p *FilePending) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.mem.Remove(id)

	return p.flush()
}

// List returns the pending records.
func (p *FilePending) List() ([]models.AlertRecord, error) {
	return p.mem.List()
}

func (p *FilePending) flush() error {
	records, _ := p.mem.List()

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("%w: create directory: %w", ErrStore, err)
	}

	tmp := p.path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStore, tmp, err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			f.Close()

			return fmt.Errorf("%w: encode pending: %w", ErrStore, err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()

		return fmt.Errorf("%w: write pending: %w", ErrStore, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close pending: %w", ErrStore, err)
	}

	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("%w: replace pending: %w", ErrStore, err)
	}

	return nil
}

func readPending(path string) ([]models.AlertRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: open pending: %w", ErrStore, err)
	}
	defer f.Close()

	var records []models.AlertRecord

	dec := json.NewDecoder(f)
	for dec.More() {
		var r models.AlertRecord
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("%w: decode pending: %w", ErrStore, err)
		}

		records = append(records, r)
	}

	return records, nil
}
