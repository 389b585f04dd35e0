package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cybernews/internal/models"
)

func TestFilePending_AddRemoveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.jsonl")

	p, err := NewFilePending(path)
	require.NoError(t, err)

	require.NoError(t, p.Add(models.AlertRecord{ID: "1", DedupKey: "a:high", Title: "first"}))
	require.NoError(t, p.Add(models.AlertRecord{ID: "2", DedupKey: "b:medium"}))
	require.NoError(t, p.Add(models.AlertRecord{ID: "3", DedupKey: "a:high", Title: "retried"}))

	list, err := p.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "retried", list[0].Title)

	require.NoError(t, p.Remove("2"))

	reopened, err := NewFilePending(path)
	require.NoError(t, err)

	list, err = reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "3", list[0].ID)
}

func TestMemoryPending_ListIsCopy(t *testing.T) {
	p := NewMemoryPending()
	require.NoError(t, p.Add(models.AlertRecord{ID: "1", DedupKey: "k"}))

	list, _ := p.List()
	list[0].ID = "changed"

	again, _ := p.List()
	assert.Equal(t, "1", again[0].ID)
}
