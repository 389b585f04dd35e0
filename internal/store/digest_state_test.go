package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestState_RoundTrip(t *testing.T) {
	s := NewDigestState(filepath.Join(t.TempDir(), "state", DigestStateFile))

	since, err := s.Load()
	require.NoError(t, err)
	assert.True(t, since.IsZero(), "missing file means no digest yet")

	mark := time.Date(2024, 9, 2, 12, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	require.NoError(t, s.Save(mark))

	got, err := s.Load()
	require.NoError(t, err)
	assert.True(t, mark.Equal(got))
}
