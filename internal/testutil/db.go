package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbrink/flowdash/internal/stats"
)

// NewStatsStore opens a stats store in a per-test temp directory. Closed
// automatically when the test ends.
func NewStatsStore(t *testing.T) *stats.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stats.db")
	store, err := stats.Open(path)
	require.NoError(t, err, "opening temp stats store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}
