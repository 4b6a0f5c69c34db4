package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sbrink/flowdash/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleAt(offset time.Duration, rx, tx int) api.Sample {
	return api.Sample{
		Timestamp: time.Now().Add(offset).Truncate(time.Second),
		RxKbps:    rx,
		TxKbps:    tx,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.RecordSamples(ctx, []api.Sample{
		sampleAt(-2*time.Minute, 100, 10),
		sampleAt(-1*time.Minute, 200, 20),
	})
	require.NoError(t, err)

	samples, err := store.Recent(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.True(t, samples[0].Timestamp.Before(samples[1].Timestamp), "samples come back in ascending order")
	require.Equal(t, 100, samples[0].RxKbps)
	require.Equal(t, 20, samples[1].TxKbps)
}

func TestStore_RecordEmptyIsNoop(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.RecordSamples(context.Background(), nil))
}

func TestStore_OverlappingWindowsUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	s := sampleAt(-time.Minute, 100, 10)
	require.NoError(t, store.RecordSamples(ctx, []api.Sample{s}))

	// Same timestamp re-recorded with fresher numbers wins, no duplicate row.
	s.RxKbps = 150
	require.NoError(t, store.RecordSamples(ctx, []api.Sample{s}))

	samples, err := store.Recent(ctx, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 150, samples[0].RxKbps)
}

func TestStore_RecentExcludesOldSamples(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordSamples(ctx, []api.Sample{
		sampleAt(-2*time.Hour, 1, 1),
		sampleAt(-1*time.Minute, 2, 2),
	}))

	samples, err := store.Recent(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 2, samples[0].RxKbps)
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordSamples(ctx, []api.Sample{
		sampleAt(-48*time.Hour, 1, 1),
		sampleAt(-36*time.Hour, 2, 2),
		sampleAt(-time.Minute, 3, 3),
	}))

	removed, err := store.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	samples, err := store.Recent(ctx, 72*time.Hour)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 3, samples[0].RxKbps)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordSamples(ctx, []api.Sample{sampleAt(-time.Minute, 42, 7)}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	samples, err := reopened.Recent(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, 42, samples[0].RxKbps)
}
