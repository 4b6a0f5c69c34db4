package draft

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type delays struct {
	EpisodeEnd int `json:"episode_end"`
	MovieEnd   int `json:"movie_end"`
}

func TestTracker_ZeroValueNeverDirty(t *testing.T) {
	var tr Tracker[delays]

	require.False(t, tr.Loaded())
	require.False(t, tr.HasUnsavedChanges(&delays{EpisodeEnd: 1}), "no baseline means not yet loaded, never dirty")
	require.False(t, tr.HasUnsavedChanges(nil))
	require.Nil(t, tr.DiscardChanges())
}

func TestTracker_DirtyAfterEdit(t *testing.T) {
	var tr Tracker[delays]
	tr.ResetOriginal(delays{EpisodeEnd: 600, MovieEnd: 1800})

	working := &delays{EpisodeEnd: 600, MovieEnd: 1800}
	require.False(t, tr.HasUnsavedChanges(working))

	working.EpisodeEnd = 900
	require.True(t, tr.HasUnsavedChanges(working))

	working.EpisodeEnd = 600
	require.False(t, tr.HasUnsavedChanges(working), "reverting the edit by hand makes the value clean again")
}

func TestTracker_BaselineIsIndependentCopy(t *testing.T) {
	var tr Tracker[delays]
	v := delays{EpisodeEnd: 600}
	tr.ResetOriginal(v)

	// Mutating the original after the snapshot must not affect the baseline.
	v.EpisodeEnd = 999
	require.True(t, tr.HasUnsavedChanges(&v))

	restored := tr.DiscardChanges()
	require.NotNil(t, restored)
	require.Equal(t, 600, restored.EpisodeEnd)

	// Mutating the restored copy must not corrupt the baseline either.
	restored.EpisodeEnd = 123
	again := tr.DiscardChanges()
	require.Equal(t, 600, again.EpisodeEnd)
}

func TestTracker_ResetAfterSave(t *testing.T) {
	var tr Tracker[delays]
	tr.ResetOriginal(delays{EpisodeEnd: 600})

	working := delays{EpisodeEnd: 900}
	require.True(t, tr.HasUnsavedChanges(&working))

	tr.ResetOriginal(working)
	require.False(t, tr.HasUnsavedChanges(&working), "a save promotes the working value to the new baseline")
}

func TestTracker_PropertyDiscardRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := delays{
			EpisodeEnd: rapid.IntRange(0, 100000).Draw(rt, "episodeEnd"),
			MovieEnd:   rapid.IntRange(0, 100000).Draw(rt, "movieEnd"),
		}

		var tr Tracker[delays]
		tr.ResetOriginal(base)

		// The baseline copy always compares clean against itself.
		restored := tr.DiscardChanges()
		if tr.HasUnsavedChanges(restored) {
			rt.Fatalf("baseline copy reported dirty: %+v", restored)
		}

		// Any structurally different value compares dirty.
		edited := *restored
		edited.EpisodeEnd++
		if !tr.HasUnsavedChanges(&edited) {
			rt.Fatalf("edited value reported clean: %+v", edited)
		}
	})
}
