package sparkline

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestRender_Empty(t *testing.T) {
	require.Empty(t, Render(nil, 10))
	require.Empty(t, Render([]int{1, 2}, 0))
}

func TestRender_ScalesToMax(t *testing.T) {
	out := []rune(Render([]int{0, 100}, 10))
	require.Len(t, out, 2)
	require.Equal(t, '▁', out[0])
	require.Equal(t, '█', out[1])
}

func TestRender_AllZeroSeries(t *testing.T) {
	require.Equal(t, "▁▁▁", Render([]int{0, 0, 0}, 10))
}

func TestRender_NegativeClampedToFloor(t *testing.T) {
	out := []rune(Render([]int{-5, 10}, 10))
	require.Equal(t, '▁', out[0])
	require.Equal(t, '█', out[1])
}

func TestRender_KeepsNewestWhenTooLong(t *testing.T) {
	series := []int{1, 2, 3, 4, 5, 6}
	out := []rune(Render(series, 3))
	require.Len(t, out, 3)
	// Oldest half dropped: the max of the kept window is the last value.
	require.Equal(t, '█', out[2])
}

func TestLabeled_PadsShortLabels(t *testing.T) {
	out := Labeled("rx", []int{1}, 20, 4, lipgloss.NewStyle())
	require.Equal(t, "rx   ", out[:5], "label padded to width plus separator")
}

func TestLabeled_TruncatesLongLabels(t *testing.T) {
	out := Labeled("download", []int{1}, 20, 4, lipgloss.NewStyle())
	require.Contains(t, out, "…")
	require.NotContains(t, out, "download")
}
