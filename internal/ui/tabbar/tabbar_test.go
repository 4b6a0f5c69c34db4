package tabbar

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	zone.NewGlobal()
	m.Run()
}

func testTabs() []Tab {
	return []Tab{
		{ID: "general", Label: "General"},
		{ID: "playback", Label: "Playback"},
		{ID: "limits", Label: "Limits"},
	}
}

func TestModel_ActiveNavigation(t *testing.T) {
	m := New("test", testTabs())

	require.Equal(t, 0, m.Active())
	require.Equal(t, "general", m.ActiveID())

	require.Equal(t, 1, m.Next())
	require.Equal(t, 2, m.Prev(), "prev from the first tab wraps to the last")

	m = m.SetActive(2)
	require.Equal(t, 0, m.Next(), "next from the last tab wraps to the first")
}

func TestModel_SetActiveIgnoresOutOfRange(t *testing.T) {
	m := New("test", testTabs()).SetActive(1)
	m = m.SetActive(99)
	require.Equal(t, 1, m.Active())
	m = m.SetActive(-1)
	require.Equal(t, 1, m.Active())
}

func TestModel_SetTabsClampsActive(t *testing.T) {
	m := New("test", testTabs()).SetActive(2)
	m = m.SetTabs(testTabs()[:1])
	require.Equal(t, 0, m.Active())
}

func TestModel_IndexOf(t *testing.T) {
	m := New("test", testTabs())

	i, ok := m.IndexOf("playback")
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = m.IndexOf("missing")
	require.False(t, ok)
}

func TestView_ShowsDirtyMarker(t *testing.T) {
	tabs := testTabs()
	tabs[1].Dirty = true
	m := New("test", tabs)

	view := m.View()
	require.Contains(t, view, "Playback ●")
	require.NotContains(t, view, "General ●")
}

func TestView_EmptyStrip(t *testing.T) {
	require.Empty(t, New("test", nil).View())
}

func TestTruncateLabel_GraphemeAware(t *testing.T) {
	require.Equal(t, "short", truncateLabel("short", 10))

	out := truncateLabel("a very long tab label indeed", 10)
	require.LessOrEqual(t, len([]rune(out)), 10)
	require.Equal(t, "…", string([]rune(out)[len([]rune(out))-1:]))

	// Wide runes never get cut in half.
	wide := truncateLabel("日本語のラベル", 6)
	require.Contains(t, wide, "…")
}
