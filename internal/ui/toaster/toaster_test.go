package toaster

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestToaster_ShowAndHide(t *testing.T) {
	m := New()
	require.False(t, m.Visible())
	require.Empty(t, m.View())

	m = m.Show("settings saved", StyleSuccess)
	require.True(t, m.Visible())
	require.Contains(t, m.View(), "settings saved")

	m = m.Hide()
	require.False(t, m.Visible())
	require.Empty(t, m.Message())
}

func TestToaster_StylePrefixes(t *testing.T) {
	tests := []struct {
		style  Style
		prefix string
	}{
		{StyleSuccess, "✅"},
		{StyleError, "❌"},
		{StyleInfo, "ℹ️"},
		{StyleWarn, "⚠️"},
	}
	for _, tt := range tests {
		view := New().Show("msg", tt.style).View()
		require.Contains(t, view, tt.prefix)
	}
}

func TestToaster_OverlayPassthroughWhenHidden(t *testing.T) {
	bg := "line one\nline two"
	require.Equal(t, bg, New().Overlay(bg, 40, 10))
}

func TestToaster_OverlayEmbedsToast(t *testing.T) {
	bg := ""
	for i := 0; i < 10; i++ {
		bg += "..........\n"
	}
	out := New().Show("hello", StyleInfo).Overlay(bg, 40, 10)
	require.Contains(t, out, "hello")
}

func TestAutoDismiss_ProducesDismissMsg(t *testing.T) {
	cmd := AutoDismiss(time.Millisecond)
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, DismissMsg{}, msg)
}
