package unsavedprompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func choiceFrom(t *testing.T, cmd tea.Cmd) Choice {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ChoiceMsg)
	require.True(t, ok, "expected ChoiceMsg")
	return msg.Choice
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPrompt_DefaultChoiceIsCancel(t *testing.T) {
	m := New("Playback", ModeNavigate)
	_, cmd := m.Update(key("enter"))
	require.Equal(t, ChoiceCancel, choiceFrom(t, cmd))
}

func TestPrompt_SelectionCyclesWithArrows(t *testing.T) {
	m := New("Playback", ModeNavigate)

	m, _ = m.Update(key("right"))
	_, cmd := m.Update(key("enter"))
	require.Equal(t, ChoiceSave, choiceFrom(t, cmd))

	m, _ = m.Update(key("right"))
	_, cmd = m.Update(key("enter"))
	require.Equal(t, ChoiceDiscard, choiceFrom(t, cmd))

	// One more wraps back to cancel.
	m, _ = m.Update(key("right"))
	_, cmd = m.Update(key("enter"))
	require.Equal(t, ChoiceCancel, choiceFrom(t, cmd))
}

func TestPrompt_Shortcuts(t *testing.T) {
	m := New("Limits", ModeNavigate)

	_, cmd := m.Update(key("s"))
	require.Equal(t, ChoiceSave, choiceFrom(t, cmd))

	_, cmd = m.Update(key("d"))
	require.Equal(t, ChoiceDiscard, choiceFrom(t, cmd))

	_, cmd = m.Update(key("esc"))
	require.Equal(t, ChoiceCancel, choiceFrom(t, cmd))
}

func TestPrompt_SavingDisablesInput(t *testing.T) {
	m := New("Playback", ModeNavigate).SetSaving(true)

	_, cmd := m.Update(key("enter"))
	require.Nil(t, cmd, "choices are inert while a save is in flight")
	require.Contains(t, m.View(), "Saving…")
}

func TestPrompt_ErrorKeepsDialogInteractive(t *testing.T) {
	m := New("Playback", ModeNavigate).SetSaving(true)
	m = m.SetError("server returned 500")

	require.False(t, m.Saving())
	require.Contains(t, m.View(), "Save failed: server returned 500")

	_, cmd := m.Update(key("s"))
	require.Equal(t, ChoiceSave, choiceFrom(t, cmd), "retry must be possible after a failure")
}

func TestPrompt_QuitModeWording(t *testing.T) {
	view := New("General", ModeQuit).View()
	require.Contains(t, view, "Quit anyway?")
	require.Contains(t, view, "Quit without saving")
}

func TestPrompt_NavigateModeWording(t *testing.T) {
	view := New("General", ModeNavigate).View()
	require.Contains(t, view, "General tab has unsaved changes")
	require.Contains(t, view, "Save & leave")
	require.Contains(t, view, "Discard & leave")
}

func TestPrompt_DiffPreviewShowsBothSides(t *testing.T) {
	m := New("Playback", ModeNavigate).WithDiff(
		`{"episode_end": 600}`,
		`{"episode_end": 900}`,
	)

	view := m.View()
	require.Contains(t, view, "6", "deleted side appears in the preview")
	require.Contains(t, view, "9", "inserted side appears in the preview")
}
