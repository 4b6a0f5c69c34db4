// Package unsavedprompt is the warning dialog shown when a navigation is
// blocked by unsaved changes. It offers the three resolutions of the
// coordination protocol: stay, save and proceed, or discard and proceed.
package unsavedprompt

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/sbrink/flowdash/internal/ui/overlay"
	"github.com/sbrink/flowdash/internal/ui/styles"
)

const boxWidth = 54

// Mode selects the dialog wording.
type Mode int

const (
	// ModeNavigate blocks a tab switch or route change.
	ModeNavigate Mode = iota
	// ModeQuit blocks quitting the application.
	ModeQuit
)

// Choice is the user's resolution.
type Choice int

const (
	ChoiceCancel Choice = iota
	ChoiceSave
	ChoiceDiscard
)

// ChoiceMsg is sent when the user picks a resolution.
type ChoiceMsg struct {
	Choice Choice
}

// Model holds the dialog state.
type Model struct {
	tabLabel string
	mode     Mode
	diff     string
	errText  string
	saving   bool
	selected int
	width    int
	height   int
}

// New creates a dialog for the given blocking tab label.
func New(tabLabel string, mode Mode) Model {
	return Model{
		tabLabel: tabLabel,
		mode:     mode,
	}
}

// SetSize sets the viewport dimensions for overlay rendering.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height
	return m
}

// WithDiff attaches a change preview computed from the serialized baseline
// and working values.
func (m Model) WithDiff(before, after string) Model {
	m.diff = renderDiff(before, after)
	return m
}

// SetSaving toggles the in-flight save state; choices are inert while true.
func (m Model) SetSaving(saving bool) Model {
	m.saving = saving
	return m
}

// SetError shows a save failure inside the dialog. The dialog stays open so
// the user can retry or cancel.
func (m Model) SetError(text string) Model {
	m.errText = text
	m.saving = false
	return m
}

// Saving reports whether a save is in flight.
func (m Model) Saving() bool {
	return m.saving
}

// TabLabel returns the blocking tab label the dialog was built for.
func (m Model) TabLabel() string {
	return m.tabLabel
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.saving {
		return m, nil
	}

	switch keyMsg.String() {
	case "left", "h", "shift+tab":
		m.selected = (m.selected + 2) % 3
	case "right", "l", "tab":
		m.selected = (m.selected + 1) % 3
	case "enter":
		choice := Choice(m.selected)
		return m, func() tea.Msg { return ChoiceMsg{Choice: choice} }
	case "esc":
		return m, func() tea.Msg { return ChoiceMsg{Choice: ChoiceCancel} }
	case "s":
		return m, func() tea.Msg { return ChoiceMsg{Choice: ChoiceSave} }
	case "d":
		return m, func() tea.Msg { return ChoiceMsg{Choice: ChoiceDiscard} }
	}
	return m, nil
}

// View renders the dialog box.
func (m Model) View() string {
	innerWidth := boxWidth - 4

	title := styles.TitleStyle.Render("Unsaved changes")

	var message string
	switch m.mode {
	case ModeQuit:
		message = "The " + m.tabLabel + " tab has unsaved changes. Quit anyway?"
	default:
		message = "The " + m.tabLabel + " tab has unsaved changes."
	}
	body := wordwrap.String(message, innerWidth)

	sections := []string{title, body}

	if m.diff != "" {
		sections = append(sections, styles.HelpStyle.Render(strings.Repeat("─", innerWidth)), m.diff)
	}
	if m.errText != "" {
		sections = append(sections, styles.ErrorStyle.Render(wordwrap.String("Save failed: "+m.errText, innerWidth)))
	}
	if m.saving {
		sections = append(sections, styles.HelpStyle.Render("Saving…"))
	} else {
		sections = append(sections, m.buttons())
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.WarningColor).
		Padding(0, 1).
		Width(boxWidth)

	return box.Render(strings.Join(sections, "\n"))
}

func (m Model) buttons() string {
	labels := []string{"Cancel", "Save & leave", "Discard & leave"}
	if m.mode == ModeQuit {
		labels = []string{"Cancel", "Save & quit", "Quit without saving"}
	}

	parts := make([]string, len(labels))
	for i, label := range labels {
		if i == m.selected {
			parts[i] = styles.ButtonStyle.Render(label)
		} else {
			parts[i] = styles.HelpStyle.Render(" " + label + " ")
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// Overlay renders the dialog on top of a background view.
func (m Model) Overlay(background string) string {
	if background == "" {
		return lipgloss.Place(
			m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			m.View(),
		)
	}

	return overlay.Place(overlay.Config{
		Width:    m.width,
		Height:   m.height,
		Position: overlay.Center,
	}, m.View(), background)
}

// renderDiff produces a compact colored inline diff between the serialized
// baseline and working values.
func renderDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(styles.ErrorStyle.Strikethrough(true).Render(d.Text))
		case diffmatchpatch.DiffInsert:
			b.WriteString(styles.SuccessStyle.Render(d.Text))
		default:
			b.WriteString(styles.HelpStyle.Render(d.Text))
		}
	}
	return wordwrap.String(b.String(), boxWidth-4)
}
