// Package settings is the server-settings page: three independently loaded
// panels (general, playback, limits) whose drafts are guarded by the
// unsaved-changes coordinator.
package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/keys"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/ui/styles"
	"github.com/sbrink/flowdash/internal/ui/tabbar"
	"github.com/sbrink/flowdash/internal/unsaved"
)

// Panel tab IDs, registered with the coordinator in this order.
const (
	TabGeneral  unsaved.TabID = "general"
	TabPlayback unsaved.TabID = "playback"
	TabLimits   unsaved.TabID = "limits"
)

// ApplyPendingMsg asks the page to re-attempt the panel switch recorded in
// the coordinator's pending-tab slot. Sent by the shell after a warning
// resolution.
type ApplyPendingMsg struct{}

// SyncMsg asks the page to refresh its registrations and honor any pending
// focus request without other side effects.
type SyncMsg struct{}

// ApplyPending returns a command that emits ApplyPendingMsg.
func ApplyPending() tea.Cmd {
	return func() tea.Msg { return ApplyPendingMsg{} }
}

// Model is the settings page controller.
type Model struct {
	services mode.Services
	keys     keys.KeyMap
	tabs     tabbar.Model
	panels   []panel
	width    int
	height   int
}

// New creates the settings page with its three panels.
func New(services mode.Services) Model {
	client := services.API

	general := newFormPanel(
		TabGeneral, "General",
		[]field[api.GeneralSettings]{
			textField("Server name", func(v *api.GeneralSettings) *string { return &v.ServerName }),
			intField("API port", func(v *api.GeneralSettings) *int { return &v.APIPort }),
		},
		client.GeneralSettings,
		client.UpdateGeneralSettings,
	)

	playback := newFormPanel(
		TabPlayback, "Playback",
		[]field[api.PlaybackSettings]{
			intField("Episode end delay (s)", func(v *api.PlaybackSettings) *int { return &v.Delays.EpisodeEnd }),
			intField("Movie end delay (s)", func(v *api.PlaybackSettings) *int { return &v.Delays.MovieEnd }),
		},
		client.PlaybackSettings,
		client.UpdatePlaybackSettings,
	)

	limits := newFormPanel(
		TabLimits, "Limits",
		[]field[api.LimitSettings]{
			intField("Upload limit (kbps)", func(v *api.LimitSettings) *int { return &v.UploadKbps }),
			intField("Download limit (kbps)", func(v *api.LimitSettings) *int { return &v.DownloadKbps }),
			intField("Per-stream limit (kbps)", func(v *api.LimitSettings) *int { return &v.PerStreamKbps }),
		},
		client.LimitSettings,
		client.UpdateLimitSettings,
	)

	panels := []panel{general, playback, limits}

	m := Model{
		services: services,
		keys:     keys.DefaultKeyMap(),
		tabs:     tabbar.New("settings", nil),
		panels:   panels,
	}
	m.tabs = m.tabs.SetTabs(m.tabEntries())
	m.registerAll()
	return m
}

// textField binds a free-text field.
func textField[T any](label string, access func(*T) *string) field[T] {
	return field[T]{
		label: label,
		get:   func(v *T) string { return *access(v) },
		set: func(v *T, s string) error {
			*access(v) = s
			return nil
		},
	}
}

// intField binds a non-negative integer field.
func intField[T any](label string, access func(*T) *int) field[T] {
	return field[T]{
		label: label,
		get:   func(v *T) string { return strconv.Itoa(*access(v)) },
		set: func(v *T, s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return errors.New("not a number")
			}
			if n < 0 {
				return errors.New("must be ≥ 0")
			}
			*access(v) = n
			return nil
		},
	}
}

// Init loads all three sections concurrently.
func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.panels))
	for _, p := range m.panels {
		cmds = append(cmds, p.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles messages. Every pass ends by re-registering all panels
// with the coordinator so its callbacks and dirty flags never go stale.
func (m Model) Update(msg tea.Msg) (mode.Controller, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case panelLoadedMsg:
		for _, p := range m.panels {
			if p.ID() == msg.id {
				p.HandleLoaded(msg)
				break
			}
		}

	case ApplyPendingMsg:
		m = m.applyPending()

	case tea.MouseMsg:
		if i, ok := m.tabs.ClickedTab(msg); ok {
			m = m.requestSwitch(i)
		}

	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	}

	m = m.consumeFocusRequests()
	m.registerAll()
	m.tabs = m.tabs.SetTabs(m.tabEntries())
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	active := m.panels[m.tabs.Active()]

	if !active.Editing() {
		switch msg.String() {
		case "tab":
			return m.requestSwitch(m.tabs.Next()), nil
		case "shift+tab":
			return m.requestSwitch(m.tabs.Prev()), nil
		}
	}

	return m, active.HandleKey(msg)
}

// requestSwitch attempts a panel switch. Any dirty panel anywhere blocks
// the switch: the destination goes into the coordinator's pending-tab slot
// and the warning is raised instead.
func (m Model) requestSwitch(target int) Model {
	if target == m.tabs.Active() || target < 0 || target >= len(m.panels) {
		return m
	}

	if m.services.Unsaved.HasDirtyTabs() {
		m.services.Unsaved.SetPendingTabChange(m.panels[target].ID())
		m.services.Unsaved.TriggerWarning()
		return m
	}

	m.tabs = m.tabs.SetActive(target)
	return m
}

// applyPending re-attempts the panel switch recorded before the warning.
// If another panel is still dirty the attempt blocks again, with the same
// destination restored to the pending slot by requestSwitch.
func (m Model) applyPending() Model {
	id := m.services.Unsaved.PendingTabChange()
	if id == "" {
		return m
	}
	m.services.Unsaved.SetPendingTabChange("")

	if i, ok := m.tabs.IndexOf(string(id)); ok {
		m = m.requestSwitch(i)
	}
	return m
}

// consumeFocusRequests honors Focus callbacks invoked by the coordinator:
// the blocking panel becomes the active one so its save control is visible
// behind the warning dialog.
func (m Model) consumeFocusRequests() Model {
	for i, p := range m.panels {
		if p.TakeFocusRequest() {
			m.tabs = m.tabs.SetActive(i)
		}
	}
	return m
}

// registerAll upserts every panel's coordinator entry with fresh callbacks.
func (m Model) registerAll() {
	for _, p := range m.panels {
		p := p
		m.services.Unsaved.Register(unsaved.Tab{
			ID:      p.ID(),
			Dirty:   p.Dirty(),
			Focus:   p.FocusSave,
			Save:    func(ctx context.Context) error { return p.Save(ctx) },
			Discard: p.Discard,
		})
	}
}

func (m Model) tabEntries() []tabbar.Tab {
	tabs := make([]tabbar.Tab, 0, len(m.panels))
	for _, p := range m.panels {
		tabs = append(tabs, tabbar.Tab{
			ID:    string(p.ID()),
			Label: p.Label(),
			Dirty: p.Dirty(),
		})
	}
	return tabs
}

// Editing reports whether the active panel has a focused text input. The
// shell uses this to keep page hotkeys from swallowing typed characters.
func (m Model) Editing() bool {
	return m.panels[m.tabs.Active()].Editing()
}

// Preview returns the change preview for the given panel, for the
// unsaved-changes dialog.
func (m Model) Preview(id unsaved.TabID) (before, after string, ok bool) {
	for _, p := range m.panels {
		if p.ID() == id {
			return p.Preview()
		}
	}
	return "", "", false
}

// PanelLabel returns the display label for a panel ID.
func (m Model) PanelLabel(id unsaved.TabID) string {
	for _, p := range m.panels {
		if p.ID() == id {
			return p.Label()
		}
	}
	return string(id)
}

// SetSize handles terminal resize events.
func (m Model) SetSize(width, height int) mode.Controller {
	m.width = width
	m.height = height
	return m
}

// View renders the tab strip above the active panel.
func (m Model) View() string {
	body := m.panels[m.tabs.Active()].View(m.width - 4)

	boxWidth := m.width - 2
	if boxWidth < 20 {
		boxWidth = 20
	}
	box := styles.PanelBoxStyle.Width(boxWidth).Render(body)

	return m.tabs.View() + "\n" + box
}
