// Package app contains the root application model: page routing, the
// unsaved-changes warning flow, the quit guard, and global overlays.
package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/sbrink/flowdash/internal/config"
	"github.com/sbrink/flowdash/internal/keys"
	"github.com/sbrink/flowdash/internal/log"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/mode/bandwidth"
	"github.com/sbrink/flowdash/internal/mode/settings"
	"github.com/sbrink/flowdash/internal/mode/streams"
	"github.com/sbrink/flowdash/internal/pubsub"
	"github.com/sbrink/flowdash/internal/ui/markdown"
	"github.com/sbrink/flowdash/internal/ui/styles"
	"github.com/sbrink/flowdash/internal/ui/toaster"
	"github.com/sbrink/flowdash/internal/ui/unsavedprompt"
	"github.com/sbrink/flowdash/internal/watcher"
)

const (
	toastDuration = 3 * time.Second
	saveTimeout   = 15 * time.Second
	helpMarkdown  = "# flowdash\n\n" +
		"| Key | Action |\n|-----|--------|\n" +
		"| 1 / 2 / 3 | settings · streams · bandwidth |\n" +
		"| tab / shift+tab | switch settings panel |\n" +
		"| e / enter | edit field |\n" +
		"| ctrl+s | save panel |\n" +
		"| r | refresh page |\n" +
		"| T | cycle theme |\n" +
		"| ? | toggle help |\n" +
		"| q | quit |\n"
)

// saveResolvedMsg reports the outcome of a warning-dialog save.
type saveResolvedMsg struct {
	err error
}

// configChangedMsg is emitted after a config file reload.
type configChangedMsg struct {
	cfg config.Config
	err error
}

// Config holds the application construction options.
type Config struct {
	Services mode.Services
	// ReloadConfig re-reads the config file; used when the watcher reports
	// a change. Optional.
	ReloadConfig func() (config.Config, error)
}

// Model is the root application state.
type Model struct {
	route     mode.Route
	settings  settings.Model
	streams   streams.Model
	bandwidth bandwidth.Model

	// Pages other than settings start lazily on first visit.
	streamsStarted   bool
	bandwidthStarted bool

	services     mode.Services
	keys         keys.KeyMap
	reloadConfig func() (config.Config, error)

	width  int
	height int

	toaster toaster.Model

	prompt        unsavedprompt.Model
	promptOpen    bool
	quitRequested bool

	helpVisible bool

	// Navigation bridge plumbing.
	navBroker   *pubsub.Broker[string]
	navCtx      context.Context
	navCancel   context.CancelFunc
	navListener *pubsub.ContinuousListener[string]

	// Config file watcher.
	watcherHandle   *watcher.Watcher
	watcherCtx      context.Context
	watcherCancel   context.CancelFunc
	watcherListener *pubsub.ContinuousListener[watcher.Event]
}

// New creates the application model and installs the navigation bridge.
func New(cfg Config) Model {
	services := cfg.Services

	navBroker := pubsub.NewBroker[string]()
	navCtx, navCancel := context.WithCancel(context.Background())
	navListener := pubsub.NewContinuousListener(navCtx, navBroker)

	// The bridge: the coordinator publishes the blocked route here after a
	// successful save; the update loop receives it on a later pass.
	services.Unsaved.SetNavigate(func(route string) {
		navBroker.Publish(pubsub.UpdatedEvent, route)
	})

	var (
		watcherHandle   *watcher.Watcher
		watcherCtx      context.Context
		watcherCancel   context.CancelFunc
		watcherListener *pubsub.ContinuousListener[watcher.Event]
	)
	if services.ConfigPath != "" {
		w, err := watcher.New(watcher.DefaultConfig(services.ConfigPath))
		if err == nil {
			if err := w.Start(); err == nil {
				watcherHandle = w
				watcherCtx, watcherCancel = context.WithCancel(context.Background())
				watcherListener = pubsub.NewContinuousListener(watcherCtx, w.Broker())
			} else {
				_ = w.Stop()
			}
		}
		// The app works fine without config hot-reload.
	}

	return Model{
		route:           mode.RouteSettings,
		settings:        settings.New(services),
		streams:         streams.New(services),
		bandwidth:       bandwidth.New(services),
		services:        services,
		keys:            keys.DefaultKeyMap(),
		reloadConfig:    cfg.ReloadConfig,
		toaster:         toaster.New(),
		navBroker:       navBroker,
		navCtx:          navCtx,
		navCancel:       navCancel,
		navListener:     navListener,
		watcherHandle:   watcherHandle,
		watcherCtx:      watcherCtx,
		watcherCancel:   watcherCancel,
		watcherListener: watcherListener,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.settings.Init(),
		m.navListener.Listen(),
	}
	if m.watcherListener != nil {
		cmds = append(cmds, m.watcherListener.Listen())
	}
	return tea.Batch(cmds...)
}

// Close releases the bridge and watcher resources. Called after the
// program exits.
func (m Model) Close() {
	m.services.Unsaved.SetNavigate(nil)
	m.navCancel()
	m.navBroker.Close()
	if m.watcherHandle != nil {
		m.watcherCancel()
		_ = m.watcherHandle.Stop()
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.settings = asSettings(m.settings.SetSize(msg.Width, msg.Height))
		m.streams = asStreams(m.streams.SetSize(msg.Width, msg.Height))
		m.bandwidth = asBandwidth(m.bandwidth.SetSize(msg.Width, msg.Height))
		m.toaster = m.toaster.SetSize(msg.Width, msg.Height)
		m.prompt = m.prompt.SetSize(msg.Width, msg.Height)
		return m, nil

	case pubsub.Event[string]:
		// Navigation bridge delivery.
		var cmd tea.Cmd
		m, cmd = m.performNavigate(mode.Route(msg.Payload))
		return m, tea.Batch(cmd, m.navListener.Listen())

	case pubsub.Event[watcher.Event]:
		log.Debug(log.CatWatcher, "config file changed", "path", msg.Payload.Path)
		return m, tea.Batch(m.reloadCmd(), m.watcherListener.Listen())

	case configChangedMsg:
		return m.handleConfigChanged(msg)

	case unsavedprompt.ChoiceMsg:
		return m.handlePromptChoice(msg)

	case saveResolvedMsg:
		return m.handleSaveResolved(msg)

	case settings.SavedMsg:
		var cmd tea.Cmd
		m, cmd = m.updateSettings(msg)
		if msg.Err != nil {
			m.toaster = m.toaster.Show("save failed: "+msg.Err.Error(), toaster.StyleError)
		} else {
			m.toaster = m.toaster.Show("settings saved", toaster.StyleSuccess)
		}
		return m, tea.Batch(cmd, toaster.AutoDismiss(toastDuration))

	case toaster.DismissMsg:
		m.toaster = m.toaster.Hide()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.promptOpen || m.helpVisible {
			return m, nil
		}
		return m.delegateToActive(msg)
	}

	// Everything else fans out to all pages: async results and refresh
	// ticks must reach their owner even when another page is showing.
	return m.delegateToAll(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.promptOpen {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	if m.helpVisible {
		m.helpVisible = false
		return m, nil
	}

	editing := m.route == mode.RouteSettings && m.settings.Editing()
	if !editing {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.requestQuit()
		case key.Matches(msg, m.keys.Help):
			m.helpVisible = true
			return m, nil
		case key.Matches(msg, m.keys.Theme):
			return m.cycleTheme()
		case key.Matches(msg, m.keys.Settings):
			return m.navigateTo(mode.RouteSettings)
		case key.Matches(msg, m.keys.Streams):
			return m.navigateTo(mode.RouteStreams)
		case key.Matches(msg, m.keys.Bandwidth):
			return m.navigateTo(mode.RouteBandwidth)
		}
	} else if msg.String() == "ctrl+c" {
		return m.requestQuit()
	}

	return m.delegateToActive(msg)
}

// requestQuit is the exit guard: dirty state at the moment the quit key
// arrives raises the warning instead of quitting.
func (m Model) requestQuit() (tea.Model, tea.Cmd) {
	if m.services.Unsaved.HasDirtyTabs() {
		m.quitRequested = true
		m.services.Unsaved.TriggerWarning()
		var cmd tea.Cmd
		m, cmd = m.syncPrompt()
		return m, cmd
	}
	m.Close()
	return m, tea.Quit
}

// navigateTo guards a route change behind the dirty check. A blocked
// destination goes into the coordinator's pending-navigation slot.
func (m Model) navigateTo(route mode.Route) (tea.Model, tea.Cmd) {
	if route == m.route {
		return m, nil
	}

	if m.services.Unsaved.HasDirtyTabs() {
		m.services.Unsaved.SetPendingNavigation(string(route))
		m.services.Unsaved.TriggerWarning()
		var cmd tea.Cmd
		m, cmd = m.syncPrompt()
		return m, cmd
	}

	return m.performNavigate(route)
}

// performNavigate switches pages unconditionally. Bridge deliveries land
// here directly: the save that triggered them already resolved the guard.
func (m Model) performNavigate(route mode.Route) (Model, tea.Cmd) {
	log.Info(log.CatNav, "navigating", "from", string(m.route), "to", string(route))
	m.route = route

	switch route {
	case mode.RouteStreams:
		if !m.streamsStarted {
			m.streamsStarted = true
			return m, m.streams.Init()
		}
	case mode.RouteBandwidth:
		if !m.bandwidthStarted {
			m.bandwidthStarted = true
			return m, m.bandwidth.Init()
		}
	}
	return m, nil
}

// syncPrompt opens the warning dialog when the coordinator has an
// unresolved warning and no dialog is showing yet.
func (m Model) syncPrompt() (Model, tea.Cmd) {
	if m.promptOpen || !m.services.Unsaved.WarningVisible() {
		return m, nil
	}

	// Let the settings page honor the blocking panel's focus request
	// before the dialog covers it.
	var cmd tea.Cmd
	m, cmd = m.updateSettings(settings.SyncMsg{})

	blocking, ok := m.services.Unsaved.CurrentDirtyTab()
	if !ok {
		// Warning with nothing to decide; resolve immediately.
		m.services.Unsaved.DismissWarning()
		return m, cmd
	}

	promptMode := unsavedprompt.ModeNavigate
	if m.quitRequested {
		promptMode = unsavedprompt.ModeQuit
	}
	m.prompt = unsavedprompt.New(m.settings.PanelLabel(blocking.ID), promptMode).
		SetSize(m.width, m.height)
	if before, after, ok := m.settings.Preview(blocking.ID); ok {
		m.prompt = m.prompt.WithDiff(before, after)
	}
	m.promptOpen = true
	return m, cmd
}

func (m Model) handlePromptChoice(msg unsavedprompt.ChoiceMsg) (tea.Model, tea.Cmd) {
	switch msg.Choice {
	case unsavedprompt.ChoiceSave:
		m.prompt = m.prompt.SetSaving(true)
		coord := m.services.Unsaved
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			defer cancel()
			return saveResolvedMsg{err: coord.SaveAndProceed(ctx)}
		}

	case unsavedprompt.ChoiceDiscard:
		m.services.Unsaved.DiscardAndProceed()
		m.promptOpen = false
		return m.resumePending()

	default: // ChoiceCancel
		m.services.Unsaved.DismissWarning()
		m.promptOpen = false
		m.quitRequested = false
		return m, nil
	}
}

func (m Model) handleSaveResolved(msg saveResolvedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Warning and pending slots are untouched; the dialog stays up for
		// retry or cancel.
		m.prompt = m.prompt.SetError(msg.err.Error())
		return m, nil
	}

	m.promptOpen = false
	m.toaster = m.toaster.Show("settings saved", toaster.StyleSuccess)

	// A pending route change was already handed to the bridge by the
	// coordinator; only the pending panel switch and a guarded quit are
	// left to resume.
	model, cmd := m.resumePending()
	return model, tea.Batch(cmd, toaster.AutoDismiss(toastDuration))
}

// resumePending re-attempts whatever action the warning interrupted.
func (m Model) resumePending() (tea.Model, tea.Cmd) {
	if m.quitRequested {
		m.quitRequested = false
		return m.requestQuit()
	}

	var cmds []tea.Cmd

	if route := m.services.Unsaved.PendingNavigation(); route != "" {
		m.services.Unsaved.SetPendingNavigation("")
		model, cmd := m.navigateTo(mode.Route(route))
		nm, ok := model.(Model)
		if !ok {
			return model, cmd
		}
		m = nm
		cmds = append(cmds, cmd)
	}

	if m.services.Unsaved.PendingTabChange() != "" {
		cmds = append(cmds, settings.ApplyPending())
	}

	return m, tea.Batch(cmds...)
}

func (m Model) cycleTheme() (tea.Model, tea.Cmd) {
	names := styles.PresetNames()
	current := m.services.Config.Theme.Preset
	next := names[0]
	for i, n := range names {
		if n == current {
			next = names[(i+1)%len(names)]
			break
		}
	}

	m.services.Config.Theme.Preset = next
	theme := styles.ThemeConfig{Preset: next, Colors: m.services.Config.Theme.Colors}
	if err := styles.ApplyTheme(theme); err != nil {
		m.toaster = m.toaster.Show("theme error: "+err.Error(), toaster.StyleError)
		return m, toaster.AutoDismiss(toastDuration)
	}

	if m.services.ConfigPath != "" {
		if err := config.SaveTheme(m.services.ConfigPath, m.services.Config.Theme); err != nil {
			log.ErrorErr(log.CatConfig, "persisting theme", err)
		}
	}

	m.toaster = m.toaster.Show("theme: "+next, toaster.StyleInfo)
	return m, toaster.AutoDismiss(toastDuration)
}

func (m Model) reloadCmd() tea.Cmd {
	reload := m.reloadConfig
	if reload == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, err := reload()
		return configChangedMsg{cfg: cfg, err: err}
	}
}

func (m Model) handleConfigChanged(msg configChangedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.ErrorErr(log.CatConfig, "reloading config", msg.err)
		m.toaster = m.toaster.Show("config reload failed: "+msg.err.Error(), toaster.StyleError)
		return m, toaster.AutoDismiss(toastDuration)
	}

	*m.services.Config = msg.cfg
	theme := styles.ThemeConfig{Preset: msg.cfg.Theme.Preset, Colors: msg.cfg.Theme.Colors}
	if err := styles.ApplyTheme(theme); err != nil {
		log.ErrorErr(log.CatConfig, "applying reloaded theme", err)
	}

	m.toaster = m.toaster.Show("configuration reloaded", toaster.StyleInfo)
	return m, toaster.AutoDismiss(toastDuration)
}

func (m Model) delegateToActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.route {
	case mode.RouteSettings:
		m, cmd = m.updateSettings(msg)
	case mode.RouteStreams:
		m, cmd = m.updateStreams(msg)
	case mode.RouteBandwidth:
		m, cmd = m.updateBandwidth(msg)
	}

	// A panel switch may have raised the warning during this pass.
	var promptCmd tea.Cmd
	m, promptCmd = m.syncPrompt()
	return m, tea.Batch(cmd, promptCmd)
}

func (m Model) delegateToAll(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m, cmd = m.updateSettings(msg)
	cmds = append(cmds, cmd)
	m, cmd = m.updateStreams(msg)
	cmds = append(cmds, cmd)
	m, cmd = m.updateBandwidth(msg)
	cmds = append(cmds, cmd)

	var promptCmd tea.Cmd
	m, promptCmd = m.syncPrompt()
	cmds = append(cmds, promptCmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateSettings(msg tea.Msg) (Model, tea.Cmd) {
	c, cmd := m.settings.Update(msg)
	m.settings = asSettings(c)
	return m, cmd
}

func (m Model) updateStreams(msg tea.Msg) (Model, tea.Cmd) {
	c, cmd := m.streams.Update(msg)
	m.streams = asStreams(c)
	return m, cmd
}

func (m Model) updateBandwidth(msg tea.Msg) (Model, tea.Cmd) {
	c, cmd := m.bandwidth.Update(msg)
	m.bandwidth = asBandwidth(c)
	return m, cmd
}

func asSettings(c mode.Controller) settings.Model   { return c.(settings.Model) }
func asStreams(c mode.Controller) streams.Model     { return c.(streams.Model) }
func asBandwidth(c mode.Controller) bandwidth.Model { return c.(bandwidth.Model) }

// View implements tea.Model.
func (m Model) View() string {
	var page string
	switch m.route {
	case mode.RouteStreams:
		page = m.streams.View()
	case mode.RouteBandwidth:
		page = m.bandwidth.View()
	default:
		page = m.settings.View()
	}

	view := page
	if m.services.Config.UI.ShowStatusBar {
		view += "\n" + m.statusBar()
	}

	if m.helpVisible {
		view = m.helpView()
	}
	if m.promptOpen {
		view = m.prompt.Overlay(view)
	}
	view = m.toaster.Overlay(view, m.width, m.height)

	return zone.Scan(view)
}

func (m Model) statusBar() string {
	entries := []struct {
		key   string
		label string
		route mode.Route
	}{
		{"1", "settings", mode.RouteSettings},
		{"2", "streams", mode.RouteStreams},
		{"3", "bandwidth", mode.RouteBandwidth},
	}

	parts := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		label := "[" + e.key + "] " + e.label
		if e.route == mode.RouteSettings && m.services.Unsaved.HasDirtyTabs() {
			label += styles.DirtyMarkStyle.Render("●")
		}
		if e.route == m.route {
			parts = append(parts, styles.TitleStyle.Render(label))
		} else {
			parts = append(parts, styles.StatusBarStyle.Render(label))
		}
	}
	parts = append(parts, styles.StatusBarStyle.Render("? help · q quit"))
	return lipgloss.JoinHorizontal(lipgloss.Center, "  ", joinWith(parts, "  "))
}

func joinWith(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

func (m Model) helpView() string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	r, err := markdown.New(width)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out + "\n" + styles.HelpStyle.Render("press any key to close")
}
