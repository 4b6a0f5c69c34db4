package app

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/exp/teatest"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/config"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/testutil"
	"github.com/sbrink/flowdash/internal/ui/unsavedprompt"
	"github.com/sbrink/flowdash/internal/unsaved"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	zone.NewGlobal()
	m.Run()
}

// newTestApp builds an app against a stub server with auto-refresh off so
// no ticker commands leak into tests.
func newTestApp(t *testing.T) (Model, *unsaved.Coordinator) {
	t.Helper()

	srv := testutil.NewServer(t)
	client, err := api.NewClient(api.Config{BaseURL: srv.URL(), Timeout: 5 * time.Second})
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.AutoRefresh = false

	coord := unsaved.New()
	m := New(Config{Services: mode.Services{
		API:     client,
		Config:  &cfg,
		Unsaved: coord,
	}})
	t.Cleanup(m.Close)
	return m, coord
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// dirtyTab registers a dirty tab whose callbacks record what the
// coordinator does with them.
type dirtyTab struct {
	saves    int
	discards int
	saveErr  error
}

func (d *dirtyTab) register(coord *unsaved.Coordinator, id unsaved.TabID) {
	coord.Register(unsaved.Tab{
		ID:    id,
		Dirty: true,
		Save: func(context.Context) error {
			d.saves++
			if d.saveErr != nil {
				return d.saveErr
			}
			// A successful save leaves the tab clean.
			coord.Register(unsaved.Tab{ID: id, Dirty: false})
			return nil
		},
		Discard: func() {
			d.discards++
			coord.Register(unsaved.Tab{ID: id, Dirty: false})
		},
	})
}

func TestApp_CleanNavigationSwitchesRoute(t *testing.T) {
	m, _ := newTestApp(t)
	require.Equal(t, mode.RouteSettings, m.route)

	m, cmd := update(t, m, keyPress("2"))
	require.Equal(t, mode.RouteStreams, m.route)
	require.NotNil(t, cmd, "first visit starts the streams page")
	require.False(t, m.promptOpen)
}

func TestApp_SameRouteIsNoop(t *testing.T) {
	m, _ := newTestApp(t)
	m, cmd := update(t, m, keyPress("1"))
	require.Equal(t, mode.RouteSettings, m.route)
	require.Nil(t, cmd)
}

func TestApp_DirtyTabBlocksNavigation(t *testing.T) {
	m, coord := newTestApp(t)
	(&dirtyTab{}).register(coord, "general")

	m, _ = update(t, m, keyPress("2"))

	require.Equal(t, mode.RouteSettings, m.route, "navigation is deferred, not performed")
	require.True(t, m.promptOpen)
	require.Equal(t, "/streams", coord.PendingNavigation())
}

func TestApp_PromptCancelStaysPut(t *testing.T) {
	m, coord := newTestApp(t)
	(&dirtyTab{}).register(coord, "general")
	m, _ = update(t, m, keyPress("2"))

	m, _ = update(t, m, unsavedprompt.ChoiceMsg{Choice: unsavedprompt.ChoiceCancel})

	require.False(t, m.promptOpen)
	require.Equal(t, mode.RouteSettings, m.route)
	require.Empty(t, coord.PendingNavigation())
	require.True(t, coord.HasDirtyTabs(), "cancel never touches the draft")
}

func TestApp_SaveAndProceedNavigatesThroughBridge(t *testing.T) {
	m, coord := newTestApp(t)
	tab := &dirtyTab{}
	tab.register(coord, "general")
	m, _ = update(t, m, keyPress("2"))

	// Choose save; run the returned resolution command synchronously.
	m, cmd := update(t, m, unsavedprompt.ChoiceMsg{Choice: unsavedprompt.ChoiceSave})
	require.NotNil(t, cmd)
	resolved := cmd()

	m, _ = update(t, m, resolved)
	require.False(t, m.promptOpen)
	require.Equal(t, 1, tab.saves)

	// The route arrives on a later pass through the bridge, never
	// synchronously inside the save.
	require.Equal(t, mode.RouteSettings, m.route)
	bridgeMsg := m.navListener.Listen()()
	require.NotNil(t, bridgeMsg, "the blocked route must be in the bridge")

	m, _ = update(t, m, bridgeMsg)
	require.Equal(t, mode.RouteStreams, m.route)
}

func TestApp_SaveFailureKeepsPromptUp(t *testing.T) {
	m, coord := newTestApp(t)
	tab := &dirtyTab{saveErr: errors.New("server returned 500")}
	tab.register(coord, "general")
	m, _ = update(t, m, keyPress("2"))

	m, cmd := update(t, m, unsavedprompt.ChoiceMsg{Choice: unsavedprompt.ChoiceSave})
	m, _ = update(t, m, cmd())

	require.True(t, m.promptOpen, "the dialog stays up for retry or cancel")
	require.True(t, coord.WarningVisible())
	require.Equal(t, "/streams", coord.PendingNavigation(), "a failed save consumes nothing")
	require.Contains(t, m.prompt.View(), "server returned 500")
}

func TestApp_DiscardAndProceedResumesNavigation(t *testing.T) {
	m, coord := newTestApp(t)
	tab := &dirtyTab{}
	tab.register(coord, "general")
	m, _ = update(t, m, keyPress("2"))

	m, _ = update(t, m, unsavedprompt.ChoiceMsg{Choice: unsavedprompt.ChoiceDiscard})

	require.Equal(t, 1, tab.discards)
	require.False(t, m.promptOpen)
	require.Equal(t, mode.RouteStreams, m.route, "the parked navigation resumes once the tab is clean")
	require.Empty(t, coord.PendingNavigation())
}

func TestApp_QuitGuard(t *testing.T) {
	m, coord := newTestApp(t)
	(&dirtyTab{}).register(coord, "general")

	m, cmd := update(t, m, keyPress("q"))

	require.True(t, m.promptOpen)
	require.True(t, m.quitRequested)
	if cmd != nil {
		require.NotEqual(t, tea.QuitMsg{}, cmd(), "dirty state must block the quit")
	}
}

func TestApp_QuitCleanQuitsImmediately(t *testing.T) {
	m, _ := newTestApp(t)

	_, cmd := m.requestQuit()
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitAfterDiscard(t *testing.T) {
	m, coord := newTestApp(t)
	tab := &dirtyTab{}
	tab.register(coord, "general")
	m, _ = update(t, m, keyPress("q"))

	m2, cmd := update(t, m, unsavedprompt.ChoiceMsg{Choice: unsavedprompt.ChoiceDiscard})
	_ = m2

	require.Equal(t, 1, tab.discards)
	require.NotNil(t, cmd)
	require.Equal(t, tea.QuitMsg{}, cmd(), "quit resumes once the draft is discarded")
}

func TestApp_StatusBarMarksDirtySettings(t *testing.T) {
	m, coord := newTestApp(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	clean := m.View()
	require.Contains(t, clean, "[1] settings")
	require.NotContains(t, clean, "settings●")

	(&dirtyTab{}).register(coord, "general")
	dirty := m.View()
	require.Contains(t, dirty, "settings●")
}

func TestApp_ProgramRendersAndQuits(t *testing.T) {
	m, _ := newTestApp(t)

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("General"))
	}, teatest.WithDuration(3*time.Second))

	tm.Send(keyPress("q"))
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}

func TestApp_HelpOverlayToggles(t *testing.T) {
	m, _ := newTestApp(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	m, _ = update(t, m, keyPress("?"))
	require.True(t, m.helpVisible)

	m, _ = update(t, m, keyPress("x"))
	require.False(t, m.helpVisible, "any key closes the help overlay")
}
