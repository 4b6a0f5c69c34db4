// Package streams is the active-streams page: a live table of sessions the
// flowmark server is currently shaping.
package streams

import (
	"context"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/ui/styles"
)

const fetchTimeout = 10 * time.Second

// streamsMsg carries a fetched stream list.
type streamsMsg struct {
	streams []api.Stream
	err     error
}

// tickMsg drives auto-refresh.
type tickMsg struct{}

// Model is the streams page controller.
type Model struct {
	services mode.Services
	table    table.Model
	spinner  spinner.Model
	loading  bool
	loaded   bool
	err      error
	count    int
	width    int
	height   int
}

// New creates the streams page.
func New(services mode.Services) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.TitleStyle

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
	)

	return Model{
		services: services,
		table:    t,
		spinner:  sp,
		loading:  true,
	}
}

func columns(width int) []table.Column {
	// Fixed columns take priority; the title absorbs the rest.
	user, bitrate, state := 14, 12, 10
	title := width - user - bitrate - state - 8
	if title < 16 {
		title = 16
	}
	return []table.Column{
		{Title: "User", Width: user},
		{Title: "Title", Width: title},
		{Title: "Bitrate", Width: bitrate},
		{Title: "State", Width: state},
	}
}

// Init starts the spinner and the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.scheduleTick())
}

func (m Model) fetch() tea.Cmd {
	client := m.services.API
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		streams, err := client.Streams(ctx)
		return streamsMsg{streams: streams, err: err}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	if !m.services.Config.AutoRefresh {
		return nil
	}
	return tea.Tick(m.services.Config.RefreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (mode.Controller, tea.Cmd) {
	switch msg := msg.(type) {
	case streamsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.count = len(msg.streams)
		m.table.SetRows(rows(msg.streams))
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.scheduleTick())

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			return m, tea.Batch(m.spinner.Tick, m.fetch())
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	return m, nil
}

func rows(streams []api.Stream) []table.Row {
	out := make([]table.Row, 0, len(streams))
	for _, s := range streams {
		out = append(out, table.Row{
			s.User,
			s.Title,
			strconv.Itoa(s.BitrateKbps) + " kbps",
			s.State,
		})
	}
	return out
}

// SetSize handles terminal resize events.
func (m Model) SetSize(width, height int) mode.Controller {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	if h := height - 6; h > 3 {
		m.table.SetHeight(h)
	}
	return m
}

// View renders the page.
func (m Model) View() string {
	title := styles.TitleStyle.Render("Active streams")

	switch {
	case m.loading && !m.loaded:
		return title + "\n\n" + m.spinner.View() + " fetching streams…"
	case m.err != nil:
		return title + "\n\n" + styles.ErrorStyle.Render("fetch failed: "+m.err.Error()) + "\n" +
			styles.HelpStyle.Render("press r to retry")
	case m.count == 0:
		return title + "\n\n" + styles.HelpStyle.Render("no active streams")
	}

	status := styles.HelpStyle.Render(strconv.Itoa(m.count) + " streams · r refresh")
	return title + "\n\n" + m.table.View() + "\n" + status
}
