// Package bandwidth is the bandwidth page: recent rx/tx history fetched
// from the server, persisted to the local stats store, and rendered as
// sparklines.
package bandwidth

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sbrink/flowdash/internal/api"
	"github.com/sbrink/flowdash/internal/log"
	"github.com/sbrink/flowdash/internal/mode"
	"github.com/sbrink/flowdash/internal/ui/sparkline"
	"github.com/sbrink/flowdash/internal/ui/styles"
)

const (
	fetchTimeout = 10 * time.Second
	// historyWindow is how far back both the server fetch and the local
	// store read reach.
	historyWindow = 30 * time.Minute
	labelWidth    = 4
)

// historyMsg carries samples merged from the server and the local store.
type historyMsg struct {
	samples []api.Sample
	err     error
}

// tickMsg drives auto-refresh.
type tickMsg struct{}

// Model is the bandwidth page controller.
type Model struct {
	services mode.Services
	samples  []api.Sample
	loaded   bool
	err      error
	width    int
	height   int
}

// New creates the bandwidth page.
func New(services mode.Services) Model {
	return Model{services: services}
}

// Init starts the first fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.scheduleTick())
}

// fetch pulls history from the server, persists it, then reads the merged
// window back from the store so restarts keep their history.
func (m Model) fetch() tea.Cmd {
	client := m.services.API
	store := m.services.Stats
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		fresh, err := client.BandwidthHistory(ctx, historyWindow)
		if err != nil {
			return historyMsg{err: err}
		}

		if store != nil {
			if err := store.RecordSamples(ctx, fresh); err != nil {
				log.ErrorErr(log.CatStats, "recording samples", err)
			}
			if merged, err := store.Recent(ctx, historyWindow); err == nil {
				return historyMsg{samples: merged}
			}
		}
		return historyMsg{samples: fresh}
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
	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.samples = msg.samples
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.scheduleTick())

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.fetch()
		}
	}
	return m, nil
}

// SetSize handles terminal resize events.
func (m Model) SetSize(width, height int) mode.Controller {
	m.width = width
	m.height = height
	return m
}

// View renders the rx/tx sparklines with a peak/current summary.
func (m Model) View() string {
	title := styles.TitleStyle.Render("Bandwidth (last 30 min)")

	switch {
	case m.err != nil:
		return title + "\n\n" + styles.ErrorStyle.Render("fetch failed: "+m.err.Error()) + "\n" +
			styles.HelpStyle.Render("press r to retry")
	case !m.loaded:
		return title + "\n\n" + styles.HelpStyle.Render("loading…")
	case len(m.samples) == 0:
		return title + "\n\n" + styles.HelpStyle.Render("no samples yet")
	}

	rx := make([]int, len(m.samples))
	tx := make([]int, len(m.samples))
	for i, s := range m.samples {
		rx[i] = s.RxKbps
		tx[i] = s.TxKbps
	}

	chartWidth := m.width - 4
	if chartWidth < 20 {
		chartWidth = 20
	}

	rxLine := sparkline.Labeled("rx", rx, chartWidth, labelWidth, styles.SuccessStyle)
	txLine := sparkline.Labeled("tx", tx, chartWidth, labelWidth, styles.WarningStyle)

	latest := m.samples[len(m.samples)-1]
	summary := styles.HelpStyle.Render(fmt.Sprintf(
		"now %d↓ / %d↑ kbps · peak %d↓ / %d↑ kbps · %d samples · r refresh",
		latest.RxKbps, latest.TxKbps, peak(rx), peak(tx), len(m.samples),
	))

	return title + "\n\n" + rxLine + "\n" + txLine + "\n\n" + summary
}

func peak(series []int) int {
	p := 0
	for _, v := range series {
		if v > p {
			p = v
		}
	}
	return p
}
