// Package tabbar renders a clickable horizontal tab strip with dirty
// markers. Used for both the page bar and the settings panel tabs.
package tabbar

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rivo/uniseg"

	"github.com/sbrink/flowdash/internal/ui/styles"
)

// maxLabelWidth caps a single tab label before truncation.
const maxLabelWidth = 24

// Tab is one entry in the strip.
type Tab struct {
	ID    string
	Label string
	Dirty bool
}

// Model holds the tab strip state.
type Model struct {
	zonePrefix string
	tabs       []Tab
	active     int
}

// New creates a tab strip. zonePrefix must be unique per strip so mouse
// zones of two strips never collide.
func New(zonePrefix string, tabs []Tab) Model {
	return Model{
		zonePrefix: zonePrefix,
		tabs:       tabs,
	}
}

// SetTabs replaces the tabs, clamping the active index.
func (m Model) SetTabs(tabs []Tab) Model {
	m.tabs = tabs
	if m.active >= len(tabs) {
		m.active = max(0, len(tabs)-1)
	}
	return m
}

// SetActive selects a tab by index. Out-of-range indexes are ignored.
func (m Model) SetActive(i int) Model {
	if i >= 0 && i < len(m.tabs) {
		m.active = i
	}
	return m
}

// Active returns the selected tab index.
func (m Model) Active() int {
	return m.active
}

// ActiveID returns the selected tab's ID, or "" when the strip is empty.
func (m Model) ActiveID() string {
	if len(m.tabs) == 0 {
		return ""
	}
	return m.tabs[m.active].ID
}

// Len returns the number of tabs.
func (m Model) Len() int {
	return len(m.tabs)
}

// IndexOf returns the position of the tab with the given ID.
func (m Model) IndexOf(id string) (int, bool) {
	for i, t := range m.tabs {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Next returns the index to the right of the active tab, wrapping.
func (m Model) Next() int {
	if len(m.tabs) == 0 {
		return 0
	}
	return (m.active + 1) % len(m.tabs)
}

// Prev returns the index to the left of the active tab, wrapping.
func (m Model) Prev() int {
	if len(m.tabs) == 0 {
		return 0
	}
	return (m.active - 1 + len(m.tabs)) % len(m.tabs)
}

// ClickedTab resolves a mouse event to a tab index via the strip's zones.
func (m Model) ClickedTab(msg tea.MouseMsg) (int, bool) {
	for i := range m.tabs {
		if z := zone.Get(m.zoneID(i)); z != nil && z.InBounds(msg) {
			return i, true
		}
	}
	return 0, false
}

func (m Model) zoneID(i int) string {
	return fmt.Sprintf("%s:%d", m.zonePrefix, i)
}

// View renders the strip. Dirty tabs carry a bullet marker so unsaved
// state is visible even on inactive tabs.
func (m Model) View() string {
	if len(m.tabs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(m.tabs))
	for i, t := range m.tabs {
		label := truncateLabel(t.Label, maxLabelWidth)
		if t.Dirty {
			label += " " + styles.DirtyMarkStyle.Render("●")
		}

		style := styles.TabStyle
		if i == m.active {
			style = styles.ActiveTabStyle
		}
		parts = append(parts, zone.Mark(m.zoneID(i), style.Render(" "+label+" ")))
	}

	divider := styles.HelpStyle.Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(parts, divider))
}

// truncateLabel shortens a label to at most width cells, grapheme-aware so
// combining characters and wide runes never get split.
func truncateLabel(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		w := g.Width()
		if used+w > width-1 {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	return b.String() + "…"
}
