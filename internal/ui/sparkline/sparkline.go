// Package sparkline renders numeric series as compact unicode bar charts.
package sparkline

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// levels are the eighth-block characters from lowest to highest.
var levels = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Render draws the series as a single line at most width cells wide, scaled
// to the series maximum. When the series is longer than width, the newest
// values win.
func Render(series []int, width int) string {
	if width <= 0 || len(series) == 0 {
		return ""
	}
	if len(series) > width {
		series = series[len(series)-width:]
	}

	maxVal := 0
	for _, v := range series {
		if v > maxVal {
			maxVal = v
		}
	}

	var b strings.Builder
	for _, v := range series {
		if v < 0 {
			v = 0
		}
		idx := 0
		if maxVal > 0 {
			idx = v * (len(levels) - 1) / maxVal
		}
		b.WriteRune(levels[idx])
	}
	return b.String()
}

// Labeled renders "label sparkline value" padded so multiple rows align.
// labelWidth is measured in display cells, not bytes.
func Labeled(label string, series []int, width int, labelWidth int, style lipgloss.Style) string {
	padded := label
	if w := runewidth.StringWidth(label); w < labelWidth {
		padded = label + strings.Repeat(" ", labelWidth-w)
	} else if w > labelWidth {
		padded = runewidth.Truncate(label, labelWidth, "…")
	}

	chartWidth := width - labelWidth - 1
	if chartWidth < 1 {
		chartWidth = 1
	}
	return padded + " " + style.Render(Render(series, chartWidth))
}
