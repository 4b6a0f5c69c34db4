// Package styles contains Lip Gloss style definitions and theming.
package styles

import (
	"fmt"
	"maps"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ColorToken names a themeable color.
type ColorToken string

const (
	TokenHighlight ColorToken = "highlight"
	TokenSubtle    ColorToken = "subtle"
	TokenSuccess   ColorToken = "success"
	TokenWarning   ColorToken = "warning"
	TokenError     ColorToken = "error"
	TokenBorder    ColorToken = "border"
	TokenText      ColorToken = "text"
	TokenMuted     ColorToken = "muted"
)

// Preset is a named set of color token values.
type Preset struct {
	Name   string
	Colors map[ColorToken]string
}

// DefaultPreset is the baseline every theme starts from.
var DefaultPreset = Preset{
	Name: "default",
	Colors: map[ColorToken]string{
		TokenHighlight: "#3498DB",
		TokenSubtle:    "#696969",
		TokenSuccess:   "#73F59F",
		TokenWarning:   "#FECA57",
		TokenError:     "#FF8787",
		TokenBorder:    "#696969",
		TokenText:      "#CCCCCC",
		TokenMuted:     "#777777",
	},
}

// Presets are the selectable color schemes.
var Presets = map[string]Preset{
	"default": DefaultPreset,
	"dark": {
		Name: "dark",
		Colors: map[ColorToken]string{
			TokenHighlight: "#89B4FA",
			TokenSubtle:    "#45475A",
			TokenSuccess:   "#A6E3A1",
			TokenWarning:   "#F9E2AF",
			TokenError:     "#F38BA8",
			TokenBorder:    "#45475A",
			TokenText:      "#CDD6F4",
			TokenMuted:     "#6C7086",
		},
	},
	"light": {
		Name: "light",
		Colors: map[ColorToken]string{
			TokenHighlight: "#1E66F5",
			TokenSubtle:    "#9CA0B0",
			TokenSuccess:   "#40A02B",
			TokenWarning:   "#DF8E1D",
			TokenError:     "#D20F39",
			TokenBorder:    "#9CA0B0",
			TokenText:      "#4C4F69",
			TokenMuted:     "#8C8FA1",
		},
	},
}

// PresetNames returns the selectable preset names in cycle order.
func PresetNames() []string {
	return []string{"default", "dark", "light"}
}

// Active color values, updated by ApplyTheme.
var (
	HighlightColor = lipgloss.Color(DefaultPreset.Colors[TokenHighlight])
	SubtleColor    = lipgloss.Color(DefaultPreset.Colors[TokenSubtle])
	SuccessColor   = lipgloss.Color(DefaultPreset.Colors[TokenSuccess])
	WarningColor   = lipgloss.Color(DefaultPreset.Colors[TokenWarning])
	ErrorColor     = lipgloss.Color(DefaultPreset.Colors[TokenError])
	BorderColor    = lipgloss.Color(DefaultPreset.Colors[TokenBorder])
	TextColor      = lipgloss.Color(DefaultPreset.Colors[TokenText])
	MutedColor     = lipgloss.Color(DefaultPreset.Colors[TokenMuted])
)

// Shared styles, rebuilt after theme changes.
var (
	TitleStyle      lipgloss.Style
	HelpStyle       lipgloss.Style
	ErrorStyle      lipgloss.Style
	SuccessStyle    lipgloss.Style
	WarningStyle    lipgloss.Style
	DirtyMarkStyle  lipgloss.Style
	StatusBarStyle  lipgloss.Style
	ActiveTabStyle  lipgloss.Style
	TabStyle        lipgloss.Style
	PanelBoxStyle   lipgloss.Style
	FocusedBoxStyle lipgloss.Style
	LabelStyle      lipgloss.Style
	ButtonStyle     lipgloss.Style
)

func init() {
	rebuildStyles()
}

// ThemeConfig mirrors config.ThemeConfig to avoid a circular import.
type ThemeConfig struct {
	Preset string
	Colors map[string]string
}

// ApplyTheme applies a preset plus per-token overrides and rebuilds the
// shared styles.
func ApplyTheme(cfg ThemeConfig) error {
	colors := maps.Clone(DefaultPreset.Colors)

	if cfg.Preset != "" && cfg.Preset != "default" {
		preset, ok := Presets[cfg.Preset]
		if !ok {
			return fmt.Errorf("unknown theme preset: %s", cfg.Preset)
		}
		maps.Copy(colors, preset.Colors)
	}

	for key, value := range cfg.Colors {
		token := ColorToken(key)
		if _, ok := DefaultPreset.Colors[token]; !ok {
			return fmt.Errorf("unknown color token: %s", key)
		}
		if !isValidHexColor(value) {
			return fmt.Errorf("invalid hex color for %s: %s", key, value)
		}
		colors[token] = value
	}

	HighlightColor = lipgloss.Color(colors[TokenHighlight])
	SubtleColor = lipgloss.Color(colors[TokenSubtle])
	SuccessColor = lipgloss.Color(colors[TokenSuccess])
	WarningColor = lipgloss.Color(colors[TokenWarning])
	ErrorColor = lipgloss.Color(colors[TokenError])
	BorderColor = lipgloss.Color(colors[TokenBorder])
	TextColor = lipgloss.Color(colors[TokenText])
	MutedColor = lipgloss.Color(colors[TokenMuted])

	rebuildStyles()
	return nil
}

func rebuildStyles() {
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(HighlightColor)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor)
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	DirtyMarkStyle = lipgloss.NewStyle().Bold(true).Foreground(WarningColor)
	StatusBarStyle = lipgloss.NewStyle().Foreground(MutedColor)
	ActiveTabStyle = lipgloss.NewStyle().Bold(true).Foreground(HighlightColor).Underline(true)
	TabStyle = lipgloss.NewStyle().Foreground(MutedColor)
	PanelBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BorderColor).Padding(0, 1)
	FocusedBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(HighlightColor).Padding(0, 1)
	LabelStyle = lipgloss.NewStyle().Foreground(SubtleColor)
	ButtonStyle = lipgloss.NewStyle().Bold(true).Foreground(HighlightColor).Reverse(true).Padding(0, 1)
}

// isValidHexColor accepts #RGB and #RRGGBB.
func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	for _, r := range hex {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
