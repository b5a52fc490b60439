// Package ui renders stories and status lines for the terminal.
// Colors follow the Ayu theme with adaptive light/dark variants.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/git-start/internal/types"
)

// Ayu theme color palette
// Dark: https://terminalcolors.com/themes/ayu/dark/
// Light: https://terminalcolors.com/themes/ayu/light/
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300", // ayu light bright green
		Dark:  "#c2d94c", // ayu dark bright green
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49", // ayu light bright yellow
		Dark:  "#ffb454", // ayu dark bright yellow
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171", // ayu light bright red
		Dark:  "#f07178", // ayu dark bright red
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99", // ayu light muted
		Dark:  "#6c7680", // ayu dark muted
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6", // ayu light bright blue
		Dark:  "#59c2ff", // ayu dark bright blue
	}
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	// TitleStyle is used for story titles in detail views.
	TitleStyle = lipgloss.NewStyle().Bold(true)
	// LabelStyle is used for field names ("State:", "URL:").
	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted).Width(8)
)

const IconPass = "✓"

// SeparatorLight is drawn between a story header and its description.
const SeparatorLight = "──────────────────────────────────────────"

// TypeStyle returns the style for a story type: features in accent blue,
// bugs in red, chores muted. Unknown types are unstyled.
func TypeStyle(t types.StoryType) lipgloss.Style {
	switch t {
	case types.TypeFeature:
		return AccentStyle
	case types.TypeBug:
		return FailStyle
	case types.TypeChore:
		return MutedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// StateStyle returns the style for a story state.
func StateStyle(s types.StoryState) lipgloss.Style {
	switch {
	case s.IsStartable():
		return WarnStyle
	case s == types.StateRejected:
		return FailStyle
	case s == types.StateAccepted:
		return PassStyle
	default:
		return AccentStyle
	}
}

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}
