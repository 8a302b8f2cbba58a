// Package ui provides terminal styling for solodev output.
// Colors adapt to light and dark terminals; output degrades to plain text
// when stdout is not a terminal.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors.
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#8bd17c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#b26a00", Dark: "#ffc857"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ff6b6b"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#8b949e"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#1565c0", Dark: "#79c0ff"}
)

var (
	PassStyle    = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle    = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle  = lipgloss.NewStyle().Foreground(ColorAccent)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	SuccessTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorPass)
	FailureTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorFail)
)

// Status icons.
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
	IconNext = "→"
	IconSkip = "-"
)

// Separator is the rule printed between report sections.
const Separator = "────────────────────────────────────────"

// Pass renders s in the pass color.
func Pass(s string) string { return PassStyle.Render(s) }

// Warn renders s in the warning color.
func Warn(s string) string { return WarnStyle.Render(s) }

// Fail renders s in the failure color.
func Fail(s string) string { return FailStyle.Render(s) }

// Muted renders s in the muted color.
func Muted(s string) string { return MutedStyle.Render(s) }

// Accent renders s in the accent color.
func Accent(s string) string { return AccentStyle.Render(s) }

// Header renders a bold, upper-cased section header.
func Header(s string) string {
	return HeaderStyle.Render(strings.ToUpper(s))
}

// Rule renders the section separator.
func Rule() string {
	return MutedStyle.Render(Separator)
}

// PassLine prefixes s with a styled pass icon.
func PassLine(s string) string { return PassStyle.Render(IconPass) + " " + s }

// WarnLine prefixes s with a styled warning icon.
func WarnLine(s string) string { return WarnStyle.Render(IconWarn) + " " + s }

// FailLine prefixes s with a styled failure icon.
func FailLine(s string) string { return FailStyle.Render(IconFail) + " " + s }

// InfoLine prefixes s with a styled info icon.
func InfoLine(s string) string { return AccentStyle.Render(IconInfo) + " " + s }

// NextLine prefixes s with a styled next-action arrow.
func NextLine(s string) string { return AccentStyle.Render(IconNext) + " " + s }

// Status colors a phase or module status word.
func Status(status string) string {
	switch status {
	case "approved", "completed", "passed", "deployed", "not_applicable":
		return PassStyle.Render(status)
	case "in_progress", "plan_in_progress", "plan_approved", "executing", "partially_clarified", "partial":
		return AccentStyle.Render(status)
	case "rolled_back", "failed":
		return FailStyle.Render(status)
	case "":
		return MutedStyle.Render(IconSkip)
	default:
		return MutedStyle.Render(status)
	}
}

// Indent prefixes every line of s with n spaces.
func Indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}
