// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Shared palette for CLI output, tuned for dark terminals.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// SubtitleStyle is for descriptions and placeholders like "(none)".
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	// SuccessStyle marks completed actions and configured values.
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)

	// WarningStyle marks missing helpers, duplicates and recursion.
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)

	// KeyStyle is for function names and config keys.
	KeyStyle = lipgloss.NewStyle().Foreground(ColorHighlight)
)
