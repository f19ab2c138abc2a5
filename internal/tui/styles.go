package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#7C3AED")
	muted  = lipgloss.Color("#6B7280")
	green  = lipgloss.Color("#10B981")
	red    = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	dimStyle = lipgloss.NewStyle().
			Foreground(muted)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	selectedStyle = lipgloss.NewStyle().
			Background(accent).
			Foreground(lipgloss.Color("#FFFFFF"))

	appliedStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(red)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted)
)
