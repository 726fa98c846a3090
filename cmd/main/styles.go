package main

import "github.com/charmbracelet/lipgloss"

// CLI output styles shared across commands.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// statusStyle colors a job or run status for terminal output.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded":
		return successStyle
	case "failed":
		return errorStyle
	case "running", "search_running":
		return warnStyle
	default:
		return mutedStyle
	}
}
