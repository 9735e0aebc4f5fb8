package ui

import "github.com/charmbracelet/lipgloss"

// Plain ANSI colors so the help output follows the terminal theme.
var (
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	DescStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	FlagStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// ConfidenceStyle colors the confidence line printed by `kbqa ask`.
	ConfidenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)
