package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981")
	mutedColor     = lipgloss.Color("#6B7280")
	errorColor     = lipgloss.Color("#EF4444")
	warningColor   = lipgloss.Color("#F59E0B")

	// Header styles
	headerContainerStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#1F1F1F")).
				Padding(0, 1)

	headerBrandStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	headerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	headerStatsStyle = lipgloss.NewStyle().
				Foreground(mutedColor)

	stateRunningStyle  = lipgloss.NewStyle().Foreground(secondaryColor)
	stateStoppingStyle = lipgloss.NewStyle().Foreground(warningColor)
	stateStoppedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	stateFailedStyle   = lipgloss.NewStyle().Foreground(errorColor)

	// Log view styles
	logTimeStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	logStdoutStyle = lipgloss.NewStyle()
	logStderrStyle = lipgloss.NewStyle().Foreground(errorColor)

	logViewBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor)

	logViewFocusedBorderStyle = lipgloss.NewStyle().
					Border(lipgloss.RoundedBorder()).
					BorderForeground(primaryColor)

	logEmptyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1, 2)

	// Input line styles
	inputLineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2D2D2D")).
			Padding(0, 1)

	inputLineFocusedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 1)

	// Status bar styles
	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Padding(0, 1)
)
