package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Palette
	accentBlue  = lipgloss.Color("#5FAFFF")
	softGreen   = lipgloss.Color("#87D787")
	softYellow  = lipgloss.Color("#FFD75F")
	softRed     = lipgloss.Color("#FF5F5F")
	softMagenta = lipgloss.Color("#D787D7")
	dimGray     = lipgloss.Color("#808080")
	dimWhite    = lipgloss.Color("#B0B0B0")
	brightWhite = lipgloss.Color("#FFFFFF")

	// Header
	headerStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true).
			Padding(0, 1)

	headerSubStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			Padding(0, 1)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentBlue).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(accentBlue).
			Bold(true)

	// Stats
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	// Status
	successStyle = lipgloss.NewStyle().
			Foreground(softGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(softRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(softYellow).
			Bold(true)

	migratedStyle = lipgloss.NewStyle().
			Foreground(softMagenta)

	currentStyle = lipgloss.NewStyle().
			Foreground(softGreen)

	// Log entries
	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	// Footer
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0, 0, 1)
)
