package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Emerald   = lipgloss.Color("#10B981")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Red       = lipgloss.Color("#EF4444")
	Amber     = lipgloss.Color("#F59E0B")
	Blue      = lipgloss.Color("#3B82F6")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	subtleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	accentStyle = lipgloss.NewStyle().
			Foreground(Emerald)

	errorStyle = lipgloss.NewStyle().
			Foreground(Red)

	warnStyle = lipgloss.NewStyle().
			Foreground(Amber)

	selectedStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(Emerald).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)
)

// Row markers for the lesson list.
const (
	markBookmarked  = "★"
	markDownloaded  = "●"
	markDownloading = "◐"
	markNone        = " "
)
