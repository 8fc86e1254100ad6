package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every screen.
var (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorUp      = lipgloss.Color("#10B981")
	ColorDown    = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#374151")
	ColorBlock   = lipgloss.Color("#60A5FA")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary).
			Padding(0, 2)

	LogoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	MutedValue = lipgloss.NewStyle().
			Foreground(ColorMuted)

	BlockValue = lipgloss.NewStyle().
			Foreground(ColorBlock)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Startup steps and the status bar.
var (
	StepReadyStyle      = lipgloss.NewStyle().Foreground(ColorUp)
	StepConnectingStyle = lipgloss.NewStyle().Foreground(ColorWarning)
	StepFailedStyle     = lipgloss.NewStyle().Foreground(ColorDown)

	RefreshingStyle = lipgloss.NewStyle().Foreground(ColorUp).Bold(true)
	PausedStyle     = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)

	ErrorHeaderStyle = lipgloss.NewStyle().Foreground(ColorDown).Bold(true)
	ErrorLineStyle   = lipgloss.NewStyle().Foreground(ColorDown)
)

// stepStyle picks the icon, label and style for a startup step status.
func stepStyle(status, spinner string) (icon, label string, style lipgloss.Style) {
	switch status {
	case StatusConnected:
		return "✓", "Ready", StepReadyStyle
	case StatusConnecting:
		return spinner, "Connecting...", StepConnectingStyle
	case StatusFailed:
		return "✗", "Failed", StepFailedStyle
	default:
		return "○", "Pending", MutedValue
	}
}
