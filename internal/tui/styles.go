package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every page.
var (
	ColorNavy   = lipgloss.Color("#1B2A4A")
	ColorBlue   = lipgloss.Color("#4A90D9")
	ColorGreen  = lipgloss.Color("#44FF44")
	ColorYellow = lipgloss.Color("#FFAA00")
	ColorRed    = lipgloss.Color("#FF6666")
	ColorGray   = lipgloss.Color("244")
	ColorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(ColorGray).Width(16)
	valueStyle = lipgloss.NewStyle().Foreground(ColorWhite)
	errorStyle = lipgloss.NewStyle().Foreground(ColorRed)
	noteStyle  = lipgloss.NewStyle().Foreground(ColorYellow)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
)

// renderBranding renders "Harmonia" with a green to light blue gradient.
func renderBranding() string {
	colors := []string{"#49E209", "#35DD2F", "#21D955", "#0DD47B", "#00D0A1", "#00CAC7", "#00B4D8", "#0096C7"}
	var out string
	for i, ch := range "Harmonia" {
		out += lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i])).
			Bold(true).
			Render(string(ch))
	}
	return out
}

// panel draws a bordered box; focused panels get the accent border.
func panel(title, body string, width int, focused bool) string {
	border := ColorNavy
	if focused {
		border = ColorBlue
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(titleStyle.Render(title) + "\n" + body)
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}
