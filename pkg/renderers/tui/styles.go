package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(accent)
	infoStyle   = lipgloss.NewStyle().Foreground(green)
	errorStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)
)

// StyledTheme returns prefixes coloured for dark terminals. lipgloss drops
// the colours when the output does not support them.
func StyledTheme() Theme {
	return Theme{
		PromptPrefix: promptStyle.Render("?") + " ",
		InfoPrefix:   infoStyle.Render("›") + " ",
		ErrorPrefix:  errorStyle.Render("✗") + " ",
	}
}
