package components

import (
	"strings"

	"github.com/theirongolddev/cashflow/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar: key hints on the left and
// the latest status message on the right.
func RenderStatusBar(width int, message string, isError bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	msgColor := t.Income
	if isError {
		msgColor = t.Critical
	}
	msgStyle := lipgloss.NewStyle().Foreground(msgColor).Background(t.Surface)

	left := " [n]ueva  [e]xportar  [?]ayuda  [q]salir"
	right := ""
	if message != "" {
		right = msgStyle.Render(message + " ")
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	gap := lipgloss.NewStyle().Background(t.Surface).Render(strings.Repeat(" ", padding))

	return style.Render(left + gap + right)
}
