package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/cashflow/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// ReductionBar renders how much of a category's base amount a reduction
// factor removes. Factors outside [0,1] are drawn clamped but labelled
// with their real value.
func ReductionBar(factor float64, width int) string {
	t := theme.Active
	width = max(width, 1)

	filled := int(factor * float64(width))
	filled = max(0, min(filled, width))

	barColor := t.Accent
	if factor > 1 || factor < 0 {
		barColor = t.Warning
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))
	b.WriteString(spaceStyle.Render(" "))
	b.WriteString(pctStyle.Render(fmt.Sprintf("%4.0f%%", factor*100)))
	return b.String()
}
