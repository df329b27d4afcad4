package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

func clampFill(used float64) float64 {
	return min(max(used, 0), 1)
}

// SpendBar renders a block bar for a budget's used fraction followed by its
// percentage. Overspend fills the bar and keeps the real percentage.
func SpendBar(used, near float64, width int) string {
	t := theme.Active
	c := UsageTone(used, near).Color()
	filled := int(clampFill(used) * float64(width))

	return surfaceText(c).Render(strings.Repeat("█", filled)) +
		surfaceText(t.TextDim).Render(strings.Repeat("░", width-filled)) +
		surfaceText(t.Surface).Render(" ") +
		surfaceText(c).Bold(true).Render(fmt.Sprintf("%.0f%%", used*100))
}

// LimitBar renders a category limit as label, gradient bar, percentage and
// a trailing note such as "$40.00 left".
func LimitBar(category string, used, near float64, note string, labelW, barW int) string {
	t := theme.Active
	c := UsageTone(used, near).Color()

	bar := progress.New(
		progress.WithSolidFill(string(c)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	if r := []rune(category); len(r) > labelW {
		category = string(r[:labelW-1]) + "…"
	}
	gap := lipgloss.NewStyle().Background(t.Surface)

	return surfaceText(t.TextMuted).Render(fmt.Sprintf("%-*s", labelW, category)) +
		gap.Render(" ") +
		bar.ViewAs(clampFill(used)) +
		gap.Render(" ") +
		surfaceText(c).Bold(true).Render(fmt.Sprintf("%4.0f%%", used*100)) +
		gap.Render("  ") +
		surfaceText(t.TextDim).Render(note)
}
