package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		buf.WriteRune(sparkBlocks[idx])
	}

	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Render(buf.String())
}

// HBar renders one row of a horizontal bar chart: label, bar scaled against
// peak, then the formatted value.
func HBar(label string, value, peak float64, valueText string, labelW, barW int, color lipgloss.Color) string {
	t := theme.Active
	if peak <= 0 {
		peak = 1
	}
	n := int(value / peak * float64(barW))
	if n > barW {
		n = barW
	}
	if n < 0 {
		n = 0
	}
	if value > 0 && n == 0 {
		n = 1
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if len([]rune(label)) > labelW {
		label = string([]rune(label)[:labelW-1]) + "…"
	}
	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		space.Render(" ") +
		barStyle.Render(strings.Repeat("█", n)) +
		space.Render(strings.Repeat(" ", barW-n+1)) +
		valueStyle.Render(valueText)
}
