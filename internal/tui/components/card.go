// Package components provides reusable widgets for the bopt dashboard.
package components

import (
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// cardChrome is the horizontal space taken by border and padding.
const cardChrome = 4

// Metric is one headline number on the overview.
type Metric struct {
	Label string
	Value string
	Note  string
	Tone  Tone
}

// LayoutRow splits total into n widths summing to total; leading items take
// the remainder.
func LayoutRow(total, n int) []int {
	if n <= 0 {
		return nil
	}
	widths := make([]int, n)
	for i := range widths {
		widths[i] = total / n
		if i < total%n {
			widths[i]++
		}
	}
	return widths
}

// frame is the bordered surface every card is drawn on. outer includes the
// border.
func frame(outer int) lipgloss.Style {
	t := theme.Active
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(max(outer-2, 10)).
		Padding(0, 1)
}

func surfaceText(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Background(theme.Active.Surface)
}

// MetricCards renders metrics side by side, exactly total wide.
func MetricCards(metrics []Metric, total int) string {
	if len(metrics) == 0 {
		return ""
	}
	t := theme.Active
	widths := LayoutRow(total, len(metrics))
	cards := make([]string, len(metrics))
	for i, m := range metrics {
		body := surfaceText(t.TextMuted).Render(m.Label) + "\n" +
			surfaceText(m.Tone.Color()).Bold(true).Render(m.Value)
		if m.Note != "" {
			body += "\n" + surfaceText(t.TextDim).Render(m.Note)
		}
		cards[i] = frame(widths[i]).Render(body)
	}
	return CardRow(cards)
}

// ContentCard renders body in a bordered card under an optional title.
func ContentCard(title, body string, outer int) string {
	if title != "" {
		body = surfaceText(theme.Active.TextMuted).Bold(true).Render(title) + "\n" + body
	}
	return frame(outer).Render(body)
}

// CardRow joins rendered cards horizontally, top aligned.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// CardInnerWidth is the text width inside a card of the given outer width.
func CardInnerWidth(outer int) int {
	return max(outer-cardChrome, 10)
}

// ListRow renders one selectable list line padded to width.
func ListRow(text string, selected bool, width int) string {
	t := theme.Active
	if selected {
		return lipgloss.NewStyle().
			Foreground(t.TextPrimary).
			Background(t.SurfaceBright).
			Bold(true).
			Width(width).
			Render("▸ " + text)
	}
	return surfaceText(t.TextPrimary).Width(width).Render("  " + text)
}
