package cli

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// palette is the fixed color set for plain command output.
var palette = theme.FlexokiDark

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(palette.TextPrimary).Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(palette.Accent)
	valueStyle  = lipgloss.NewStyle().Foreground(palette.TextPrimary)
	mutedStyle  = lipgloss.NewStyle().Foreground(palette.TextMuted)
	moneyStyle  = lipgloss.NewStyle().Foreground(palette.Green)
	warnStyle   = lipgloss.NewStyle().Foreground(palette.Orange)
	errStyle    = lipgloss.NewStyle().Foreground(palette.Red)
	dimStyle    = lipgloss.NewStyle().Foreground(palette.TextDim)
)

// RenderStatus colors a budget status for tables.
func RenderStatus(s model.BudgetStatus) string {
	return lipgloss.NewStyle().Foreground(palette.Status(s)).Render(string(s))
}

// RenderMoney renders an amount in the money color, or red when negative.
func RenderMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return errStyle.Render(FormatMoney(d))
	}
	return moneyStyle.Render(FormatMoney(d))
}

// RenderUsage colors a limit's percent used against the near threshold.
func RenderUsage(pct, near decimal.Decimal) string {
	s := FormatUsage(pct)
	switch {
	case pct.GreaterThan(decimal.NewFromInt(100)):
		return errStyle.Render(s)
	case pct.GreaterThanOrEqual(near):
		return warnStyle.Render(s)
	default:
		return valueStyle.Render(s)
	}
}

// RenderWarning renders a single highlighted warning line.
func RenderWarning(msg string) string {
	return warnStyle.Render("! " + msg)
}

// RenderMuted renders secondary text.
func RenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(palette.Border).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// rule draws a horizontal table border with the given corner and joint runes.
func rule(widths []int, left, joint, right string) string {
	segs := make([]string, len(widths))
	for i, w := range widths {
		segs[i] = strings.Repeat("─", w+2)
	}
	return dimStyle.Render(left+strings.Join(segs, joint)+right) + "\n"
}

// columnWidths sizes columns to the widest visible cell unless t.Widths is set.
func columnWidths(t Table) []int {
	n := len(t.Headers)
	if n == 0 && len(t.Rows) > 0 {
		n = len(t.Rows[0])
	}
	widths := make([]int, n)
	if t.Widths != nil {
		copy(widths, t.Widths)
		return widths
	}
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < n {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	return widths
}

// padCell pads by visible width so pre-colored cells stay aligned. The first
// column is left aligned, the rest right aligned.
func padCell(cell string, col, width int) string {
	gap := strings.Repeat(" ", max(width-lipgloss.Width(cell), 0))
	if col == 0 {
		return " " + valueStyle.Render(cell) + gap + " "
	}
	return " " + gap + valueStyle.Render(cell) + " "
}

// RenderTable renders a bordered table. A row holding the single cell "---"
// draws a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}
	widths := columnWidths(t)
	bar := dimStyle.Render("│")

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}
	b.WriteString(rule(widths, "╭", "┬", "╮"))

	if len(t.Headers) > 0 {
		cells := make([]string, len(widths))
		for i, w := range widths {
			h := ""
			if i < len(t.Headers) {
				h = t.Headers[i]
			}
			cells[i] = headerStyle.Render(fmt.Sprintf(" %-*s ", w, h))
		}
		b.WriteString(bar + strings.Join(cells, bar) + bar + "\n")
		b.WriteString(rule(widths, "├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule(widths, "├", "┼", "┤"))
			continue
		}
		cells := make([]string, len(widths))
		for i, w := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padCell(cell, i, w)
		}
		b.WriteString(bar + strings.Join(cells, bar) + bar + "\n")
	}

	b.WriteString(rule(widths, "╰", "┴", "╯"))
	return b.String()
}

// RenderProgressBar renders import progress as a bar with counts.
func RenderProgressBar(current, total, width int) string {
	if total <= 0 {
		return ""
	}
	filled := min(current*width/total, width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s", mutedStyle.Render(bar), FormatNumber(int64(current)), FormatNumber(int64(total)))
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline renders values as block characters scaled to the peak.
func RenderSparkline(values []float64) string {
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}
	top := len(sparkBlocks) - 1
	out := make([]rune, len(values))
	for i, v := range values {
		out[i] = sparkBlocks[min(max(int(v/peak*float64(top)), 0), top)]
	}
	return moneyStyle.Render(string(out))
}

// RenderHorizontalBar renders a horizontal bar chart entry.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	bar := strings.Repeat("█", barLen)
	return fmt.Sprintf("  %-12s %s", label, mutedStyle.Render(bar))
}

// RenderLimitBar renders a fixed-width bar for a limit's percent used. Usage
// past 100% fills the bar and turns it red.
func RenderLimitBar(pct decimal.Decimal, width int) string {
	if width <= 0 {
		return ""
	}
	f := pct.InexactFloat64() / 100
	style := moneyStyle
	switch {
	case f > 1:
		f = 1
		style = errStyle
	case f >= 0.8:
		style = warnStyle
	case f < 0:
		f = 0
	}
	filled := int(f * float64(width))
	return style.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}
