package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/tui/components"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	snap := a.snap
	var b strings.Builder

	// Row 1: headline cards over open budgets
	var open, exceeded int
	spent, total := decimal.Zero, decimal.Zero
	for _, bv := range snap.Budgets {
		if bv.Summary.Budget.Status.Terminal() {
			continue
		}
		open++
		if bv.Summary.Budget.Status == model.StatusExceeded {
			exceeded++
		}
		spent = spent.Add(bv.Summary.Spent)
		total = total.Add(bv.Summary.Budget.Total)
	}

	openDelta := "none exceeded"
	if exceeded > 0 {
		openDelta = fmt.Sprintf("%d exceeded", exceeded)
	}
	pending := 0
	for _, s := range snap.Suggestions {
		if !s.Applied {
			pending++
		}
	}

	openTone, pendingTone := components.ToneGood, components.ToneNeutral
	if exceeded > 0 {
		openTone = components.ToneOver
	}
	if pending > 0 {
		pendingTone = components.ToneWatch
	}
	used := cli.PercentOf(spent, total).InexactFloat64() / 100

	b.WriteString(components.MetricCards([]components.Metric{
		{Label: "Open Budgets", Value: cli.FormatNumber(int64(open)), Note: openDelta, Tone: openTone},
		{Label: "Spent", Value: cli.FormatCompact(spent), Note: "of " + cli.FormatCompact(total)},
		{Label: "Remaining", Value: cli.FormatCompact(total.Sub(spent)),
			Note: cli.FormatUsage(cli.PercentOf(spent, total)) + " used", Tone: components.UsageTone(used, a.nearFraction())},
		{Label: fmt.Sprintf("Last %dd", a.days), Value: cli.FormatCompact(snap.Spend.Total),
			Note: cli.FormatMoney(snap.Spend.PerDay) + "/day"},
		{Label: "Suggestions", Value: cli.FormatNumber(int64(pending)), Note: "pending", Tone: pendingTone},
	}, cw))
	b.WriteString("\n")

	// Row 2: daily spend trend
	if len(snap.Daily) > 0 {
		vals := make([]float64, len(snap.Daily))
		for i, d := range snap.Daily {
			vals[len(snap.Daily)-1-i] = d.Amount.InexactFloat64()
		}
		labels := chartDateLabels(snap.Daily)
		muted := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

		var body strings.Builder
		body.WriteString(components.Sparkline(vals, t.Accent))
		body.WriteString("\n")
		body.WriteString(muted.Render(fmt.Sprintf("%s … %s   busiest %s",
			labels[0], labels[len(labels)-1], busiestDay(snap.Daily))))
		b.WriteString(components.ContentCard("Daily Spend", body.String(), cw))
		b.WriteString("\n")
	}

	// Row 3: alerts beside top categories
	widths := components.LayoutRow(cw, 2)
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Limit Alerts", a.renderAlerts(widths[0]), widths[0]),
		components.ContentCard("Top Categories", a.renderTopCategories(widths[1]), widths[1]),
	}))

	// Row 4: expiring budgets
	if len(snap.Expiring) > 0 {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		now := time.Now()
		var body strings.Builder
		for i, bud := range snap.Expiring {
			if i > 0 {
				body.WriteString("\n")
			}
			body.WriteString(warn.Render(fmt.Sprintf("%-24s ends in %s (%s)",
				truncStr(bud.Name, 24), cli.FormatDaysLeft(bud.End, now), cli.FormatDate(bud.End))))
		}
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Expiring Soon", body.String(), cw))
	}

	return b.String()
}

func (a App) renderAlerts(outer int) string {
	t := theme.Active
	if len(a.snap.Alerts) == 0 {
		return lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface).Render("All limits within range")
	}
	inner := components.CardInnerWidth(outer)
	barW := inner - 14 - 1 - 1 - 5 - 2 - 8
	if barW < 6 {
		barW = 6
	}
	var b strings.Builder
	for i, al := range a.snap.Alerts {
		if i > 0 {
			b.WriteString("\n")
		}
		pct := al.PercentUsed.InexactFloat64() / 100
		b.WriteString(components.LimitBar(al.Category, pct, a.nearFraction(), cli.FormatCompact(al.Spent), 14, barW))
	}
	return b.String()
}

func (a App) renderTopCategories(outer int) string {
	t := theme.Active
	cats := a.snap.Categories
	if len(cats) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No spending in window")
	}
	if len(cats) > 6 {
		cats = cats[:6]
	}
	inner := components.CardInnerWidth(outer)
	barW := inner - 14 - 1 - 1 - 10
	if barW < 4 {
		barW = 4
	}
	peak := cats[0].Amount.InexactFloat64()
	var b strings.Builder
	for i, c := range cats {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(components.HBar(c.Category, c.Amount.InexactFloat64(), peak,
			cli.FormatCompact(c.Amount), 14, barW, t.Blue))
	}
	return b.String()
}

func busiestDay(days []model.DailySpend) string {
	best := -1
	for i, d := range days {
		if best < 0 || d.Amount.GreaterThan(days[best].Amount) {
			best = i
		}
	}
	if best < 0 || days[best].Amount.IsZero() {
		return "-"
	}
	return days[best].Date.Format("Jan 2") + " " + cli.FormatMoney(days[best].Amount)
}
