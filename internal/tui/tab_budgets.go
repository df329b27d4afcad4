package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/tui/components"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

const splitWidth = 120

func (a App) renderBudgetsTab(cw, h int) string {
	t := theme.Active
	budgets := a.snap.Budgets
	if len(budgets) == 0 {
		return components.ContentCard("Budgets",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
				Render("No budgets yet. Create one with `bopt budget create`."), cw)
	}

	listW, detailW := cw, cw
	if cw >= splitWidth {
		listW = cw * 2 / 5
		detailW = cw - listW
	}

	list := components.ContentCard(fmt.Sprintf("Budgets (%d)", len(budgets)), a.renderBudgetList(listW, h), listW)
	detail := components.ContentCard("Detail", a.renderBudgetDetail(detailW), detailW)
	if cw >= splitWidth {
		return components.CardRow([]string{list, detail})
	}
	return detail + "\n" + list
}

func (a App) renderBudgetList(outer, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outer)
	budgets := a.snap.Budgets

	// Keep the cursor visible when the list is taller than the card.
	visible := h - 4
	if visible < 3 {
		visible = 3
	}
	start := 0
	if a.budgetCursor >= visible {
		start = a.budgetCursor - visible + 1
	}

	nameW := inner - 2 - 10 - 1 - 9
	if nameW < 8 {
		nameW = 8
	}
	var b strings.Builder
	for i := start; i < len(budgets) && i < start+visible; i++ {
		bud := budgets[i].Summary.Budget
		status := lipgloss.NewStyle().Foreground(t.Status(bud.Status)).Background(t.Surface).Render(fmt.Sprintf("%-10s", bud.Status))
		line := fmt.Sprintf("%-*s %s %8s", nameW, truncStr(bud.Name, nameW), status,
			cli.FormatUsage(cli.PercentOf(budgets[i].Summary.Spent, bud.Total)))
		if i > start {
			b.WriteString("\n")
		}
		b.WriteString(components.ListRow(line, i == a.budgetCursor, inner))
	}
	return b.String()
}

func (a App) renderBudgetDetail(outer int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outer)
	bv := a.snap.Budgets[a.budgetCursor]
	sum := bv.Summary
	bud := sum.Budget

	head := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(head.Render(bud.Name))
	b.WriteString(label.Render("  " + bud.ID))
	b.WriteString("\n\n")

	rows := []struct{ k, v string }{
		{"Status", cli.RenderStatus(bud.Status)},
		{"Period", string(bud.Period)},
		{"Window", cli.FormatDate(bud.Start) + " to " + cli.FormatDate(bud.End)},
		{"Days left", cli.FormatDaysLeft(bud.End, time.Now())},
		{"Total", cli.FormatMoney(bud.Total)},
		{"Allocated", cli.FormatMoney(sum.Allocated)},
		{"Spent", cli.FormatMoney(sum.Spent)},
		{"Remaining", cli.RenderMoney(sum.Remaining)},
		{"Expenses", cli.FormatNumber(int64(sum.Expenses))},
	}
	for _, r := range rows {
		b.WriteString(label.Render(fmt.Sprintf("%-11s", r.k)))
		b.WriteString(value.Render(r.v))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(components.SpendBar(cli.PercentOf(sum.Spent, bud.Total).InexactFloat64()/100, a.nearFraction(), inner-6))
	b.WriteString("\n")

	if len(bv.Limits) == 0 {
		b.WriteString("\n")
		b.WriteString(label.Render("No category limits"))
		return b.String()
	}

	b.WriteString("\n")
	b.WriteString(head.Render("Category Limits"))
	barW := inner - 14 - 1 - 1 - 5 - 2 - 16
	if barW < 6 {
		barW = 6
	}
	for _, lim := range bv.Limits {
		b.WriteString("\n")
		note := cli.FormatMoney(lim.Remaining()) + " left"
		if lim.OverLimit() {
			note = cli.FormatMoney(lim.Remaining().Neg()) + " over"
		}
		b.WriteString(components.LimitBar(lim.Category, lim.PercentUsed().InexactFloat64()/100, a.nearFraction(), note, 14, barW))
	}
	return b.String()
}
