package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/tui/components"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderSuggestionsTab(cw, h int) string {
	t := theme.Active
	suggs := a.snap.Suggestions
	if len(suggs) == 0 {
		return components.ContentCard("Suggestions",
			lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).
				Render("No suggestions. Fetch one with `bopt suggest fetch`."), cw)
	}

	listW, detailW := cw, cw
	if cw >= splitWidth {
		listW = cw / 2
		detailW = cw - listW
	}

	list := components.ContentCard(fmt.Sprintf("Suggestions (%d)", len(suggs)), a.renderSuggestionList(listW, h), listW)
	detail := components.ContentCard("Detail", a.renderSuggestionDetail(detailW), detailW)
	if cw >= splitWidth {
		return components.CardRow([]string{list, detail})
	}
	return detail + "\n" + list
}

// suggestionState labels a suggestion the way `bopt suggest list` does.
func suggestionState(s model.Suggestion, threshold float64) string {
	switch {
	case s.Applied:
		return "applied"
	case s.Confidence < threshold:
		return "low confidence"
	default:
		return "pending"
	}
}

func (a App) renderSuggestionList(outer, h int) string {
	inner := components.CardInnerWidth(outer)
	suggs := a.snap.Suggestions
	threshold := loadConfigOrDefault().Engine.ConfidenceThreshold

	visible := h - 4
	if visible < 3 {
		visible = 3
	}
	start := 0
	if a.suggCursor >= visible {
		start = a.suggCursor - visible + 1
	}

	var b strings.Builder
	for i := start; i < len(suggs) && i < start+visible; i++ {
		s := suggs[i]
		line := fmt.Sprintf("%-8s P%d %-20s %4.0f%%  %s",
			cli.ShortID(s.ID), config.Priority(s.Type), truncStr(string(s.Type), 20),
			s.Confidence*100, suggestionState(s, threshold))
		if i > start {
			b.WriteString("\n")
		}
		b.WriteString(components.ListRow(truncStr(line, inner-2), i == a.suggCursor, inner))
	}
	return b.String()
}

func (a App) renderSuggestionDetail(outer int) string {
	t := theme.Active
	s := a.snap.Suggestions[a.suggCursor]
	threshold := loadConfigOrDefault().Engine.ConfidenceThreshold

	head := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	hint := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(head.Render(string(s.Type)))
	b.WriteString(label.Render("  " + s.ID))
	b.WriteString("\n\n")

	budget := s.BudgetID
	if budget == "" {
		budget = "-"
	}
	rows := []struct{ k, v string }{
		{"Budget", budget},
		{"Confidence", fmt.Sprintf("%.2f", s.Confidence)},
		{"State", suggestionState(s, threshold)},
		{"Created", s.CreatedAt.Local().Format("2006-01-02 15:04")},
	}
	if total, ok := s.OptimizedTotal(); ok {
		rows = append(rows, struct{ k, v string }{"Optimized", cli.FormatMoney(total)})
	}
	if sv := s.Savings(); !sv.IsZero() {
		rows = append(rows, struct{ k, v string }{"Savings", cli.FormatMoney(sv)})
	}
	for _, r := range rows {
		b.WriteString(label.Render(fmt.Sprintf("%-11s", r.k)))
		b.WriteString(value.Render(r.v))
		b.WriteString("\n")
	}

	if cats := s.LimitCategories(); len(cats) > 0 {
		b.WriteString("\n")
		b.WriteString(head.Render("Suggested Limits"))
		for _, c := range cats {
			b.WriteString("\n")
			b.WriteString(label.Render(fmt.Sprintf("  %-16s", truncStr(c, 16))))
			b.WriteString(value.Render(cli.FormatMoney(s.Payload.SuggestedCategoryLimits[c])))
		}
		b.WriteString("\n")
	}

	if ids := s.BusinessIDs(); len(ids) > 0 {
		b.WriteString("\n")
		b.WriteString(head.Render("Businesses"))
		for _, id := range ids {
			b.WriteString("\n")
			b.WriteString(value.Render("  " + id))
		}
		b.WriteString("\n")
	}

	for _, al := range s.Alerts() {
		b.WriteString("\n")
		b.WriteString(warn.Render("! " + al))
	}

	if !s.Applied {
		b.WriteString("\n\n")
		b.WriteString(hint.Render("[a] apply"))
	}
	return b.String()
}
