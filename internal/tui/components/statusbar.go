package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar. notice, when set, replaces
// the key hints.
func RenderStatusBar(width int, owner, dataAge, notice string, refreshing bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	left := " [?]help  [r]efresh  [q]uit"
	if notice != "" {
		left = " " + notice
	}

	var right []string
	if owner != "" {
		right = append(right, "owner "+owner)
	}
	switch {
	case refreshing:
		right = append(right, "refreshing...")
	case dataAge != "":
		right = append(right, fmt.Sprintf("loaded in %s", dataAge))
	}
	r := strings.Join(right, "  ") + " "

	padding := width - lipgloss.Width(left) - lipgloss.Width(r)
	if padding < 0 {
		padding = 0
	}
	return style.Render(left + strings.Repeat(" ", padding) + r)
}
