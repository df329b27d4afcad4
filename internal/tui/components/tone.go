package components

import (
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tone classifies a value for coloring.
type Tone int

const (
	ToneNeutral Tone = iota
	ToneGood
	ToneWatch
	ToneNear
	ToneOver
)

// UsageTone grades a used fraction against the near-limit fraction. Spend
// starts being watched at 60% of the near-limit line.
func UsageTone(used, near float64) Tone {
	if near <= 0 {
		near = 0.8
	}
	switch {
	case used > 1:
		return ToneOver
	case used >= near:
		return ToneNear
	case used >= near*0.6:
		return ToneWatch
	default:
		return ToneGood
	}
}

// Color maps the tone onto the active theme.
func (t Tone) Color() lipgloss.Color {
	th := theme.Active
	switch t {
	case ToneGood:
		return th.Green
	case ToneWatch:
		return th.Yellow
	case ToneNear:
		return th.Orange
	case ToneOver:
		return th.Red
	default:
		return th.TextPrimary
	}
}
