package tui

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/tui/components"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldOwner = iota
	settingsFieldMLURL
	settingsFieldMLKey
	settingsFieldTheme
	settingsFieldThreshold
	settingsFieldNearLimit
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldOwner:
		ti.Placeholder = "owner id"
		ti.SetValue(a.owner)
	case settingsFieldMLURL:
		ti.Placeholder = "http://localhost:8000"
		ti.SetValue(cfg.ML.BaseURL)
	case settingsFieldMLKey:
		ti.Placeholder = "API key (leave empty to clear)"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		ti.SetValue(cfg.ML.APIKey)
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldThreshold:
		ti.Placeholder = "0.70"
		ti.SetValue(strconv.FormatFloat(cfg.Engine.ConfidenceThreshold, 'f', -1, 64))
	case settingsFieldNearLimit:
		ti.Placeholder = "80"
		ti.SetValue(strconv.FormatFloat(cfg.Engine.NearLimitPercent, 'f', -1, 64))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "30 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		reload := a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		if reload {
			a.refreshing = true
			return a, loadDataCmd(a.backend, a.query())
		}
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates and persists the field being edited. It reports
// whether the dashboard data must be reloaded.
func (a *App) settingsSave() bool {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())
	reload := false

	switch a.settings.cursor {
	case settingsFieldOwner:
		cfg.General.OwnerID = val
		reload = val != a.owner
		a.owner = val
	case settingsFieldMLURL:
		if val == "" {
			a.settings.saveErr = fmt.Errorf("base URL must not be empty")
			return false
		}
		cfg.ML.BaseURL = val
	case settingsFieldMLKey:
		cfg.ML.APIKey = val
	case settingsFieldTheme:
		if !slices.Contains(theme.Names(), val) {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return false
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldThreshold:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 1 {
			a.settings.saveErr = fmt.Errorf("threshold must be between 0 and 1")
			return false
		}
		cfg.Engine.ConfidenceThreshold = f
	case settingsFieldNearLimit:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			a.settings.saveErr = fmt.Errorf("near-limit percent must be positive")
			return false
		}
		cfg.Engine.NearLimitPercent = f
	case settingsFieldRefreshInterval:
		n, err := strconv.Atoi(val)
		if err != nil || n < int(minRefreshInterval.Seconds()) {
			a.settings.saveErr = fmt.Errorf("interval must be at least %ds", int(minRefreshInterval.Seconds()))
			return false
		}
		a.refreshInterval = time.Duration(n) * time.Second
		a.settings.saveErr = nil
		return false
	}

	a.settings.saveErr = config.Save(cfg)
	return reload && a.settings.saveErr == nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)

	owner := a.owner
	if owner == "" {
		owner = "(all owners)"
	}
	key := "(not set)"
	if k := config.GetMLAPIKey(cfg); k != "" {
		key = maskKey(k)
	}

	fields := []struct{ label, value string }{
		{"Owner", owner},
		{"ML Base URL", cfg.ML.BaseURL},
		{"ML API Key", key},
		{"Theme", cfg.Appearance.Theme},
		{"Confidence Min", fmt.Sprintf("%.2f", cfg.Engine.ConfidenceThreshold)},
		{"Near Limit", fmt.Sprintf("%.0f%%", cfg.Engine.NearLimitPercent)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	inner := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}
		form.WriteString(components.ListRow(fmt.Sprintf("%-18s %s", f.label+":", f.value), i == a.settings.cursor, inner))
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		form.WriteString("\n")
		form.WriteString(warnStyle.Render("Not saved: " + a.settings.saveErr.Error()))
	} else if a.settings.saved {
		form.WriteString("\n")
		form.WriteString(greenStyle.Render("Saved. Engine settings apply on next start."))
	}
	form.WriteString("\n")
	form.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	var info strings.Builder
	info.WriteString(labelStyle.Render("Store:        ") + valueStyle.Render(a.snap.StorePath) + "\n")
	info.WriteString(labelStyle.Render("Budgets:      ") + valueStyle.Render(cli.FormatNumber(int64(len(a.snap.Budgets)))) + "\n")
	info.WriteString(labelStyle.Render("Suggestions:  ") + valueStyle.Render(cli.FormatNumber(int64(len(a.snap.Suggestions)))) + "\n")
	info.WriteString(labelStyle.Render("Load time:    ") + valueStyle.Render(fmt.Sprintf("%.2fs", a.loadTime.Seconds())) + "\n")
	info.WriteString(labelStyle.Render("Config file:  ") + valueStyle.Render(config.ConfigPath()))

	return components.ContentCard("Settings", form.String(), cw) + "\n" +
		components.ContentCard("General", info.String(), cw)
}

func maskKey(k string) string {
	if len(k) > 12 {
		return k[:6] + "..." + k[len(k)-4:]
	}
	return "****"
}
