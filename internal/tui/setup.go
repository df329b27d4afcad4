package tui

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// setupValues backs the first-run form fields.
type setupValues struct {
	Owner      string
	MLBaseURL  string
	MLAPIKey   string
	Theme      string
	AutoRevert bool
}

func defaultSetupValues(cfg config.Config) setupValues {
	return setupValues{
		Owner:      cfg.General.OwnerID,
		MLBaseURL:  cfg.ML.BaseURL,
		MLAPIKey:   cfg.ML.APIKey,
		Theme:      cfg.Appearance.Theme,
		AutoRevert: cfg.Engine.AutoRevertExceeded,
	}
}

// newSetupForm builds the wizard shared by `bopt setup` and the dashboard's
// first run.
func newSetupForm(budgetCount int, storePath string, vals *setupValues) *huh.Form {
	welcome := fmt.Sprintf("Store: %s", storePath)
	if budgetCount > 0 {
		welcome = fmt.Sprintf("Found %d budgets in %s", budgetCount, storePath)
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to bopt").
				Description(welcome+"\n\nA few settings and you're ready."),
			huh.NewInput().
				Title("Owner id").
				Description("Budgets, expenses and suggestions are scoped to this owner.").
				Value(&vals.Owner).
				Validate(validateOwner),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("ML service URL").
				Description("Where `bopt suggest fetch` sends optimization requests.").
				Value(&vals.MLBaseURL).
				Validate(validateBaseURL),
			huh.NewInput().
				Title("ML API key").
				Description("Optional. BOPT_ML_API_KEY overrides it.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.MLAPIKey),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&vals.Theme),
			huh.NewConfirm().
				Title("Return EXCEEDED budgets to ACTIVE when spend drops back?").
				Value(&vals.AutoRevert),
		),
	).WithShowHelp(true)
}

func validateOwner(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("owner id is required")
	}
	return nil
}

func validateBaseURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL")
	}
	return nil
}

// applySetup copies form values onto cfg.
func applySetup(cfg *config.Config, vals setupValues) {
	cfg.General.OwnerID = strings.TrimSpace(vals.Owner)
	cfg.ML.BaseURL = strings.TrimRight(strings.TrimSpace(vals.MLBaseURL), "/")
	cfg.ML.APIKey = strings.TrimSpace(vals.MLAPIKey)
	cfg.Appearance.Theme = vals.Theme
	cfg.Engine.AutoRevertExceeded = vals.AutoRevert
}

func (a *App) saveSetupConfig() error {
	cfg := loadConfigOrDefault()
	applySetup(&cfg, a.setupVals)
	if err := config.Save(cfg); err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)
	a.owner = cfg.General.OwnerID
	return nil
}

// RunSetup runs the setup form standalone and saves the result.
func RunSetup(budgetCount int, storePath string) (config.Config, error) {
	cfg := loadConfigOrDefault()
	vals := defaultSetupValues(cfg)
	if err := newSetupForm(budgetCount, storePath, &vals).Run(); err != nil {
		return cfg, err
	}
	applySetup(&cfg, vals)
	if err := config.Save(cfg); err != nil {
		return cfg, fmt.Errorf("saving config: %w", err)
	}
	return cfg, nil
}
