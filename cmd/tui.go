package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/pipeline"
	"github.com/theirongolddev/bopt/internal/store"
	"github.com/theirongolddev/bopt/internal/tui"
	"github.com/theirongolddev/bopt/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	flagTUIAutoRefresh bool
	flagTUIRefresh     time.Duration
	flagTUIExpiring    time.Duration
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUIAutoRefresh, "auto-refresh", true, "Reload data periodically")
	tuiCmd.Flags().DurationVar(&flagTUIRefresh, "refresh", 30*time.Second, "Auto-refresh interval (minimum 10s)")
	tuiCmd.Flags().DurationVar(&flagTUIExpiring, "expiring", 72*time.Hour, "Expiry warning window")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	// Service logs would tear the alt screen; send them to a file.
	if err := os.MkdirAll(config.DataDir(), 0o750); err != nil {
		return err
	}
	logOutput = filepath.Join(config.DataDir(), "tui.log")

	needSetup := !config.Exists()
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	theme.SetActive(a.cfg.Appearance.Theme)

	// Force TrueColor so background styling always produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	dash := tui.NewApp(dashboard{a: a, expiring: flagTUIExpiring}, tui.Options{
		Owner:           a.owner,
		Days:            flagDays,
		NeedSetup:       needSetup,
		AutoRefresh:     flagTUIAutoRefresh,
		RefreshInterval: flagTUIRefresh,
	})
	p := tea.NewProgram(dash, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// dashboard serves the TUI from the wired services.
type dashboard struct {
	a        *app
	expiring time.Duration
}

func (d dashboard) Snapshot(ctx context.Context, q tui.Query) (tui.Snapshot, error) {
	a := d.a
	snap := tui.Snapshot{
		StorePath: a.storePath,
		NearLimit: a.ledger.Options().NearLimitPercent,
	}

	budgets, err := a.ledger.List(ctx, store.BudgetFilter{OwnerID: q.Owner})
	if err != nil {
		return snap, err
	}
	sortForDashboard(budgets)
	for _, b := range budgets {
		if b.Status == model.StatusArchived {
			continue
		}
		l, err := a.ledger.Get(ctx, b.ID)
		if err != nil {
			return snap, err
		}
		snap.Budgets = append(snap.Budgets, tui.BudgetView{
			Summary: a.ledger.Summarize(l),
			Limits:  tui.SortLimits(l.Limits),
		})
	}

	if snap.Alerts, err = a.ledger.NearLimits(ctx, q.Owner); err != nil {
		return snap, err
	}
	if snap.Expiring, err = a.ledger.Expiring(ctx, q.Owner, d.expiring); err != nil {
		return snap, err
	}
	if snap.Suggestions, err = a.optimizer.List(ctx, store.SuggestionFilter{UserID: q.Owner}); err != nil {
		return snap, err
	}

	expenses, err := a.store.Expenses(ctx, store.ExpenseFilter{OwnerID: q.Owner})
	if err != nil {
		return snap, err
	}
	now := time.Now()
	since := now.AddDate(0, 0, -q.Days)
	snap.Spend = pipeline.Aggregate(expenses, a.fees, since, now)
	snap.Daily = pipeline.AggregateDays(expenses, a.fees, since, now)
	snap.Categories = pipeline.AggregateCategories(expenses, since, now)
	return snap, nil
}

func (d dashboard) Apply(ctx context.Context, suggestionID string) error {
	_, err := d.a.optimizer.Apply(ctx, suggestionID)
	return err
}

// sortForDashboard puts open budgets first, then orders by end date and name.
func sortForDashboard(budgets []model.Budget) {
	sort.SliceStable(budgets, func(i, j int) bool {
		ti, tj := budgets[i].Status.Terminal(), budgets[j].Status.Terminal()
		if ti != tj {
			return !ti
		}
		ei, ej := budgets[i].End, budgets[j].End
		if !ei.Equal(ej) {
			if ei.IsZero() || ej.IsZero() {
				return ej.IsZero()
			}
			return ei.Before(ej)
		}
		return budgets[i].Name < budgets[j].Name
	})
}
