package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/bopt/internal/catalog"
	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/matcher"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/optimizer"
	"github.com/theirongolddev/bopt/internal/pipeline"
	"github.com/theirongolddev/bopt/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagDays     int
	flagBudget   string
	flagCategory string
	flagOwner    string
	flagStore    string
	flagQuiet    bool
	flagLogLevel string

	// logOutput redirects service logs; the dashboard points it at a file.
	logOutput string
)

var rootCmd = &cobra.Command{
	Use:           "bopt",
	Short:         "Budget optimization engine",
	Long:          "Track budgets and expenses, match nearby businesses, and apply optimization suggestions.",
	RunE:          runSummary,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 30, "Time window in days")
	rootCmd.PersistentFlags().StringVarP(&flagBudget, "budget", "b", "", "Filter to a budget id")
	rootCmd.PersistentFlags().StringVarP(&flagCategory, "category", "c", "", "Filter to category (substring match)")
	rootCmd.PersistentFlags().StringVarP(&flagOwner, "owner", "o", "", "Owner id (defaults to general.owner_id)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "Database path (defaults to general.store_path)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// app bundles the services every command works against.
type app struct {
	cfg       config.Config
	log       *zap.Logger
	store     store.Store
	ledger    *ledger.Service
	catalog   *catalog.Service
	matcher   *matcher.Service
	optimizer *optimizer.Service
	fees      config.FeeSchedule
	owner     string
	storePath string
}

// openApp loads config, opens the store, and wires the services. Ledger
// events go to onEvent when it is non-nil.
func openApp(onEvent func(ledger.Event)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.General.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logging.New(logging.Config{Level: level, Format: cfg.General.LogFormat, Output: logOutput})
	if err != nil {
		return nil, err
	}

	path := flagStore
	if path == "" {
		path = config.StorePath(cfg)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}

	opts := ledger.OptionsFromConfig(cfg.Engine)
	opts.Logger = log
	opts.OnEvent = onEvent
	l := ledger.New(st, opts)
	c := catalog.New(st, log)

	owner := flagOwner
	if owner == "" {
		owner = cfg.General.OwnerID
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		ledger:  l,
		catalog: c,
		matcher: matcher.NewService(c, l, st, log),
		optimizer: optimizer.New(st, l, optimizer.Options{
			Threshold: cfg.Engine.ConfidenceThreshold,
			Logger:    log,
		}),
		fees:      config.NewFeeSchedule(cfg.Fees),
		owner:     owner,
		storePath: path,
	}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.store.Close()
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

// requireOwner returns the effective owner id or explains how to set one.
func (a *app) requireOwner() (string, error) {
	if a.owner == "" {
		return "", fmt.Errorf("no owner id: pass --owner or run `bopt setup`")
	}
	return a.owner, nil
}

// loadExpenses reads expenses matching the global filters.
func (a *app) loadExpenses(ctx context.Context) ([]model.Expense, error) {
	expenses, err := a.store.Expenses(ctx, store.ExpenseFilter{
		BudgetID: flagBudget,
		OwnerID:  a.owner,
	})
	if err != nil {
		return nil, err
	}
	if flagCategory != "" {
		expenses = pipeline.FilterByCategory(expenses, flagCategory)
	}
	return expenses, nil
}

// timeRange returns the window selected by --days.
func timeRange() (time.Time, time.Time) {
	now := time.Now()
	return now.AddDate(0, 0, -flagDays), now
}

func progress(label string) pipeline.ProgressFunc {
	return func(current, total int) {
		if flagQuiet {
			return
		}
		if current%100 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  %s %s", label, cli.RenderProgressBar(current, total, 24))
		}
	}
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
