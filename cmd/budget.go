package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagBudgetName   string
	flagBudgetTotal  string
	flagBudgetPeriod string
	flagBudgetStart  string
	flagBudgetEnd    string
	flagBudgetLimits []string
	flagBudgetStatus []string
	flagWithin       time.Duration
)

var budgetCmd = &cobra.Command{
	Use:     "budget",
	Aliases: []string{"budgets"},
	Short:   "Create, inspect and transition budgets",
	RunE:    runBudgetList,
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a DRAFT budget",
	Args:  cobra.NoArgs,
	RunE:  runBudgetCreate,
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets",
	Args:  cobra.NoArgs,
	RunE:  runBudgetList,
}

var budgetShowCmd = &cobra.Command{
	Use:   "show <budget-id>",
	Short: "Show a budget with its limits",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetShow,
}

var budgetSetLimitCmd = &cobra.Command{
	Use:   "set-limit <budget-id> <category> <amount>",
	Short: "Set a category limit on a DRAFT or PAUSED budget",
	Args:  cobra.ExactArgs(3),
	RunE:  runBudgetSetLimit,
}

var budgetSetTotalCmd = &cobra.Command{
	Use:   "set-total <budget-id> <amount>",
	Short: "Change the total of a DRAFT or PAUSED budget",
	Args:  cobra.ExactArgs(2),
	RunE:  runBudgetSetTotal,
}

var budgetDeleteCmd = &cobra.Command{
	Use:   "delete <budget-id>",
	Short: "Delete a budget with its limits and expenses",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetDelete,
}

var budgetAlertsCmd = &cobra.Command{
	Use:   "alerts [budget-id]",
	Short: "Show limits near or over their allocation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBudgetAlerts,
}

var budgetExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List open budgets ending soon",
	Args:  cobra.NoArgs,
	RunE:  runBudgetExpiring,
}

func init() {
	budgetCreateCmd.Flags().StringVar(&flagBudgetName, "name", "", "Budget name")
	budgetCreateCmd.Flags().StringVar(&flagBudgetTotal, "total", "", "Total amount")
	budgetCreateCmd.Flags().StringVar(&flagBudgetPeriod, "period", "MONTHLY", "DAILY, WEEKLY, BIWEEKLY, MONTHLY, QUARTERLY, BIANNUAL, YEARLY or CUSTOM")
	budgetCreateCmd.Flags().StringVar(&flagBudgetStart, "start", "", "Start date (default now)")
	budgetCreateCmd.Flags().StringVar(&flagBudgetEnd, "end", "", "End date (default derived from period)")
	budgetCreateCmd.Flags().StringArrayVarP(&flagBudgetLimits, "limit", "l", nil, "Category limit as category=amount (repeatable)")
	_ = budgetCreateCmd.MarkFlagRequired("name")
	_ = budgetCreateCmd.MarkFlagRequired("total")

	budgetListCmd.Flags().StringSliceVar(&flagBudgetStatus, "status", nil, "Filter by status (repeatable)")
	budgetExpiringCmd.Flags().DurationVar(&flagWithin, "within", 72*time.Hour, "Look-ahead window")

	budgetCmd.AddCommand(budgetCreateCmd, budgetListCmd, budgetShowCmd,
		budgetSetLimitCmd, budgetSetTotalCmd, budgetDeleteCmd,
		budgetAlertsCmd, budgetExpiringCmd)

	for _, t := range []struct {
		use, short string
		fn         func(*ledger.Service, context.Context, string) (model.Budget, error)
	}{
		{"activate", "Start spending against a DRAFT or PAUSED budget", (*ledger.Service).Activate},
		{"pause", "Pause an ACTIVE or EXCEEDED budget", (*ledger.Service).Pause},
		{"complete", "Close a budget as COMPLETED", (*ledger.Service).Complete},
		{"cancel", "Cancel a budget", (*ledger.Service).Cancel},
		{"archive", "Archive a finished budget", (*ledger.Service).Archive},
	} {
		budgetCmd.AddCommand(transitionCmd(t.use, t.short, t.fn))
	}

	rootCmd.AddCommand(budgetCmd)
}

func transitionCmd(use, short string, fn func(*ledger.Service, context.Context, string) (model.Budget, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <budget-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				b, err := fn(a.ledger, ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("  %s  %s  %s\n", b.ID, b.Name, cli.RenderStatus(b.Status))
				return nil
			})
		},
	}
}

func runBudgetCreate(_ *cobra.Command, _ []string) error {
	total, err := parseMoney(flagBudgetTotal)
	if err != nil {
		return err
	}
	period, err := model.ParsePeriod(flagBudgetPeriod)
	if err != nil {
		return err
	}
	start, err := parseWhen(flagBudgetStart)
	if err != nil {
		return err
	}
	end, err := parseWhen(flagBudgetEnd)
	if err != nil {
		return err
	}
	limits, err := parseLimits(flagBudgetLimits)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		owner, err := a.requireOwner()
		if err != nil {
			return err
		}
		b, err := a.ledger.Create(ctx, ledger.NewBudget{
			OwnerID: owner,
			Name:    flagBudgetName,
			Total:   total,
			Period:  period,
			Start:   start,
			End:     end,
			Limits:  limits,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Created budget %s (%s)\n", b.ID, cli.RenderStatus(b.Status))
		fmt.Printf("  %s  %s to %s\n", cli.FormatMoney(b.Total), cli.FormatDate(b.Start), cli.FormatDate(b.End))
		fmt.Printf("  Activate with: bopt budget activate %s\n", b.ID)
		return nil
	})
}

func runBudgetList(_ *cobra.Command, _ []string) error {
	var statuses []model.BudgetStatus
	for _, s := range flagBudgetStatus {
		st, err := model.ParseBudgetStatus(s)
		if err != nil {
			return err
		}
		statuses = append(statuses, st)
	}

	return withApp(func(ctx context.Context, a *app) error {
		budgets, err := a.ledger.List(ctx, store.BudgetFilter{OwnerID: a.owner, Statuses: statuses})
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Println("\n  No budgets found.")
			return nil
		}

		now := time.Now()
		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			l, err := a.ledger.Get(ctx, b.ID)
			if err != nil {
				return err
			}
			sum := a.ledger.Summarize(l)
			rows = append(rows, []string{
				b.ID,
				b.Name,
				cli.RenderStatus(b.Status),
				cli.FormatMoney(b.Total),
				cli.FormatMoney(sum.Spent),
				cli.RenderMoney(sum.Remaining),
				cli.FormatNumber(int64(sum.Alerts)),
				cli.FormatDaysLeft(b.End, now),
			})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Budgets",
			Headers: []string{"ID", "Name", "Status", "Total", "Spent", "Remaining", "Alerts", "Left"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBudgetShow(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		l, err := a.ledger.Get(ctx, args[0])
		if err != nil {
			return err
		}
		b := l.Budget
		sum := a.ledger.Summarize(l)
		near := a.ledger.Options().NearLimitPercent

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("%s  %s", b.Name, b.Status)))
		fmt.Println()

		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Field", "Value"},
			Rows: [][]string{
				{"ID", b.ID},
				{"Owner", b.OwnerID},
				{"Status", cli.RenderStatus(b.Status)},
				{"Period", string(b.Period)},
				{"Window", cli.FormatDate(b.Start) + " to " + cli.FormatDate(b.End)},
				{"Days left", cli.FormatDaysLeft(b.End, time.Now())},
				{"---"},
				{"Total", cli.FormatMoney(b.Total)},
				{"Allocated", cli.FormatMoney(sum.Allocated)},
				{"Spent", cli.FormatMoney(sum.Spent)},
				{"Remaining", cli.RenderMoney(sum.Remaining)},
				{"Expenses", cli.FormatNumber(int64(sum.Expenses))},
			},
		}))

		if len(l.Limits) == 0 {
			return nil
		}
		limits := append([]model.CategoryLimit(nil), l.Limits...)
		sort.Slice(limits, func(i, j int) bool { return limits[i].Category < limits[j].Category })

		rows := make([][]string, 0, len(limits))
		for _, lim := range limits {
			pct := lim.PercentUsed()
			rows = append(rows, []string{
				lim.Category,
				cli.FormatMoney(lim.Allocated),
				cli.FormatMoney(lim.Spent),
				cli.RenderMoney(lim.Remaining()),
				cli.RenderUsage(pct, near),
				cli.RenderLimitBar(pct, 16),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Category Limits",
			Headers: []string{"Category", "Allocated", "Spent", "Remaining", "Used", ""},
			Rows:    rows,
		}))
		return nil
	})
}

func runBudgetSetLimit(_ *cobra.Command, args []string) error {
	amount, err := parseMoney(args[2])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		lim, err := a.ledger.SetLimit(ctx, args[0], args[1], amount)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %s allocated, %s spent\n", lim.Category, cli.FormatMoney(lim.Allocated), cli.FormatMoney(lim.Spent))
		return nil
	})
}

func runBudgetSetTotal(_ *cobra.Command, args []string) error {
	total, err := parseMoney(args[1])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		b, err := a.ledger.SetTotal(ctx, args[0], total)
		if err != nil {
			return err
		}
		fmt.Printf("  %s total is now %s\n", b.Name, cli.FormatMoney(b.Total))
		return nil
	})
}

func runBudgetDelete(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.ledger.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("  Deleted budget %s\n", args[0])
		return nil
	})
}

func runBudgetAlerts(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		var (
			alerts []ledger.LimitAlert
			err    error
		)
		if len(args) == 1 {
			alerts, err = a.ledger.Alerts(ctx, args[0])
		} else {
			alerts, err = a.ledger.NearLimits(ctx, a.owner)
		}
		if err != nil {
			return err
		}

		near := a.ledger.Options().NearLimitPercent
		rows := make([][]string, 0, len(alerts))
		for _, al := range alerts {
			state := "ok"
			switch {
			case al.Over:
				state = "OVER"
			case al.Near:
				state = "near"
			}
			rows = append(rows, []string{
				al.BudgetName,
				al.Category,
				cli.FormatMoney(al.Spent),
				cli.FormatMoney(al.Allocated),
				cli.RenderUsage(al.PercentUsed, near),
				state,
			})
		}
		if len(rows) == 0 {
			fmt.Println("\n  No limits near their allocation.")
			return nil
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Limit Alerts",
			Headers: []string{"Budget", "Category", "Spent", "Allocated", "Used", "State"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBudgetExpiring(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		budgets, err := a.ledger.Expiring(ctx, a.owner, flagWithin)
		if err != nil {
			return err
		}
		if len(budgets) == 0 {
			fmt.Printf("\n  No budgets end within %s.\n", flagWithin)
			return nil
		}
		now := time.Now()
		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			rows = append(rows, []string{
				b.ID, b.Name, cli.RenderStatus(b.Status),
				b.End.Local().Format("2006-01-02 15:04"), cli.FormatDaysLeft(b.End, now),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Ending Soon",
			Headers: []string{"ID", "Name", "Status", "Ends", "Left"},
			Rows:    rows,
		}))
		return nil
	})
}
