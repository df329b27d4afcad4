package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"

	"github.com/spf13/cobra"
)

var flagStatusWithin time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show open budgets, limit alerts and pending suggestions",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().DurationVar(&flagStatusWithin, "within", 72*time.Hour, "Expiry warning window")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		budgets, err := a.ledger.List(ctx, store.BudgetFilter{
			OwnerID: a.owner,
			Statuses: []model.BudgetStatus{
				model.StatusDraft, model.StatusActive, model.StatusPaused, model.StatusExceeded,
			},
		})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle("BUDGET STATUS"))
		fmt.Println()

		if len(budgets) == 0 {
			fmt.Println("  No open budgets. Create one with `bopt budget create`.")
			fmt.Println()
		} else if err := printOpenBudgets(ctx, a, budgets); err != nil {
			return err
		}

		alerts, err := a.ledger.NearLimits(ctx, a.owner)
		if err != nil {
			return err
		}
		if len(alerts) > 0 {
			rows := make([][]string, 0, len(alerts))
			for _, al := range alerts {
				state := "near"
				if al.Over {
					state = "over"
				}
				rows = append(rows, []string{
					al.BudgetName,
					al.Category,
					cli.FormatMoney(al.Spent) + " / " + cli.FormatMoney(al.Allocated),
					cli.RenderLimitBar(al.PercentUsed, 20),
					cli.RenderUsage(al.PercentUsed, a.ledger.Options().NearLimitPercent),
					state,
				})
			}
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   "Limit Alerts",
				Headers: []string{"Budget", "Category", "Spent", "Bar", "Used", "State"},
				Rows:    rows,
			}))
		}

		expiring, err := a.ledger.Expiring(ctx, a.owner, flagStatusWithin)
		if err != nil {
			return err
		}
		now := time.Now()
		for _, b := range expiring {
			fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("%s ends in %s (%s)",
				b.Name, cli.FormatDaysLeft(b.End, now), cli.FormatDate(b.End))))
		}
		if len(expiring) > 0 {
			fmt.Println()
		}

		pending, err := a.store.Suggestions(ctx, store.SuggestionFilter{UserID: a.owner, PendingOnly: true})
		if err != nil {
			return err
		}
		fmt.Printf("  Pending suggestions: %d\n\n", len(pending))
		return nil
	})
}

func printOpenBudgets(ctx context.Context, a *app, budgets []model.Budget) error {
	now := time.Now()
	rows := make([][]string, 0, len(budgets))
	for _, b := range budgets {
		l, err := a.ledger.Get(ctx, b.ID)
		if err != nil {
			return err
		}
		sum := a.ledger.Summarize(l)
		used := cli.PercentOf(sum.Spent, b.Total)
		rows = append(rows, []string{
			cli.ShortID(b.ID),
			b.Name,
			cli.RenderStatus(b.Status),
			cli.FormatMoney(sum.Spent) + " / " + cli.FormatMoney(b.Total),
			cli.RenderLimitBar(used, 20),
			cli.RenderMoney(sum.Remaining),
			cli.FormatDaysLeft(b.End, now),
			fmt.Sprintf("%d", sum.Alerts),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Open Budgets",
		Headers: []string{"ID", "Name", "Status", "Spent", "Bar", "Remaining", "Left", "Alerts"},
		Rows:    rows,
	}))
	return nil
}
