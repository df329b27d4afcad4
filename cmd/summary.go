package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/pipeline"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Spending summary with fees",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		expenses, err := a.loadExpenses(ctx)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			fmt.Println("\n  No expenses found.")
			fmt.Println("  Create a budget with `bopt budget create`, then post or import expenses.")
			return nil
		}

		since, until := timeRange()
		stats := pipeline.Aggregate(expenses, a.fees, since, until)
		if stats.Expenses == 0 {
			fmt.Println("\n  No expenses in the selected time range.")
			return nil
		}

		prevSince := since.Add(-until.Sub(since))
		prev := pipeline.Aggregate(expenses, a.fees, prevSince, since)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING  Last %dd", flagDays)))
		fmt.Println()

		perDay := cli.FormatMoney(stats.PerDay) + "/day"
		if prev.PerDay.IsPositive() {
			perDay += fmt.Sprintf("  (%s vs prev %dd)", cli.FormatDelta(stats.PerDay, prev.PerDay), flagDays)
		}

		rows := [][]string{
			{"Expenses", cli.FormatNumber(int64(stats.Expenses))},
			{"Active days", cli.FormatNumber(int64(stats.ActiveDays))},
			{"Categories", cli.FormatNumber(int64(stats.Categories))},
			{"Businesses", cli.FormatNumber(int64(stats.Businesses))},
			{"---"},
			{"Spent", cli.FormatMoney(stats.Total)},
			{"Fees (est)", cli.FormatMoney(stats.Fees)},
			{"Spent + fees", cli.FormatMoney(stats.TotalWithFees)},
			{"Largest", cli.FormatMoney(stats.Largest)},
			{"Digital share", cli.FormatPercent(stats.DigitalShare)},
			{"---"},
			{"Spend/day", perDay},
		}

		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Metric", "Value"},
			Rows:    rows,
		}))
		return nil
	})
}
