package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily spending, against the budget's daily allowance with --budget",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		expenses, err := a.loadExpenses(ctx)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			fmt.Println("\n  No expenses found.")
			return nil
		}

		// With a budget, each day is judged against total spread over the period.
		var allowance decimal.Decimal
		if flagBudget != "" {
			l, err := a.ledger.Get(ctx, flagBudget)
			if err != nil {
				return err
			}
			allowance = config.DailyBudget(l.Budget.Period, l.Budget.Total)
		}

		since, until := timeRange()
		days := pipeline.AggregateDays(expenses, a.fees, since, until)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY SPENDING  Last %dd", flagDays)))
		fmt.Println()

		headers := []string{"Date", "Day", "Expenses", "Spent", "Fees"}
		if allowance.IsPositive() {
			headers = append(headers, "vs Allowance")
		}
		rows := make([][]string, 0, len(days))
		trend := make([]float64, len(days))
		over := 0
		for i, d := range days {
			row := []string{
				d.Date.Format("2006-01-02"),
				cli.FormatDayOfWeek(int(d.Date.Weekday())),
				cli.FormatNumber(int64(d.Expenses)),
				cli.FormatMoney(d.Amount),
				cli.FormatMoney(d.Fees),
			}
			if allowance.IsPositive() {
				row = append(row, renderAllowance(d, allowance))
				if d.Amount.GreaterThan(allowance) {
					over++
				}
			}
			rows = append(rows, row)
			trend[len(days)-1-i] = d.Amount.InexactFloat64()
		}

		fmt.Print(cli.RenderTable(cli.Table{Headers: headers, Rows: rows}))
		fmt.Printf("\n  Trend  %s  (oldest to newest)\n", cli.RenderSparkline(trend))
		if allowance.IsPositive() {
			fmt.Printf("  Allowance %s/day, exceeded on %d of %d days\n", cli.FormatMoney(allowance), over, len(days))
		}
		fmt.Println()
		return nil
	})
}

// renderAllowance shows a day's spend relative to the daily allowance.
func renderAllowance(d model.DailySpend, allowance decimal.Decimal) string {
	diff := allowance.Sub(d.Amount)
	if diff.IsNegative() {
		return cli.RenderWarning(cli.FormatMoney(diff.Neg()) + " over")
	}
	return cli.RenderMuted(cli.FormatMoney(diff) + " under")
}
