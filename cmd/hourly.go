package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/pipeline"

	"github.com/spf13/cobra"
)

var hourlyCmd = &cobra.Command{
	Use:   "hourly",
	Short: "Spending by hour of day",
	RunE:  runHourly,
}

func init() {
	rootCmd.AddCommand(hourlyCmd)
}

func runHourly(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		expenses, err := a.loadExpenses(ctx)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			fmt.Println("\n  No expenses found.")
			return nil
		}

		since, until := timeRange()
		hours := pipeline.AggregateHourly(expenses, since, until)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING BY HOUR  Last %dd (local time)", flagDays)))
		fmt.Println()

		peak := 0
		for _, h := range hours {
			if h.Amount.GreaterThan(hours[peak].Amount) {
				peak = h.Hour
			}
		}
		maxAmount := hours[peak].Amount.InexactFloat64()

		maxBarWidth := 40
		for _, h := range hours {
			barLen := 0
			if maxAmount > 0 {
				barLen = int(h.Amount.InexactFloat64() / maxAmount * float64(maxBarWidth))
			}
			fmt.Printf("  %02d:00 │ %12s │ %s\n", h.Hour, cli.FormatMoney(h.Amount), strings.Repeat("█", barLen))
		}

		fmt.Printf("\n  Peak: %02d:00 (%s across %s expenses)\n\n",
			peak, cli.FormatMoney(hours[peak].Amount), cli.FormatNumber(int64(hours[peak].Expenses)))
		return nil
	})
}
