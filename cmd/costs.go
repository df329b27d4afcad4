package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/pipeline"

	"github.com/spf13/cobra"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Spending breakdown by payment method and category",
	RunE:  runCosts,
}

func init() {
	rootCmd.AddCommand(costsCmd)
}

func runCosts(_ *cobra.Command, _ []string) error {
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
		totals, methods := pipeline.AggregateMethods(expenses, a.fees, since, until)
		if len(methods) == 0 {
			fmt.Println("\n  No expenses in the selected time range.")
			return nil
		}
		prev := pipeline.Aggregate(expenses, a.fees, since.Add(-until.Sub(since)), since)

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("COST BREAKDOWN  Last %dd", flagDays)))
		fmt.Println()

		methodRows := make([][]string, 0, len(methods)+2)
		for _, m := range methods {
			kind := "cash"
			if config.IsDigital(m.Method) {
				kind = "digital"
			}
			methodRows = append(methodRows, []string{
				string(m.Method),
				kind,
				cli.FormatNumber(int64(m.Expenses)),
				cli.FormatMoney(m.Amount),
				cli.FormatMoney(m.Fees),
				fmt.Sprintf("%.2f%%", m.FeePercent),
			})
		}
		methodRows = append(methodRows, []string{"---"})
		methodRows = append(methodRows, []string{"TOTAL", "", "", cli.FormatMoney(totals.Amount), cli.FormatMoney(totals.Fees), ""})

		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Payment Method",
			Headers: []string{"Method", "Kind", "Expenses", "Spent", "Fees", "Rate"},
			Rows:    methodRows,
		}))

		// Period comparison
		if prev.TotalWithFees.IsPositive() {
			curr := totals.TotalWithFees.InexactFloat64()
			maxCost := curr
			if p := prev.TotalWithFees.InexactFloat64(); p > maxCost {
				maxCost = p
			}
			fmt.Printf("  Period Comparison\n")
			fmt.Printf("  This %dd %s  %s\n", flagDays,
				cli.RenderHorizontalBar("", curr, maxCost, 30), cli.FormatMoney(totals.TotalWithFees))
			fmt.Printf("  Prev %dd %s  %s\n\n", flagDays,
				cli.RenderHorizontalBar("", prev.TotalWithFees.InexactFloat64(), maxCost, 30), cli.FormatMoney(prev.TotalWithFees))
		}

		cats := pipeline.AggregateCategories(expenses, since, until)
		catRows := make([][]string, 0, len(cats))
		for _, c := range cats {
			catRows = append(catRows, []string{
				c.Category,
				cli.FormatNumber(int64(c.Expenses)),
				cli.FormatMoney(c.Amount),
				fmt.Sprintf("%.1f%%", c.SharePercent),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Category",
			Headers: []string{"Category", "Expenses", "Spent", "Share"},
			Rows:    catRows,
		}))
		return nil
	})
}
