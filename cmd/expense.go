package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/pipeline"

	"github.com/spf13/cobra"
)

var (
	flagExpenseMethod   string
	flagExpenseBusiness string
	flagExpenseAt       string
	flagExpenseNote     string
	flagExpenseID       string
	flagExpenseLimit    int
	flagImportDryRun    bool
)

var expenseCmd = &cobra.Command{
	Use:     "expense",
	Aliases: []string{"expenses"},
	Short:   "Post, retract and import expenses",
	RunE:    runExpenseList,
}

var expensePostCmd = &cobra.Command{
	Use:   "post <budget-id> <category> <amount>",
	Short: "Post an expense against an ACTIVE or EXCEEDED budget",
	Args:  cobra.ExactArgs(3),
	RunE:  runExpensePost,
}

var expenseRetractCmd = &cobra.Command{
	Use:   "retract <expense-id>",
	Short: "Retract a posted expense and refund its limit",
	Args:  cobra.ExactArgs(1),
	RunE:  runExpenseRetract,
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runExpenseList,
}

var expenseCheckCmd = &cobra.Command{
	Use:   "can-afford <budget-id> <category> <amount>",
	Short: "Check whether an amount fits in a category's remaining allocation",
	Args:  cobra.ExactArgs(3),
	RunE:  runExpenseCheck,
}

var expenseImportCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Import expenses from JSONL files",
	Long: "Import expenses from a .jsonl file or a directory of them. Each line is an\n" +
		"expense object, or {\"type\":\"retract\",\"id\":...}. Re-importing is harmless.",
	Args: cobra.ExactArgs(1),
	RunE: runExpenseImport,
}

func init() {
	expensePostCmd.Flags().StringVarP(&flagExpenseMethod, "method", "m", "", "Payment method (default OTHER)")
	expensePostCmd.Flags().StringVar(&flagExpenseBusiness, "business", "", "Business id")
	expensePostCmd.Flags().StringVar(&flagExpenseAt, "at", "", "When the expense happened (default now)")
	expensePostCmd.Flags().StringVar(&flagExpenseNote, "note", "", "Free-form note")
	expensePostCmd.Flags().StringVar(&flagExpenseID, "id", "", "Idempotency id (generated when empty)")

	expenseListCmd.Flags().IntVar(&flagExpenseLimit, "limit", 50, "Max rows (0 for all)")
	expenseImportCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "Parse only, post nothing")

	expenseCmd.AddCommand(expensePostCmd, expenseRetractCmd, expenseListCmd, expenseCheckCmd, expenseImportCmd)
	rootCmd.AddCommand(expenseCmd)
}

func runExpensePost(_ *cobra.Command, args []string) error {
	amount, err := parseMoney(args[2])
	if err != nil {
		return err
	}
	method, err := model.ParsePaymentMethod(flagExpenseMethod)
	if err != nil {
		return err
	}
	at, err := parseWhen(flagExpenseAt)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		e, err := a.ledger.Post(ctx, ledger.NewExpense{
			ID:         flagExpenseID,
			BudgetID:   args[0],
			Category:   args[1],
			OwnerID:    a.owner,
			BusinessID: flagExpenseBusiness,
			Amount:     amount,
			Method:     method,
			At:         at,
			Note:       flagExpenseNote,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Posted %s to %s (%s)\n", cli.FormatMoney(e.Amount), e.Category, e.ID)
		if charged := a.fees.TotalWithFee(e.Method, e.At, e.Amount); !charged.Equal(e.Amount) {
			fmt.Printf("  Charged %s with %s fees\n", cli.FormatMoney(charged), e.Method)
		}

		l, err := a.ledger.Get(ctx, e.BudgetID)
		if err != nil {
			return err
		}
		near := a.ledger.Options().NearLimitPercent
		if lim := l.Limit(e.Category); lim != nil {
			switch {
			case lim.OverLimit():
				fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("%s is over its limit (%s)", e.Category, cli.FormatUsage(lim.PercentUsed()))))
			case lim.NearLimit(near):
				fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("%s is near its limit (%s)", e.Category, cli.FormatUsage(lim.PercentUsed()))))
			}
		}
		if l.Budget.Status == model.StatusExceeded {
			fmt.Println("  " + cli.RenderWarning(fmt.Sprintf("budget %s is EXCEEDED (%s remaining)", l.Budget.Name, cli.FormatMoney(l.Remaining()))))
		}
		return nil
	})
}

func runExpenseRetract(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.ledger.Retract(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("  Retracted %s\n", args[0])
		return nil
	})
}

func runExpenseList(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		expenses, err := a.loadExpenses(ctx)
		if err != nil {
			return err
		}
		since, until := timeRange()
		expenses = pipeline.FilterByTime(expenses, since, until)
		if len(expenses) == 0 {
			fmt.Println("\n  No expenses found.")
			return nil
		}
		sortNewestFirst(expenses)
		if flagExpenseLimit > 0 && len(expenses) > flagExpenseLimit {
			expenses = expenses[:flagExpenseLimit]
		}

		rows := make([][]string, 0, len(expenses))
		for _, e := range expenses {
			rows = append(rows, []string{
				e.At.Local().Format("2006-01-02 15:04"),
				e.ID,
				e.Category,
				string(e.Method),
				cli.FormatMoney(e.Amount),
				e.Note,
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Expenses  Last %dd", flagDays),
			Headers: []string{"When", "ID", "Category", "Method", "Amount", "Note"},
			Rows:    rows,
		}))
		return nil
	})
}

func runExpenseCheck(_ *cobra.Command, args []string) error {
	amount, err := parseMoney(args[2])
	if err != nil {
		return err
	}
	return withApp(func(ctx context.Context, a *app) error {
		ok, err := a.ledger.CanAfford(ctx, args[0], args[1], amount)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("  Yes: %s fits in %s\n", cli.FormatMoney(amount), args[1])
		} else {
			fmt.Printf("  No: %s exceeds what is left in %s\n", cli.FormatMoney(amount), args[1])
		}
		return nil
	})
}

func runExpenseImport(_ *cobra.Command, args []string) error {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", args[0])
	}
	loaded, err := pipeline.Load(args[0], flagBudget, progress("Parsing"))
	if err != nil {
		return err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s records from %d files (%d batches)    \n",
			formatNumber(int64(len(loaded.Records))), loaded.ParsedFiles, loaded.BatchCount)
	}
	if loaded.TotalFiles == 0 {
		fmt.Println("\n  No .jsonl files found.")
		return nil
	}
	if flagImportDryRun {
		fmt.Printf("  Dry run: %d records, %d parse errors\n", len(loaded.Records), loaded.ParseErrors)
		return nil
	}

	return withApp(func(ctx context.Context, a *app) error {
		res := pipeline.Import(ctx, a.ledger, loaded.Records, progress("Posting"))
		if !flagQuiet {
			fmt.Fprintln(os.Stderr)
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Import",
			Headers: []string{"Result", "Count"},
			Rows: [][]string{
				{"Posted", formatNumber(int64(res.Posted))},
				{"Retracted", formatNumber(int64(res.Retracted))},
				{"Duplicates", formatNumber(int64(res.Duplicates))},
				{"Missing", formatNumber(int64(res.Missing))},
				{"Rejected", formatNumber(int64(res.Rejected))},
				{"---"},
				{"Parse errors", formatNumber(int64(loaded.ParseErrors))},
				{"Unreadable files", formatNumber(int64(loaded.FileErrors))},
			},
		}))
		for _, msg := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", msg)
		}
		return nil
	})
}

// sortNewestFirst orders expenses by time, newest first, then by id.
func sortNewestFirst(expenses []model.Expense) {
	sort.Slice(expenses, func(i, j int) bool {
		if !expenses[i].At.Equal(expenses[j].At) {
			return expenses[i].At.After(expenses[j].At)
		}
		return expenses[i].ID < expenses[j].ID
	})
}
