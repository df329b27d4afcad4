package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/mlclient"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/optimizer"
	"github.com/theirongolddev/bopt/internal/pipeline"
	"github.com/theirongolddev/bopt/internal/store"

	"github.com/spf13/cobra"
)

// modelVersion tags payloads built from the model service's responses.
const modelVersion = "ml-service"

var (
	flagSuggestType       string
	flagSuggestConfidence float64
	flagSuggestFile       string
	flagSuggestPending    bool
	flagSuggestPriorities []string
	flagSuggestMonths     int
	flagSuggestSave       bool
)

var suggestCmd = &cobra.Command{
	Use:     "suggest",
	Aliases: []string{"suggestions"},
	Short:   "Ingest, review and apply optimization suggestions",
	RunE:    runSuggestList,
}

var suggestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suggestions by priority, newest first",
	Args:  cobra.NoArgs,
	RunE:  runSuggestList,
}

var suggestShowCmd = &cobra.Command{
	Use:   "show <suggestion-id>",
	Short: "Show a suggestion's payload",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggestShow,
}

var suggestIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a suggestion payload from a file or stdin",
	Args:  cobra.NoArgs,
	RunE:  runSuggestIngest,
}

var suggestApplyCmd = &cobra.Command{
	Use:   "apply <suggestion-id>",
	Short: "Apply a suggestion's limits and total to its budget",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggestApply,
}

var suggestFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Ask the model service to optimize a budget's allocation",
	Args:  cobra.NoArgs,
	RunE:  runSuggestFetch,
}

var suggestPredictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast spending per category from history",
	Args:  cobra.NoArgs,
	RunE:  runSuggestPredict,
}

var suggestAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze spending patterns with the model service",
	Args:  cobra.NoArgs,
	RunE:  runSuggestAnalyze,
}

var suggestHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the model service",
	Args:  cobra.NoArgs,
	RunE:  runSuggestHealth,
}

func init() {
	suggestIngestCmd.Flags().StringVarP(&flagSuggestType, "type", "t", "RECOMMENDATION", "Suggestion type")
	suggestIngestCmd.Flags().Float64Var(&flagSuggestConfidence, "confidence", 0, "Model confidence 0-1")
	suggestIngestCmd.Flags().StringVarP(&flagSuggestFile, "file", "f", "-", "Payload JSON file (- for stdin)")
	_ = suggestIngestCmd.MarkFlagRequired("confidence")

	suggestListCmd.Flags().BoolVar(&flagSuggestPending, "pending", false, "Only unapplied suggestions")
	suggestFetchCmd.Flags().StringArrayVar(&flagSuggestPriorities, "priority", nil, "Category weight as category=weight (repeatable)")
	suggestPredictCmd.Flags().IntVar(&flagSuggestMonths, "months", 3, "Months to forecast")

	for _, c := range []*cobra.Command{suggestPredictCmd, suggestAnalyzeCmd} {
		c.Flags().BoolVar(&flagSuggestSave, "save", false, "Ingest the result as a suggestion")
	}

	suggestCmd.AddCommand(suggestListCmd, suggestShowCmd, suggestIngestCmd, suggestApplyCmd,
		suggestFetchCmd, suggestPredictCmd, suggestAnalyzeCmd, suggestHealthCmd)
	rootCmd.AddCommand(suggestCmd)
}

func runSuggestList(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		list, err := a.optimizer.List(ctx, store.SuggestionFilter{
			UserID:      a.owner,
			BudgetID:    flagBudget,
			PendingOnly: flagSuggestPending,
		})
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("\n  No suggestions.")
			return nil
		}

		rows := make([][]string, 0, len(list))
		for _, sg := range list {
			state := "pending"
			switch {
			case sg.Applied:
				state = "applied"
			case !a.optimizer.Applicable(sg):
				state = "low confidence"
			}
			rows = append(rows, []string{
				sg.ID,
				string(sg.Type),
				strconv.Itoa(config.Priority(sg.Type)),
				cli.FormatPercent(sg.Confidence),
				cli.FormatMoney(sg.Savings()),
				state,
				sg.CreatedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Suggestions",
			Headers: []string{"ID", "Type", "Pri", "Confidence", "Savings", "State", "Created"},
			Rows:    rows,
		}))
		fmt.Printf("  Apply threshold: %s\n", cli.FormatPercent(a.optimizer.Threshold()))
		return nil
	})
}

func runSuggestShow(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		sg, err := a.optimizer.Get(ctx, args[0])
		if err != nil {
			return err
		}

		rows := [][]string{
			{"ID", sg.ID},
			{"Type", string(sg.Type)},
			{"Budget", sg.BudgetID},
			{"Confidence", cli.FormatPercent(sg.Confidence)},
			{"Applied", strconv.FormatBool(sg.Applied)},
		}
		if total, ok := sg.OptimizedTotal(); ok {
			rows = append(rows, []string{"Optimized total", cli.FormatMoney(total)})
		}
		rows = append(rows, []string{"Predicted savings", cli.FormatMoney(sg.Savings())})
		if sg.Payload.ModelVersion != "" {
			rows = append(rows, []string{"Model", sg.Payload.ModelVersion})
		}
		if len(sg.Payload.RecommendedCategories) > 0 {
			rows = append(rows, []string{"Categories", strings.Join(sg.Payload.RecommendedCategories, ", ")})
		}
		if ids := sg.BusinessIDs(); len(ids) > 0 {
			rows = append(rows, []string{"Businesses", strings.Join(ids, ", ")})
		}

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: rows}))

		if cats := sg.LimitCategories(); len(cats) > 0 {
			limitRows := make([][]string, 0, len(cats))
			for _, c := range cats {
				limitRows = append(limitRows, []string{c, cli.FormatMoney(sg.Payload.SuggestedCategoryLimits[c])})
			}
			fmt.Print(cli.RenderTable(cli.Table{
				Title:   "Suggested Limits",
				Headers: []string{"Category", "Allocated"},
				Rows:    limitRows,
			}))
		}
		for _, msg := range sg.Alerts() {
			fmt.Println("  " + cli.RenderWarning(msg))
		}
		return nil
	})
}

func runSuggestIngest(_ *cobra.Command, _ []string) error {
	var (
		raw []byte
		err error
	)
	if flagSuggestFile == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(flagSuggestFile) //nolint:gosec // payload path is chosen by the local user
	}
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	return withApp(func(ctx context.Context, a *app) error {
		sg, err := ingest(ctx, a, model.SuggestionType(flagSuggestType), flagSuggestConfidence, raw)
		if err != nil {
			return err
		}
		fmt.Printf("  Ingested %s (%s, %s)\n", sg.ID, sg.Type, cli.FormatPercent(sg.Confidence))
		return nil
	})
}

func ingest(ctx context.Context, a *app, typ model.SuggestionType, confidence float64, raw []byte) (model.Suggestion, error) {
	owner, err := a.requireOwner()
	if err != nil {
		return model.Suggestion{}, err
	}
	return a.optimizer.Ingest(ctx, optimizer.NewSuggestion{
		UserID:     owner,
		BudgetID:   flagBudget,
		Type:       typ,
		Confidence: confidence,
		Payload:    raw,
	})
}

func runSuggestApply(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		res, err := a.optimizer.Apply(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("  Applied %s\n", res.Suggestion.ID)
		for _, lim := range res.Limits {
			fmt.Printf("    %s -> %s\n", lim.Category, cli.FormatMoney(lim.Allocated))
		}
		if res.TotalChanged {
			total, _ := res.Suggestion.OptimizedTotal()
			fmt.Printf("    total -> %s\n", cli.FormatMoney(total))
		}
		return nil
	})
}

func newMLClient(a *app) (*mlclient.Client, error) {
	c := mlclient.New(mlclient.Options{
		BaseURL:    a.cfg.ML.BaseURL,
		APIKey:     config.GetMLAPIKey(a.cfg),
		Timeout:    a.cfg.ML.RequestTimeout(),
		MaxRetries: a.cfg.ML.MaxRetries,
		Logger:     a.log,
	})
	if c == nil {
		return nil, fmt.Errorf("model service not configured: set ml.base_url")
	}
	return c, nil
}

func runSuggestFetch(_ *cobra.Command, _ []string) error {
	if flagBudget == "" {
		return fmt.Errorf("--budget is required")
	}
	weights, err := parseWeights(flagSuggestPriorities)
	if err != nil {
		return err
	}

	return withApp(func(ctx context.Context, a *app) error {
		client, err := newMLClient(a)
		if err != nil {
			return err
		}
		l, err := a.ledger.Get(ctx, flagBudget)
		if err != nil {
			return err
		}

		req := mlclient.OptimizeRequest{TotalBudget: l.Budget.Total.InexactFloat64()}
		for _, lim := range l.Limits {
			req.Categories = append(req.Categories, lim.Category)
		}
		if len(req.Categories) == 0 {
			for name := range weights {
				req.Categories = append(req.Categories, name)
			}
		}
		if len(req.Categories) == 0 {
			return fmt.Errorf("budget %s has no limits: pass --priority category=weight", flagBudget)
		}
		sort.Strings(req.Categories)
		if len(weights) > 0 {
			for _, c := range req.Categories {
				w, ok := weights[c]
				if !ok {
					w = 1
				}
				req.Priorities = append(req.Priorities, w)
			}
		}

		resp, err := client.Optimize(ctx, req)
		if err != nil {
			return err
		}
		raw, err := resp.RawPayload(a.cfg.ML.DefaultConfidence, modelVersion)
		if err != nil {
			return err
		}
		sg, err := ingest(ctx, a, model.SuggestionRecommendation, a.cfg.ML.DefaultConfidence, raw)
		if err != nil {
			return err
		}
		fmt.Printf("  Ingested %s with %d suggested limits (savings %s)\n",
			sg.ID, len(sg.Payload.SuggestedCategoryLimits), cli.FormatMoney(sg.Savings()))
		fmt.Printf("  Review with: bopt suggest show %s\n", sg.ID)
		return nil
	})
}

// parseWeights parses repeated category=weight pairs.
func parseWeights(pairs []string) (map[string]int, error) {
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, w, ok := strings.Cut(p, "=")
		n, err := strconv.Atoi(strings.TrimSpace(w))
		if !ok || strings.TrimSpace(name) == "" || err != nil || n < 0 {
			return nil, fmt.Errorf("invalid priority %q: want category=weight", p)
		}
		out[strings.TrimSpace(name)] = n
	}
	return out, nil
}

// historyItems builds the model service's monthly history input.
func historyItems(ctx context.Context, a *app) ([]mlclient.Item, error) {
	expenses, err := a.loadExpenses(ctx)
	if err != nil {
		return nil, err
	}
	since, until := timeRange()
	months := pipeline.AggregateMonths(expenses, since, until)
	items := make([]mlclient.Item, 0, len(months))
	for _, m := range months {
		items = append(items, mlclient.Item{Category: m.Category, Amount: m.Amount.InexactFloat64(), Month: m.Month})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no expenses in the last %d days", flagDays)
	}
	return items, nil
}

func runSuggestPredict(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		client, err := newMLClient(a)
		if err != nil {
			return err
		}
		items, err := historyItems(ctx, a)
		if err != nil {
			return err
		}
		resp, err := client.Predict(ctx, mlclient.PredictRequest{Items: items, MonthsAhead: flagSuggestMonths})
		if err != nil {
			return err
		}

		rows := make([][]string, 0)
		for _, f := range resp.Predictions {
			cats := make([]string, 0, len(f.Predictions))
			for c := range f.Predictions {
				cats = append(cats, c)
			}
			sort.Strings(cats)
			for _, c := range cats {
				rows = append(rows, []string{f.Month, c, cli.FormatMoney(f.Predictions[c])})
			}
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   fmt.Sprintf("Forecast  confidence %s", cli.FormatPercent(resp.Confidence)),
			Headers: []string{"Month", "Category", "Predicted"},
			Rows:    rows,
		}))

		if !flagSuggestSave {
			return nil
		}
		raw, err := json.Marshal(resp.Payload(modelVersion))
		if err != nil {
			return err
		}
		sg, err := ingest(ctx, a, model.SuggestionPrediction, resp.Confidence, raw)
		if err != nil {
			return err
		}
		fmt.Printf("  Saved as %s\n", sg.ID)
		return nil
	})
}

func runSuggestAnalyze(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		client, err := newMLClient(a)
		if err != nil {
			return err
		}
		items, err := historyItems(ctx, a)
		if err != nil {
			return err
		}
		an, err := client.Analyze(ctx, items)
		if err != nil {
			return err
		}

		cats := make([]string, 0, len(an.ByCategory))
		for c := range an.ByCategory {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return an.ByCategory[cats[i]].GreaterThan(an.ByCategory[cats[j]]) })
		rows := make([][]string, 0, len(cats)+2)
		for _, c := range cats {
			rows = append(rows, []string{c, cli.FormatMoney(an.ByCategory[c]), fmt.Sprintf("%.1f%%", an.Percentages[c])})
		}
		rows = append(rows, []string{"---"}, []string{"TOTAL", cli.FormatMoney(an.TotalSpending), ""})

		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Spending Analysis",
			Headers: []string{"Category", "Spent", "Share"},
			Rows:    rows,
		}))
		fmt.Printf("  Highest: %s\n", an.HighestCategory)
		for _, r := range an.Recommendations {
			fmt.Println("  " + cli.RenderMuted("- "+r))
		}

		if !flagSuggestSave {
			return nil
		}
		raw, err := json.Marshal(an.Payload(a.cfg.ML.DefaultConfidence, modelVersion))
		if err != nil {
			return err
		}
		sg, err := ingest(ctx, a, model.SuggestionAnalysis, a.cfg.ML.DefaultConfidence, raw)
		if err != nil {
			return err
		}
		fmt.Printf("  Saved as %s\n", sg.ID)
		return nil
	})
}

func runSuggestHealth(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		client, err := newMLClient(a)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		h, err := client.Health(ctx)
		if err != nil {
			fmt.Printf("  %s: unreachable (%v)\n", a.cfg.ML.BaseURL, err)
			return nil
		}
		fmt.Printf("  %s: %s (%s)\n", a.cfg.ML.BaseURL, h.Status, h.Service)
		return nil
	})
}
