package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/matcher"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	flagMatchLat       float64
	flagMatchLon       float64
	flagMatchRadius    float64
	flagMatchSpend     string
	flagMatchCats      []string
	flagMatchMinRating float64
	flagMatchStrict    bool
	flagMatchLimit     int
	flagHistoryLimit   int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Find nearby businesses you can afford",
	Long: "Find active businesses within a radius whose prices fit the spend.\n" +
		"With --budget the spend is the budget's remaining amount.",
	Args: cobra.NoArgs,
	RunE: runMatch,
}

var matchSelectCmd = &cobra.Command{
	Use:   "select <search-id> <business-id>",
	Short: "Record which business you picked from a search",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatchSelect,
}

var matchHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Args:  cobra.NoArgs,
	RunE:  runMatchHistory,
}

func init() {
	f := matchCmd.Flags()
	f.Float64Var(&flagMatchLat, "lat", 0, "Origin latitude")
	f.Float64Var(&flagMatchLon, "lon", 0, "Origin longitude")
	f.Float64VarP(&flagMatchRadius, "radius", "r", 2000, "Search radius in meters")
	f.StringVar(&flagMatchSpend, "spend", "", "Amount available (ignored with --budget)")
	f.StringSliceVar(&flagMatchCats, "categories", nil, "Only these categories (comma separated)")
	f.Float64Var(&flagMatchMinRating, "min-rating", 0, "Minimum rating 0-5 (0 disables)")
	f.BoolVar(&flagMatchStrict, "strict", false, "Require the spend to fall inside the price range")
	f.IntVar(&flagMatchLimit, "limit", 20, "Max results (0 for all)")
	_ = matchCmd.MarkFlagRequired("lat")
	_ = matchCmd.MarkFlagRequired("lon")

	matchHistoryCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Max searches")

	matchCmd.AddCommand(matchSelectCmd, matchHistoryCmd)
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	q := matcher.Query{
		Origin:       geo.Coordinate{Lat: flagMatchLat, Lon: flagMatchLon},
		RadiusMeters: flagMatchRadius,
		Categories:   flagMatchCats,
		StrictPrice:  flagMatchStrict,
		Limit:        flagMatchLimit,
	}
	if cmd.Flags().Changed("min-rating") {
		r := flagMatchMinRating
		q.MinRating = &r
	}
	if flagBudget == "" {
		if flagMatchSpend == "" {
			return fmt.Errorf("pass --spend or --budget")
		}
		spend, err := parseMoney(flagMatchSpend)
		if err != nil {
			return err
		}
		q.Budget = spend
	}

	return withApp(func(ctx context.Context, a *app) error {
		var (
			res matcher.Result
			err error
		)
		if flagBudget != "" {
			res, err = a.matcher.ForBudget(ctx, a.owner, flagBudget, q)
		} else {
			res, err = a.matcher.Search(ctx, a.owner, q)
		}
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("MATCHES  %s within %s", cli.FormatMoney(res.Budget), formatMeters(q.RadiusMeters))))
		fmt.Println()
		if len(res.Matches) == 0 {
			fmt.Println("  No businesses match.")
			return nil
		}

		rows := make([][]string, 0, len(res.Matches))
		for _, m := range res.Matches {
			b := m.Business
			rows = append(rows, []string{
				b.Name,
				b.ID,
				formatMeters(m.DistanceMeters),
				cli.FormatMoney(b.Price.Min) + " - " + cli.FormatMoney(b.Price.Max),
				formatRating(b.Rating, b.Reviews),
				strings.Join(b.Categories, ","),
			})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Name", "ID", "Distance", "Price", "Rating", "Categories"},
			Rows:    rows,
		}))
		if res.SearchID != "" {
			fmt.Printf("  Search %s. Record your pick with: bopt match select %s <business-id>\n", res.SearchID, res.SearchID)
		}
		return nil
	})
}

func runMatchSelect(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.matcher.Select(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("  Selected %s for search %s\n", args[1], args[0])
		return nil
	})
}

func runMatchHistory(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		owner, err := a.requireOwner()
		if err != nil {
			return err
		}
		history, err := a.matcher.History(ctx, owner, flagHistoryLimit)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("\n  No searches yet.")
			return nil
		}
		rows := make([][]string, 0, len(history))
		for _, h := range history {
			selected := h.SelectedID
			if selected == "" {
				selected = "-"
			}
			rows = append(rows, []string{
				h.At.Local().Format("2006-01-02 15:04"),
				h.ID,
				h.Origin.String(),
				formatMeters(h.RadiusMeters),
				cli.FormatMoney(h.Budget),
				cli.FormatNumber(int64(h.FiltersUsed())),
				cli.FormatNumber(int64(h.Results)),
				selected,
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Search History",
			Headers: []string{"When", "ID", "Origin", "Radius", "Spend", "Filters", "Results", "Picked"},
			Rows:    rows,
		}))
		return nil
	})
}

func formatMeters(m float64) string {
	if m >= 1000 {
		return decimal.NewFromFloat(m/1000).StringFixed(1) + " km"
	}
	return decimal.NewFromFloat(m).StringFixed(0) + " m"
}
