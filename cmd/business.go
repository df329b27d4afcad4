package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/theirongolddev/bopt/internal/catalog"
	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagBizType     string
	flagBizLat      float64
	flagBizLon      float64
	flagBizAddress  string
	flagBizCity     string
	flagBizCountry  string
	flagBizMin      string
	flagBizMax      string
	flagBizAvg      string
	flagBizCats     []string
	flagBizAll      bool
	flagReviewNote  string
	flagReviewCheck bool
)

var businessCmd = &cobra.Command{
	Use:     "business",
	Aliases: []string{"businesses", "biz"},
	Short:   "Manage the business catalog and reviews",
	RunE:    runBusinessList,
}

var businessAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register an active business",
	Args:  cobra.ExactArgs(1),
	RunE:  runBusinessAdd,
}

var businessListCmd = &cobra.Command{
	Use:   "list",
	Short: "List businesses",
	Args:  cobra.NoArgs,
	RunE:  runBusinessList,
}

var businessShowCmd = &cobra.Command{
	Use:   "show <business-id>",
	Short: "Show a business with review stats",
	Args:  cobra.ExactArgs(1),
	RunE:  runBusinessShow,
}

var businessReviewCmd = &cobra.Command{
	Use:   "review <business-id> <score>",
	Short: "Review a business with a 1-5 score",
	Args:  cobra.ExactArgs(2),
	RunE:  runBusinessReview,
}

var businessUnreviewCmd = &cobra.Command{
	Use:   "unreview <review-id>",
	Short: "Remove a review",
	Args:  cobra.ExactArgs(1),
	RunE:  runBusinessUnreview,
}

func init() {
	f := businessAddCmd.Flags()
	f.StringVar(&flagBizType, "type", "", "RESTAURANTE, GIMNASIO, ABASTO, PANADERIA, TIENDA or VENDEDOR_AMBULANTE")
	f.Float64Var(&flagBizLat, "lat", 0, "Latitude")
	f.Float64Var(&flagBizLon, "lon", 0, "Longitude")
	f.StringVar(&flagBizAddress, "address", "", "Street address")
	f.StringVar(&flagBizCity, "city", "", "City")
	f.StringVar(&flagBizCountry, "country", "", "Country")
	f.StringVar(&flagBizMin, "min-price", "0", "Cheapest offering")
	f.StringVar(&flagBizMax, "max-price", "0", "Most expensive offering")
	f.StringVar(&flagBizAvg, "avg-price", "", "Typical price")
	f.StringSliceVar(&flagBizCats, "categories", nil, "Categories (comma separated)")
	_ = businessAddCmd.MarkFlagRequired("type")
	_ = businessAddCmd.MarkFlagRequired("lat")
	_ = businessAddCmd.MarkFlagRequired("lon")

	businessListCmd.Flags().BoolVar(&flagBizAll, "all", false, "Include inactive businesses")
	businessReviewCmd.Flags().StringVar(&flagReviewNote, "comment", "", "Review text")
	businessReviewCmd.Flags().BoolVar(&flagReviewCheck, "verified", false, "Mark as a verified purchase")

	businessCmd.AddCommand(businessAddCmd, businessListCmd, businessShowCmd,
		businessReviewCmd, businessUnreviewCmd,
		activeCmd("activate", "Reactivate a business", true),
		activeCmd("deactivate", "Hide a business from matching", false))
	rootCmd.AddCommand(businessCmd)
}

func activeCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <business-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				b, err := a.catalog.SetActive(ctx, args[0], active)
				if err != nil {
					return err
				}
				fmt.Printf("  %s active=%v\n", b.Name, b.Active)
				return nil
			})
		},
	}
}

func runBusinessAdd(_ *cobra.Command, args []string) error {
	btype, err := model.ParseBusinessType(flagBizType)
	if err != nil {
		return err
	}
	price := model.PriceRange{}
	if price.Min, err = parseMoney(flagBizMin); err != nil {
		return err
	}
	if price.Max, err = parseMoney(flagBizMax); err != nil {
		return err
	}
	if flagBizAvg != "" {
		if price.Avg, err = parseMoney(flagBizAvg); err != nil {
			return err
		}
	}

	return withApp(func(ctx context.Context, a *app) error {
		b, err := a.catalog.AddBusiness(ctx, catalog.NewBusiness{
			Name:       args[0],
			Type:       btype,
			Location:   geo.Coordinate{Lat: flagBizLat, Lon: flagBizLon},
			Address:    flagBizAddress,
			City:       flagBizCity,
			Country:    flagBizCountry,
			Price:      price,
			Categories: flagBizCats,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Registered %s (%s)\n", b.Name, b.ID)
		return nil
	})
}

func runBusinessList(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		businesses, err := a.store.Businesses(ctx, !flagBizAll)
		if err != nil {
			return err
		}
		if len(businesses) == 0 {
			fmt.Println("\n  No businesses yet. Add one with `bopt business add`.")
			return nil
		}
		rows := make([][]string, 0, len(businesses))
		for _, b := range businesses {
			rows = append(rows, []string{
				b.Name,
				b.ID,
				string(b.Type),
				b.City,
				cli.FormatMoney(b.Price.Min) + " - " + cli.FormatMoney(b.Price.Max),
				formatRating(b.Rating, b.Reviews),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Businesses",
			Headers: []string{"Name", "ID", "Type", "City", "Price", "Rating"},
			Rows:    rows,
		}))
		return nil
	})
}

func runBusinessShow(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		b, err := a.catalog.Business(ctx, args[0])
		if err != nil {
			return err
		}
		st, err := a.catalog.Stats(ctx, b.ID, time.Now().AddDate(0, 0, -flagDays))
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(cli.RenderTitle(b.Name))
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"Field", "Value"},
			Rows: [][]string{
				{"ID", b.ID},
				{"Type", string(b.Type)},
				{"Active", strconv.FormatBool(b.Active)},
				{"Location", b.Location.String()},
				{"Address", b.Address},
				{"City", b.City},
				{"Categories", fmt.Sprint(b.Categories)},
				{"---"},
				{"Price range", cli.FormatMoney(b.Price.Min) + " - " + cli.FormatMoney(b.Price.Max)},
				{"Typical price", cli.FormatMoney(config.AdjustedPrice(b.Type, b.Price.Midpoint()))},
				{"---"},
				{"Rating", formatRating(st.Average, st.Count)},
				{"Positive", cli.FormatNumber(int64(st.Positive))},
				{fmt.Sprintf("Last %dd", flagDays), cli.FormatNumber(int64(st.Recent))},
				{"Verified", cli.FormatNumber(int64(st.Verified))},
			},
		}))
		return nil
	})
}

func runBusinessReview(_ *cobra.Command, args []string) error {
	score, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid score %q", args[1])
	}
	return withApp(func(ctx context.Context, a *app) error {
		owner, err := a.requireOwner()
		if err != nil {
			return err
		}
		r, err := a.catalog.AddReview(ctx, catalog.NewReview{
			BusinessID: args[0],
			UserID:     owner,
			Score:      score,
			Comment:    flagReviewNote,
			Verified:   flagReviewCheck,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Review %s recorded\n", r.ID)
		return nil
	})
}

func runBusinessUnreview(_ *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.catalog.RemoveReview(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("  Review %s removed\n", args[0])
		return nil
	})
}

func formatRating(r *float64, n int) string {
	if r == nil {
		return "unrated"
	}
	return fmt.Sprintf("%.1f (%d)", *r, n)
}
