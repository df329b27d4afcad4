package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/bopt/internal/cli"
	"github.com/theirongolddev/bopt/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagCategoryUsage string
	flagCategoryType  string
	flagCategoryDesc  string
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	Aliases: []string{"categories"},
	Short:   "Manage spending and business categories",
	RunE:    runCategoryList,
}

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCategoryAdd,
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	Args:  cobra.NoArgs,
	RunE:  runCategoryList,
}

func init() {
	categoryAddCmd.Flags().StringVar(&flagCategoryUsage, "usage", "BOTH", "EXPENSE, BUSINESS or BOTH")
	categoryAddCmd.Flags().StringVar(&flagCategoryType, "type", "", "Business type this category belongs to")
	categoryAddCmd.Flags().StringVar(&flagCategoryDesc, "description", "", "Description")

	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd)
	rootCmd.AddCommand(categoryCmd)
}

func runCategoryAdd(_ *cobra.Command, args []string) error {
	usage, err := model.ParseCategoryUsage(flagCategoryUsage)
	if err != nil {
		return err
	}
	var btype model.BusinessType
	if flagCategoryType != "" {
		if btype, err = model.ParseBusinessType(flagCategoryType); err != nil {
			return err
		}
	}

	return withApp(func(ctx context.Context, a *app) error {
		c, err := a.catalog.AddCategory(ctx, model.Category{
			Name:         args[0],
			Usage:        usage,
			BusinessType: btype,
			Description:  flagCategoryDesc,
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Category %s (%s)\n", c.Name, c.Usage)
		return nil
	})
}

func runCategoryList(_ *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		cats, err := a.catalog.Categories(ctx)
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println("\n  No categories yet. Add one with `bopt category add`.")
			return nil
		}
		rows := make([][]string, 0, len(cats))
		for _, c := range cats {
			rows = append(rows, []string{c.Name, string(c.Usage), string(c.BusinessType), c.Description})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Categories",
			Headers: []string{"Name", "Usage", "Business type", "Description"},
			Rows:    rows,
		}))
		return nil
	})
}
