package cmd

import (
	"context"
	"fmt"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/store"
	"github.com/theirongolddev/bopt/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()
	path := flagStore
	if path == "" {
		path = config.StorePath(cfg)
	}

	// Counting budgets is a courtesy; a missing or locked store is not fatal.
	count := 0
	if st, err := store.Open(path); err == nil {
		if budgets, err := st.Budgets(context.Background(), store.BudgetFilter{}); err == nil {
			count = len(budgets)
		}
		_ = st.Close()
	}

	saved, err := tui.RunSetup(count, path)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Printf("  Owner: %s\n", saved.General.OwnerID)
	fmt.Println("  Run `bopt setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
