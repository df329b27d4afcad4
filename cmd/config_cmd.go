// Package cmd implements the bopt CLI commands.
package cmd

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/bopt/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Store:      %s\n", config.StorePath(cfg))
	if cfg.General.OwnerID != "" {
		fmt.Printf("    Owner:      %s\n", cfg.General.OwnerID)
	} else {
		fmt.Println("    Owner:      not configured")
	}
	fmt.Printf("    Log:        %s (%s)\n", cfg.General.LogLevel, cfg.General.LogFormat)
	fmt.Println()

	fmt.Println("  [Engine]")
	fmt.Printf("    Confidence threshold: %.2f\n", cfg.Engine.ConfidenceThreshold)
	fmt.Printf("    Near-limit alert:     %.0f%%\n", cfg.Engine.NearLimitPercent)
	fmt.Printf("    Auto-create limits:   %v\n", cfg.Engine.AutoCreateLimits)
	fmt.Printf("    Auto-revert exceeded: %v\n", cfg.Engine.AutoRevertExceeded)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Addr:     %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Daemon.SweepEvery())
	fmt.Printf("    Events:   %d buffered\n", cfg.Daemon.EventsBuffer)
	fmt.Println()

	fmt.Println("  [ML]")
	fmt.Printf("    Base URL:   %s\n", cfg.ML.BaseURL)
	if apiKey := config.GetMLAPIKey(cfg); apiKey != "" {
		fmt.Printf("    API key:    %s\n", maskAPIKey(apiKey))
	} else {
		fmt.Println("    API key:    not configured")
	}
	fmt.Printf("    Timeout:    %s (%d retries)\n", cfg.ML.RequestTimeout(), cfg.ML.MaxRetries)
	fmt.Printf("    Confidence: %.2f default\n", cfg.ML.DefaultConfidence)
	fmt.Println()

	fmt.Println("  [Account]")
	fmt.Printf("    Tier: %s\n", cfg.Account.Tier)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	if len(cfg.Fees.Overrides) > 0 {
		fmt.Println("  [Fees]")
		methods := make([]string, 0, len(cfg.Fees.Overrides))
		for m := range cfg.Fees.Overrides {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Printf("    %-14s %.2f%%\n", m, cfg.Fees.Overrides[m])
		}
		fmt.Println()
	}

	fmt.Println("  Run `bopt setup` to reconfigure.")
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
