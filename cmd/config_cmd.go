package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/config"
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
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := configPath()
	fmt.Printf("  Config file: %s\n", path)
	if _, err := os.Stat(path); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Home currency: %s (%s)\n", cfg.General.HomeCurrency, cfg.General.HomeSymbol)
	if cfg.General.DefaultDestination != "" {
		fmt.Printf("    Default destination: %s\n", cfg.General.DefaultDestination)
	}
	fmt.Printf("    Data directory: %s\n", config.DataDir(cfg))
	if flagDB != "" {
		fmt.Printf("    Database: %s (--db)\n", flagDB)
	} else {
		fmt.Printf("    Database: %s\n", config.DBPath(cfg))
	}
	fmt.Println()

	fmt.Println("  [Remote]")
	if cfg.Remote.Enabled() {
		fmt.Printf("    URL:      %s\n", cfg.Remote.URL)
		if cfg.Remote.APIKey != "" {
			fmt.Printf("    API key:  %s\n", maskAPIKey(cfg.Remote.APIKey))
		} else {
			fmt.Println("    API key:  not configured")
		}
		if cfg.Remote.OwnerID != "" {
			fmt.Printf("    Owner ID: %s\n", cfg.Remote.OwnerID)
		}
		fmt.Printf("    Debounce: %s\n", cfg.Remote.Debounce())
		fmt.Printf("    Timeout:  %s\n", cfg.Remote.Timeout())
		fmt.Printf("    Rate:     %g req/s\n", cfg.Remote.RequestsPerSecond)
	} else {
		fmt.Println("    Sync: disabled (no URL)")
	}
	fmt.Println()

	fmt.Println("  [Alerts]")
	fmt.Printf("    Rotate every: %s\n", cfg.Alerts.RotateInterval())
	fmt.Println()

	fmt.Println("  [Logging]")
	fmt.Printf("    Level:  %s\n", cfg.Logging.Level)
	fmt.Printf("    Format: %s\n", cfg.Logging.Format)
	if cfg.Logging.File != "" {
		fmt.Printf("    File:   %s\n", cfg.Logging.File)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address: %s\n", cfg.Daemon.Addr)
	fmt.Println()

	fmt.Println("  Run `tripburn setup` to reconfigure.")
	return nil
}
