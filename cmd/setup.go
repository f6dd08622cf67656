package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/tui"
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
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	fmt.Println()
	fmt.Println("  Welcome to tripburn!")
	fmt.Println()
	if n := len(s.tr.Destinations()); n > 0 {
		fmt.Printf("  %d destinations in %s\n\n", n, s.db.Path())
	}

	cfg, err := tui.RunSetup(s.cfgPath, s.tr)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", s.cfgPath)
	fmt.Printf("  Home currency: %s (%s)\n", cfg.General.HomeCurrency, cfg.General.HomeSymbol)
	if cfg.Remote.Enabled() {
		fmt.Println("  Sync: enabled, run `tripburn sync pull` to fetch existing destinations")
	}
	fmt.Println("  Run `tripburn setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

// confirm asks a yes/no question on the terminal.
func confirm(question string) bool {
	ok := false
	if err := huh.NewConfirm().Title(question).Value(&ok).Run(); err != nil {
		return false
	}
	return ok
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
