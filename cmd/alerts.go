package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Budget alerts and insights",
	RunE:  runAlerts,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	alerts, err := s.tr.AlertsFor(cfg.Slug)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ALERTS  %s", cfg.Name)))
	fmt.Println()
	for _, a := range alerts {
		fmt.Printf("  %s\n", cli.RenderAlert(a))
	}
	fmt.Println()
	return nil
}
