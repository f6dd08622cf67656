package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
)

var budgetCmd = &cobra.Command{
	Use:   "budget <amount>",
	Short: "Set the total budget in home currency",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudget,
}

var daysCmd = &cobra.Command{
	Use:   "days <n>",
	Short: "Set the planned number of days",
	Args:  cobra.ExactArgs(1),
	RunE:  runDays,
}

func init() {
	rootCmd.AddCommand(budgetCmd, daysCmd)
}

func runBudget(_ *cobra.Command, args []string) error {
	amount, err := parseAmountArg(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	if err := s.tr.SetBudget(cfg.Slug, amount); err != nil {
		return err
	}
	sum, err := s.tr.Summary(cfg.Slug)
	if err != nil {
		return err
	}
	fmt.Printf("  %s budget: %s\n", cfg.Name, s.tr.Money(sum.Budget))
	if sum.HasDailyTarget {
		fmt.Printf("  Daily target: %s over %s\n", s.tr.Money(sum.DailyTarget), cli.FormatDays(sum.DurationDays))
	}
	return nil
}

func runDays(_ *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number of days %q", args[0])
	}
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	if err := s.tr.SetDuration(cfg.Slug, n); err != nil {
		return err
	}
	sum, err := s.tr.Summary(cfg.Slug)
	if err != nil {
		return err
	}
	fmt.Printf("  %s: %s planned\n", cfg.Name, cli.FormatDays(sum.DurationDays))
	if sum.HasDailyTarget {
		fmt.Printf("  Daily target: %s\n", s.tr.Money(sum.DailyTarget))
	}
	return nil
}
