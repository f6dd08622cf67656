package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/registry"
)

var (
	flagDestCurrency string
	flagDestSymbol   string
	flagDestRate     float64
	flagDestDays     int
	flagDestFlag     string
	flagDestBudget   float64
	flagDestNoSelect bool
)

var destCmd = &cobra.Command{
	Use:     "dest",
	Aliases: []string{"destinations"},
	Short:   "Manage destinations",
	RunE:    runDestList,
}

var destListCmd = &cobra.Command{
	Use:   "list",
	Short: "List destinations",
	Args:  cobra.NoArgs,
	RunE:  runDestList,
}

var destAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a destination",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDestAdd,
}

var destRemoveCmd = &cobra.Command{
	Use:     "remove <slug>",
	Aliases: []string{"rm"},
	Short:   "Remove a destination and its expenses",
	Args:    cobra.ExactArgs(1),
	RunE:    runDestRemove,
}

var destUseCmd = &cobra.Command{
	Use:   "use <slug>",
	Short: "Make a destination active",
	Args:  cobra.ExactArgs(1),
	RunE:  runDestUse,
}

func init() {
	destAddCmd.Flags().StringVar(&flagDestCurrency, "currency", "", "Local currency code, e.g. VND")
	destAddCmd.Flags().StringVar(&flagDestSymbol, "symbol", "", "Local currency symbol")
	destAddCmd.Flags().Float64Var(&flagDestRate, "rate", 0, "Local units per one home unit")
	destAddCmd.Flags().IntVar(&flagDestDays, "days", 0, "Planned number of days")
	destAddCmd.Flags().StringVar(&flagDestFlag, "flag", "", "Flag emoji")
	destAddCmd.Flags().Float64Var(&flagDestBudget, "budget", 0, "Total budget in home currency")
	destAddCmd.Flags().BoolVar(&flagDestNoSelect, "no-select", false, "Keep the current active destination")

	destCmd.AddCommand(destListCmd, destAddCmd, destRemoveCmd, destUseCmd)
	rootCmd.AddCommand(destCmd)
}

func runDestList(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	dests := s.tr.Destinations()
	if len(dests) == 0 {
		fmt.Println("\n  No destinations. Add one with: tripburn dest add <name>")
		return nil
	}

	active := s.tr.Active()
	rows := make([][]string, 0, len(dests))
	for _, d := range dests {
		mark := ""
		if d.Slug == active {
			mark = "●"
		}
		spent, budget := "-", "-"
		if sum, err := s.tr.Summary(d.Slug); err == nil {
			spent = s.tr.Money(sum.TotalSpent)
			if sum.Budget > 0 {
				budget = s.tr.Money(sum.Budget)
			}
		}
		synced := ""
		if d.RemoteID != "" {
			synced = "✓"
		}
		rows = append(rows, []string{
			mark,
			d.Flag + " " + d.Name,
			d.Slug,
			fmt.Sprintf("%s %s", d.CurrencyCode, strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", d.ExchangeRate), "0"), ".")),
			cli.FormatDays(d.PlannedDurationDays),
			budget,
			spent,
			synced,
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Destinations",
		Headers: []string{"", "Name", "Slug", "Rate", "Plan", "Budget", "Spent", "Synced"},
		Rows:    rows,
	}))
	return nil
}

func runDestAdd(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	prev := s.tr.Active()
	cfg, err := s.tr.AddDestination(registry.AddParams{
		Name:                strings.Join(args, " "),
		CurrencyCode:        flagDestCurrency,
		CurrencySymbol:      flagDestSymbol,
		ExchangeRate:        flagDestRate,
		PlannedDurationDays: flagDestDays,
		Flag:                flagDestFlag,
	})
	if err != nil {
		return err
	}
	if flagDestBudget > 0 {
		if err := s.tr.SetBudget(cfg.Slug, flagDestBudget); err != nil {
			return err
		}
	}
	if !flagDestNoSelect && prev != cfg.Slug {
		if err := s.tr.Select(cfg.Slug); err != nil {
			return err
		}
	}

	fmt.Printf("  Added %s %s (%s)\n", cfg.Flag, cfg.Name, cfg.Slug)
	fmt.Printf("  Currency: %s %s at %g per home unit, %s planned\n",
		cfg.CurrencyCode, cfg.CurrencySymbol, cfg.ExchangeRate, cli.FormatDays(cfg.PlannedDurationDays))
	return nil
}

func runDestRemove(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := s.ctx()
	defer cancel()
	slug := registry.Slugify(args[0])
	if err := s.tr.RemoveDestination(ctx, slug); err != nil {
		return err
	}
	fmt.Printf("  Removed %s\n", slug)
	if a := s.tr.Active(); a != "" {
		fmt.Printf("  Active destination: %s\n", a)
	}
	return nil
}

func runDestUse(_ *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	slug := registry.Slugify(args[0])
	if err := s.tr.Select(slug); err != nil {
		return err
	}
	cfg, err := s.tr.Destination(slug)
	if err != nil {
		return err
	}
	fmt.Printf("  Active destination: %s %s\n", cfg.Flag, cfg.Name)
	return nil
}
