package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Spend by category",
	RunE:  runCategories,
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	sum, err := s.tr.Summary(cfg.Slug)
	if err != nil {
		return err
	}
	if len(sum.Categories) == 0 {
		fmt.Println("\n  No expenses recorded yet.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CATEGORIES  %s", cfg.Name)))
	fmt.Println()

	rows := make([][]string, 0, len(sum.Categories)+2)
	for _, c := range sum.Categories {
		rows = append(rows, []string{c.Category.Label(), s.tr.Money(c.Amount), cli.FormatShare(c.Share)})
	}
	rows = append(rows, []string{"---"}, []string{"Total", s.tr.Money(sum.TotalSpent), "100%"})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Spent", "Share"},
		Rows:    rows,
	}))

	fmt.Println()
	top := sum.Categories[0].Amount
	for _, c := range sum.Categories {
		fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%-14s", c.Category.Label()), c.Amount, top, 30))
	}
	return nil
}
