package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/model"
)

var flagDailyLimit int

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Spend per day against the daily target",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().IntVarP(&flagDailyLimit, "limit", "n", 0, "Show only the most recent n days")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(_ *cobra.Command, _ []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.close()

	cfg, err := s.destination()
	if err != nil {
		return noDestinationHint(err)
	}
	days, err := s.tr.Days(cfg.Slug)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		fmt.Println("\n  No expenses recorded yet.")
		return nil
	}
	if flagDailyLimit > 0 && len(days) > flagDailyLimit {
		days = days[:flagDailyLimit]
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY SPEND  %s", cfg.Name)))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	totals := make([]float64, len(days))
	for i, d := range days {
		totals[len(days)-1-i] = d.Total
		target, used, variance := "-", "-", "-"
		if d.Target > 0 {
			target = s.tr.Money(d.Target)
			used = cli.FormatPercent(d.PercentUsed)
			word := "under"
			if d.Over {
				word = "over"
			}
			variance = s.tr.Money(d.Variance) + " " + word
		}
		rows = append(rows, []string{
			d.Date,
			weekday(d.Date),
			cli.FormatNumber(int64(len(d.Expenses))),
			s.tr.Money(d.Total),
			target,
			used,
			variance,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Items", "Spent", "Target", "Used", "Variance"},
		Rows:    rows,
	}))
	if len(totals) > 1 {
		fmt.Printf("\n  %s  %s\n", cli.Muted("trend"), cli.RenderSparkline(totals))
	}
	return nil
}

func weekday(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return ""
	}
	return d.Format("Mon")
}
