package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Budget summary for a destination",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, _ []string) error {
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

	fmt.Println()
	fmt.Println(cli.RenderTitle(strings.TrimSpace(fmt.Sprintf("%s %s  Budget", cfg.Flag, strings.ToUpper(cfg.Name)))))
	fmt.Println()

	fmt.Print(cli.RenderTable(cli.Table{Rows: summaryRows(s.tr, cfg, sum)}))

	if sum.Budget > 0 {
		fmt.Println()
		fmt.Printf("  %s\n", cli.RenderProgressBar(sum.ProgressPct, 30))
		if sum.Status.Pacing != analytics.PacingUnknown {
			fmt.Printf("  %s %s\n", sum.Status.Symbol, sum.Status.Label)
		}
	}

	if alerts, err := s.tr.AlertsFor(cfg.Slug); err == nil && len(alerts) > 0 {
		fmt.Println()
		fmt.Printf("  %s\n", cli.RenderAlert(alerts[0]))
		if len(alerts) > 1 {
			fmt.Printf("  %s\n", cli.Muted(fmt.Sprintf("%d more: tripburn alerts", len(alerts)-1)))
		}
	}
	fmt.Println()
	return nil
}

func summaryRows(tr *tracker.Tracker, cfg model.DestinationConfig, sum analytics.Summary) [][]string {
	rows := [][]string{
		{"Budget", tr.Money(sum.Budget)},
		{"Duration", cli.FormatDays(sum.DurationDays)},
		{"Expenses", cli.FormatNumber(int64(sum.ExpenseCount))},
		{"---"},
		{"Spent", tr.Money(sum.TotalSpent)},
		{"Remaining", tr.Money(sum.RawRemaining)},
	}
	if cfg.CurrencyCode != "" && cfg.ExchangeRate > 0 && cfg.ExchangeRate != 1 {
		rows = append(rows, []string{"Remaining (" + cfg.CurrencyCode + ")",
			cfg.CurrencySymbol + cli.FormatNumber(int64(tracker.ToLocal(sum.Remaining, cfg)))})
	}
	rows = append(rows, []string{"Used", cli.FormatPercent(sum.ProgressPct)}, []string{"---"})

	if sum.HasDailyTarget {
		rows = append(rows, []string{"Daily target", tr.Money(sum.DailyTarget)})
	}
	if sum.UniqueDaysSpent > 0 {
		rows = append(rows,
			[]string{"Daily average", tr.Money(sum.AverageDaily)},
			[]string{"Days tracked", cli.FormatDays(sum.UniqueDaysSpent)},
		)
	}
	if sum.HasDuration {
		rows = append(rows, []string{"Days left", cli.FormatNumber(int64(sum.DaysLeft))})
	}
	if pos := analytics.BudgetPosition(sum); pos.Known {
		var text string
		switch pos.Tone {
		case model.ToneSuccess:
			text = cli.FormatSigned(pos.Amount, tr.Money) + " under"
		case model.ToneDanger:
			text = cli.FormatSigned(-pos.Amount, tr.Money) + " over"
		default:
			text = "on target"
		}
		rows = append(rows,
			[]string{"Position", cli.ToneStyle(pos.Tone).Render(text)},
			[]string{"Days under/over", fmt.Sprintf("%d / %d", sum.DaysUnderBudget, sum.DaysOverBudget)},
		)
	}
	if sum.BiggestDay != nil {
		rows = append(rows, []string{"Biggest day", fmt.Sprintf("%s  %s", cli.FormatDate(sum.BiggestDay.Date), tr.Money(sum.BiggestDay.Total))})
	}
	return rows
}
