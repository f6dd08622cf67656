package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/cli"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
	"github.com/theirongolddev/tripburn/internal/tui/components"
	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

const (
	recentDayCount = 7
	chartDayCount  = 21
)

func (a App) renderDashboard(cw int) string {
	cfg, ok := a.activeConfig()
	if !ok {
		return a.renderEmpty(cw)
	}
	t := theme.Active
	s := a.summary
	var b strings.Builder

	// Row 1: stats cards
	remainingColor := t.Green
	if s.RawRemaining < 0 {
		remainingColor = t.Red
	}
	avgNote := ""
	if s.UniqueDaysSpent > 0 {
		avgNote = "avg " + a.tr.Money(s.AverageDaily) + "/day"
	}
	targetNote := ""
	if s.HasDailyTarget {
		targetNote = "target " + a.tr.Money(s.DailyTarget) + "/day"
	}
	local := ""
	if cfg.CurrencyCode != "" && cfg.ExchangeRate > 0 && cfg.ExchangeRate != 1 {
		local = fmt.Sprintf("≈ %s%s %s", cfg.CurrencySymbol,
			cli.FormatNumber(int64(tracker.ToLocal(s.Remaining, cfg))), cfg.CurrencyCode)
	}
	cards := []components.Metric{
		{Label: "Budget", Value: a.tr.Money(s.Budget), Note: fmt.Sprintf("%s · %s", cfg.Name, cli.FormatDays(s.DurationDays))},
		{Label: "Spent", Value: a.tr.Money(s.TotalSpent), Note: avgNote, Color: components.ColorForSpent(s.ProgressPct)},
		{Label: "Remaining", Value: a.tr.Money(s.RawRemaining), Note: local, Color: remainingColor},
		{Label: "Days left", Value: fmt.Sprintf("%d", s.DaysLeft), Note: targetNote},
	}
	if a.isCompactLayout() {
		cards = cards[:3]
	}
	b.WriteString(components.MetricCardRow(cards, cw))
	b.WriteString("\n")

	// Row 2: budget progress and pacing
	b.WriteString(components.ContentCard("Budget", a.renderProgress(components.CardInnerWidth(cw)), cw))
	b.WriteString("\n")

	// Row 3: categories and recent days
	if a.isCompactLayout() {
		b.WriteString(components.ContentCard("Categories", a.renderCategories(components.CardInnerWidth(cw)), cw))
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Recent days", a.renderRecentDays(components.CardInnerWidth(cw)), cw))
	} else {
		halves := components.LayoutRow(cw, 2)
		b.WriteString(components.CardRow([]string{
			components.ContentCard("Categories", a.renderCategories(components.CardInnerWidth(halves[0])), halves[0]),
			components.ContentCard("Recent days", a.renderRecentDays(components.CardInnerWidth(halves[1])), halves[1]),
		}))
	}
	b.WriteString("\n")

	// Row 4: daily spend chart
	if len(a.days) > 1 {
		vals, labels := chartSeries(a.days, chartDayCount)
		chartH := 8
		if a.isCompactLayout() {
			chartH = 6
		}
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Daily spend (last %d)", len(vals)),
			components.SpendChart(vals, labels, s.DailyTarget, components.CardInnerWidth(cw), chartH),
			cw,
		))
	}

	return b.String()
}

func (a App) renderEmpty(cw int) string {
	body := "No destinations yet.\n\n" +
		"Add one with:  tripburn dest add \"Sri Lanka\" --currency LKR --days 14\n" +
		"Or pull a shared trip:  tripburn share load <code>"
	return components.ContentCard("Getting started", body, cw)
}

func (a App) renderProgress(w int) string {
	t := theme.Active
	s := a.summary
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if s.Budget <= 0 {
		return muted.Render("No budget set. Run: tripburn budget <amount>")
	}

	barW := max(w-28, 10)
	note := fmt.Sprintf("%s of %s", a.tr.Money(s.TotalSpent), a.tr.Money(s.Budget))
	lines := []string{components.BudgetBar("", s.ProgressPct, note, 0, barW)}

	if s.Status.Pacing != analytics.PacingUnknown {
		color := t.Green
		switch s.Status.Pacing {
		case analytics.PacingWarning:
			color = t.Orange
		case analytics.PacingOffTrack:
			color = t.Red
		}
		status := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true).
			Render(s.Status.Symbol + " " + s.Status.Label)
		lines = append(lines, status)
	}

	if pos := analytics.BudgetPosition(s); pos.Known {
		var text string
		switch pos.Tone {
		case model.ToneSuccess:
			text = fmt.Sprintf("%s under your daily targets so far", a.tr.Money(pos.Amount))
		case model.ToneDanger:
			text = fmt.Sprintf("%s over your daily targets so far", a.tr.Money(pos.Amount))
		default:
			text = "Right on your daily targets"
		}
		detail := fmt.Sprintf("  %d under · %d over", s.DaysUnderBudget, s.DaysOverBudget)
		lines = append(lines,
			lipgloss.NewStyle().Foreground(t.ForTone(pos.Tone)).Background(t.Surface).Render(text)+
				muted.Render(detail))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderCategories(w int) string {
	t := theme.Active
	s := a.summary
	if len(s.Categories) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No expenses yet")
	}

	labelW := 0
	for _, c := range s.Categories {
		labelW = max(labelW, lipgloss.Width(c.Category.Label()))
	}
	valueW := 18
	barW := max(w-labelW-valueW-2, 6)
	top := s.Categories[0].Amount

	lines := make([]string, len(s.Categories))
	for i, c := range s.Categories {
		value := fmt.Sprintf("%s %s", a.tr.Money(c.Amount), cli.FormatShare(c.Share))
		lines[i] = components.HorizontalBar(c.Category.Label(), value, c.Amount, top, labelW, barW, t.ForCategory(c.Category))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderRecentDays(w int) string {
	t := theme.Active
	if len(a.days) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).Render("No spend days yet")
	}

	dateStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	amountStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	days := a.days[:min(len(a.days), recentDayCount)]
	lines := make([]string, len(days))
	for i, d := range days {
		line := dateStyle.Render(fmt.Sprintf("%-11s", cli.FormatDate(d.Date))) +
			amountStyle.Render(fmt.Sprintf("%12s", a.tr.Money(d.Total)))
		if d.Target > 0 {
			color := t.ForSpend(d.Total / d.Target)
			word := "under"
			if d.Over {
				word = "over"
			}
			line += space.Render("  ") + lipgloss.NewStyle().Foreground(color).Background(t.Surface).
				Render(fmt.Sprintf("%s %s", a.tr.Money(d.Variance), word))
		}
		count := fmt.Sprintf("  %d item", len(d.Expenses))
		if len(d.Expenses) != 1 {
			count += "s"
		}
		if lipgloss.Width(line)+len(count) <= w {
			line += space.Foreground(t.TextDim).Render(count)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// chartSeries returns up to n most recent day totals oldest first, with day-of-month labels.
func chartSeries(days []analytics.Day, n int) ([]float64, []string) {
	days = days[:min(len(days), n)]
	vals := make([]float64, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		j := len(days) - 1 - i
		vals[j] = d.Total
		labels[j] = strings.TrimLeft(d.Date[max(len(d.Date)-2, 0):], "0")
	}
	return vals, labels
}
