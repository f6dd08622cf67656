package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

// ColorForSpent colors budget usage (percent of budget spent).
func ColorForSpent(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct > 100:
		return t.Red
	case pct >= 90:
		return t.Orange
	case pct >= 70:
		return t.Yellow
	default:
		return t.Green
	}
}

// BudgetBar renders a labeled bar for percent-of-budget spent. Past 100% the bar
// stays full and the percentage keeps counting.
func BudgetBar(label string, pct float64, note string, labelW, barWidth int) string {
	t := theme.Active
	color := ColorForSpent(pct)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	noteStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	ratio := min(max(pct/100, 0), 1)
	out := bar.ViewAs(ratio) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct))
	if label != "" {
		out = labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + spaceStyle.Render(" ") + out
	}
	if note != "" {
		out += spaceStyle.Render("  ") + noteStyle.Render(note)
	}
	return out
}

// CompactBudgetBar renders a status-bar-sized usage indicator.
func CompactBudgetBar(label string, pct float64, width int) string {
	t := theme.Active
	color := ColorForSpent(pct)

	barW := max(width-lipgloss.Width(label)-6, 4)
	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	return labelStyle.Render(label) +
		spaceStyle.Render(" ") +
		bar.ViewAs(min(max(pct/100, 0), 1)) +
		spaceStyle.Render(" ") +
		pctStyle.Render(fmt.Sprintf("%3.0f%%", pct))
}
