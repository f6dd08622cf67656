package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		idx = min(max(idx, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}
	return style.Render(buf.String())
}

// SpendChart renders daily totals as vertical bars, oldest left. Bars above target
// are drawn in the over color and the target row is marked on the axis. A zero
// target draws every bar in the accent color.
func SpendChart(values []float64, labels []string, target float64, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active
	if width < 15 || height < 3 {
		return Sparkline(values, t.Accent)
	}

	ceiling := target
	for _, v := range values {
		ceiling = math.Max(ceiling, v)
	}
	if ceiling <= 0 {
		ceiling = 1
	}
	step := chartTickStep(ceiling)
	ceiling = math.Ceil(ceiling/step) * step

	yLabelW := max(len(formatChartLabel(ceiling))+1, 4)
	chartW := max(width-yLabelW-1, 5)

	n := len(values)
	if maxBars := (chartW + 1) / 3; n > maxBars {
		values = values[n-maxBars:]
		if len(labels) == n {
			labels = labels[n-maxBars:]
		}
		n = maxBars
	}
	barW := min(max((chartW-(n-1))/n, 2), 6)
	axisLen := n*barW + max(0, n-1)

	targetRow := -1
	if target > 0 {
		targetRow = int(math.Round(target / ceiling * float64(height)))
	}

	axisStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	targetStyle := lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)
	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		rowTop := ceiling * float64(row) / float64(height)
		rowBottom := ceiling * float64(row-1) / float64(height)

		label := ""
		if row == height {
			label = formatChartLabel(ceiling)
		}
		if row == targetRow {
			b.WriteString(targetStyle.Render(fmt.Sprintf("%*s", yLabelW, formatChartLabel(target))))
			b.WriteString(targetStyle.Render("┤"))
		} else {
			b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, label)))
			b.WriteString(axisStyle.Render("│"))
		}

		for i, v := range values {
			if i > 0 {
				b.WriteString(blank.Render(" "))
			}
			color := t.Accent
			if target > 0 {
				color = t.ForSpend(v / target)
			}
			bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
			switch {
			case v >= rowTop:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case v > rowBottom:
				idx := int((v - rowBottom) / (rowTop - rowBottom) * 8)
				idx = min(max(idx, 1), 8)
				b.WriteString(bar.Render(strings.Repeat(string(blocks[idx]), barW)))
			case row == targetRow:
				b.WriteString(targetStyle.Render(strings.Repeat("┄", barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(axisStyle.Render(fmt.Sprintf("%*s", yLabelW, "0")))
	b.WriteString(axisStyle.Render("└" + strings.Repeat("─", axisLen)))

	if len(labels) == n {
		buf := []byte(strings.Repeat(" ", axisLen))
		lastEnd := -1
		for i, lbl := range labels {
			pos := i * (barW + 1)
			end := min(pos+len(lbl), axisLen)
			if pos <= lastEnd || end-pos < len(lbl) {
				continue
			}
			copy(buf[pos:end], lbl)
			lastEnd = end
		}
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axisStyle.Render(strings.TrimRight(string(buf), " ")))
	}
	return b.String()
}

// HorizontalBar renders one labeled bar scaled against maxVal, followed by value.
func HorizontalBar(label, value string, amount, maxVal float64, labelW, barW int, color lipgloss.Color) string {
	t := theme.Active
	filled := 0
	if maxVal > 0 {
		filled = int(math.Round(amount / maxVal * float64(barW)))
	}
	filled = min(max(filled, 0), barW)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	trackStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + space +
		barStyle.Render(strings.Repeat("━", filled)) +
		trackStyle.Render(strings.Repeat("─", barW-filled)) + space +
		valueStyle.Render(value)
}

// chartTickStep picks a round interval targeting about five ticks.
func chartTickStep(maxVal float64) float64 {
	if maxVal <= 0 {
		return 1
	}
	rough := maxVal / 5
	base := math.Pow(10, math.Floor(math.Log10(rough)))
	frac := rough / base

	switch {
	case frac < 1.5:
		return base
	case frac < 3.5:
		return 2 * base
	default:
		return 5 * base
	}
}

func formatChartLabel(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
