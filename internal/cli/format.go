// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/theirongolddev/tripburn/internal/model"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatPercent formats a 0-100 value as a percentage string.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatShare formats a 0-1 fraction as a whole percentage.
func FormatShare(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}

// FormatDays formats a day count, e.g. "1 day", "12 days".
func FormatDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// FormatDate turns "2024-05-10" into "Fri 10 May". Unparseable input is returned as is.
func FormatDate(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Mon 2 Jan")
}

// FormatAgo renders a timestamp relative to now, or "never" for the zero time.
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatSigned prefixes a formatted amount with + or -.
func FormatSigned(v float64, format func(float64) string) string {
	if v >= 0 {
		return "+" + format(v)
	}
	return "-" + format(-v)
}

// Truncate shortens s to width runes, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:width-1])) + "…"
}
