// Package money handles rounding and display of currency amounts.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 rounds v half away from zero to two decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Fixed2 renders v with exactly two decimal places and no grouping.
func Fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Format renders v as symbol-prefixed money with thousands separators, e.g. "£1,234.50".
// Negative values are rendered as "-£12.00".
func Format(symbol string, v float64) string {
	s := Fixed2(v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg && s != "0.00" {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Formatter binds a currency symbol.
type Formatter struct {
	Symbol string
}

// Format renders v with the bound symbol.
func (f Formatter) Format(v float64) string {
	sym := f.Symbol
	if sym == "" {
		sym = "£"
	}
	return Format(sym, v)
}

// Convert multiplies amount by rate, rounded to two places.
func Convert(amount, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return Round2(decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).InexactFloat64())
}

// ConvertBack divides amount by rate, rounded to two places.
func ConvertBack(amount, rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return Round2(decimal.NewFromFloat(amount).Div(decimal.NewFromFloat(rate)).InexactFloat64())
}
