package analytics

import (
	"math"
	"sort"

	"github.com/theirongolddev/tripburn/internal/model"
)

// Day groups the expenses of one date with its target comparison.
type Day struct {
	Date        string
	Total       float64
	Expenses    []model.Expense
	Target      float64
	PercentUsed float64 // capped at 999
	Over        bool
	Variance    float64 // |target - total|, 0 without a target
}

// Days groups expenses by date, newest first.
func Days(st model.DestinationState) []Day {
	target := 0.0
	if st.DurationDays > 0 {
		target = st.Budget / float64(st.DurationDays)
	}
	byDate := make(map[string]*Day)
	var order []string
	for _, e := range st.Expenses {
		d, ok := byDate[e.Date]
		if !ok {
			d = &Day{Date: e.Date, Target: target}
			byDate[e.Date] = d
			order = append(order, e.Date)
		}
		d.Total += e.Amount
		d.Expenses = append(d.Expenses, e)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(order)))

	out := make([]Day, 0, len(order))
	for _, date := range order {
		d := byDate[date]
		if target > 0 {
			d.PercentUsed = math.Min(d.Total/target*100, 999)
			d.Over = d.Total > target
			d.Variance = math.Abs(target - d.Total)
		}
		out = append(out, *d)
	}
	return out
}

// Position is the budget position banner: how the per-day targets net out.
type Position struct {
	Tone   model.Tone
	Amount float64 // absolute net amount, rounded to pence
	Known  bool
}

// BudgetPosition classifies net savings against daily targets. Known is false until
// there is both a daily target and at least one spend day.
func BudgetPosition(s Summary) Position {
	if !s.HasDailyTarget {
		return Position{}
	}
	rounded := math.Round(s.NetSavings*100) / 100
	abs := math.Abs(rounded)
	switch {
	case abs < 0.5:
		return Position{Tone: model.ToneInfo, Amount: abs, Known: true}
	case rounded > 0:
		return Position{Tone: model.ToneSuccess, Amount: abs, Known: true}
	default:
		return Position{Tone: model.ToneDanger, Amount: abs, Known: true}
	}
}
