// Package analytics derives budget figures from a destination's state.
package analytics

import (
	"math"
	"sort"

	"github.com/theirongolddev/tripburn/internal/model"
)

// Pacing classifies spend against plan.
type Pacing string

const (
	PacingUnknown  Pacing = ""
	PacingOnTrack  Pacing = "on-track"
	PacingWarning  Pacing = "warning"
	PacingOffTrack Pacing = "off-track"
)

// Status is a pacing classification with its display text.
type Status struct {
	Pacing Pacing
	Symbol string
	Label  string
}

// DayTotal is the total spend on one calendar date.
type DayTotal struct {
	Date  string
	Total float64
}

// CategoryTotal is the spend in one category and its share of all spend (0..1).
type CategoryTotal struct {
	Category model.Category
	Amount   float64
	Share    float64
}

// Summary holds every figure derived from one destination state.
type Summary struct {
	Budget       float64
	DurationDays int
	ExpenseCount int

	TotalSpent   float64
	RawRemaining float64 // may be negative
	Remaining    float64
	DailyTarget  float64
	ProgressPct  float64 // spent as a percentage of budget, capped at 999

	TotalsByDate    map[string]float64
	Dates           []string   // ascending
	DayOrder        []DayTotal // first-encountered order
	UniqueDaysSpent int
	DaysLeft        int
	HasDuration     bool
	AverageDaily    float64

	DaysUnderBudget int
	DaysOverBudget  int
	Savings         float64
	Overspend       float64
	NetSavings      float64
	HasDailyTarget  bool

	Status      Status
	Categories  []CategoryTotal // descending by amount, zero totals omitted
	BiggestDay  *DayTotal
	SmallestDay *DayTotal
}

// Compute derives a Summary. It never caches; call it after every change.
func Compute(st model.DestinationState) Summary {
	s := Summary{
		Budget:       st.Budget,
		DurationDays: max(st.DurationDays, 0),
		ExpenseCount: len(st.Expenses),
		TotalsByDate: make(map[string]float64),
	}

	catTotals := make(map[model.Category]float64)
	for _, e := range st.Expenses {
		s.TotalSpent += e.Amount
		if _, seen := s.TotalsByDate[e.Date]; !seen {
			s.DayOrder = append(s.DayOrder, DayTotal{Date: e.Date})
		}
		s.TotalsByDate[e.Date] += e.Amount
		catTotals[e.Category] += e.Amount
	}
	for i := range s.DayOrder {
		s.DayOrder[i].Total = s.TotalsByDate[s.DayOrder[i].Date]
	}

	s.RawRemaining = st.Budget - s.TotalSpent
	s.Remaining = math.Max(s.RawRemaining, 0)
	s.HasDuration = s.DurationDays > 0
	if s.HasDuration {
		s.DailyTarget = st.Budget / float64(s.DurationDays)
	}
	if st.Budget > 0 {
		s.ProgressPct = math.Min(s.TotalSpent/st.Budget*100, 999)
	}

	for d := range s.TotalsByDate {
		s.Dates = append(s.Dates, d)
	}
	sort.Strings(s.Dates)
	s.UniqueDaysSpent = len(s.Dates)
	if s.HasDuration {
		s.DaysLeft = max(s.DurationDays-s.UniqueDaysSpent, 0)
	}
	if s.UniqueDaysSpent > 0 {
		s.AverageDaily = s.TotalSpent / float64(s.UniqueDaysSpent)
	}

	if s.DailyTarget > 0 {
		for _, d := range s.DayOrder {
			if d.Total <= s.DailyTarget {
				s.DaysUnderBudget++
			} else {
				s.DaysOverBudget++
			}
			switch {
			case d.Total < s.DailyTarget:
				s.Savings += s.DailyTarget - d.Total
			case d.Total > s.DailyTarget:
				s.Overspend += d.Total - s.DailyTarget
			}
		}
	}
	s.NetSavings = s.Savings - s.Overspend
	s.HasDailyTarget = s.DailyTarget > 0 && len(s.DayOrder) > 0

	s.Status = pacing(st, s)
	s.Categories = categories(catTotals, s.TotalSpent)

	if len(s.DayOrder) > 0 {
		sorted := make([]DayTotal, len(s.DayOrder))
		copy(sorted, s.DayOrder)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Total > sorted[j].Total })
		biggest, smallest := sorted[0], sorted[len(sorted)-1]
		s.BiggestDay, s.SmallestDay = &biggest, &smallest
	}
	return s
}

func pacing(st model.DestinationState, s Summary) Status {
	if st.Budget <= 0 {
		return Status{Pacing: PacingUnknown}
	}
	if !s.HasDuration || s.ExpenseCount == 0 || s.UniqueDaysSpent == 0 {
		ratio := s.TotalSpent / st.Budget
		switch {
		case ratio <= 0.75:
			return Status{PacingOnTrack, "✓", "On track"}
		case ratio <= 1:
			return Status{PacingWarning, "!", "Close to limit"}
		default:
			return Status{PacingOffTrack, "×", "Over budget"}
		}
	}

	expected := s.DailyTarget * float64(s.UniqueDaysSpent)
	tolerance := s.DailyTarget * 0.2
	switch {
	case s.TotalSpent <= expected-tolerance:
		return Status{PacingOnTrack, "✓", "Under plan so far"}
	case s.TotalSpent <= expected+tolerance:
		return Status{PacingWarning, "!", "Slightly over target"}
	default:
		return Status{PacingOffTrack, "×", "Over budget pace"}
	}
}

func categories(totals map[model.Category]float64, spent float64) []CategoryTotal {
	var out []CategoryTotal
	for _, c := range model.Categories {
		if amt := totals[c]; amt > 0 {
			out = append(out, CategoryTotal{Category: c, Amount: amt})
		}
	}
	for c, amt := range totals {
		if !c.Valid() && amt > 0 {
			out = append(out, CategoryTotal{Category: c, Amount: amt})
		}
	}
	for i := range out {
		if spent > 0 {
			out[i].Share = math.Min(out[i].Amount/spent, 1)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}
