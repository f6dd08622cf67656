// Package alerts turns budget analytics into advisory messages and rotates through them.
package alerts

import (
	"fmt"
	"math"
	"time"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
)

// Input is everything the battery looks at.
type Input struct {
	Summary  analytics.Summary
	Expenses []model.Expense
	Today    time.Time
	Money    func(float64) string
}

// Evaluate runs every heuristic in order and returns the ones that fire.
func Evaluate(in Input) []model.Alert {
	if in.Money == nil {
		in.Money = money.Formatter{}.Format
	}
	if in.Today.IsZero() {
		in.Today = time.Now()
	}
	fm := in.Money
	s := in.Summary

	var out []model.Alert
	push := func(tone model.Tone, format string, args ...any) {
		out = append(out, model.Alert{Tone: tone, Message: fmt.Sprintf(format, args...)})
	}

	hasExpenses := s.ExpenseCount > 0
	target := s.DailyTarget
	budget := s.Budget

	totals := make([]float64, len(s.Dates))
	for i, d := range s.Dates {
		totals[i] = s.TotalsByDate[d]
	}
	under, over := 0, 0
	if target > 0 {
		for _, t := range totals {
			if t <= target {
				under++
			} else {
				over++
			}
		}
	}

	overStreak, efficientStreak := false, false
	if target > 0 && len(totals) >= 3 {
		recent := totals[len(totals)-3:]
		overStreak, efficientStreak = true, true
		for _, t := range recent {
			if t <= target {
				overStreak = false
			}
			if t > target*0.7 {
				efficientStreak = false
			}
		}
	}

	if hasExpenses && target > 0 && under >= max(3, int(math.Ceil(float64(len(totals))*0.5))) {
		push(model.ToneSuccess, "You've stayed under your daily target on %s so far. Brilliant pacing!", plural(under, "day"))
	}
	if hasExpenses && target > 0 && over > under {
		push(model.ToneWarning, "You've gone over budget on %s. Try planning a lighter spend day to rebalance.", plural(over, "day"))
	}
	if overStreak {
		push(model.ToneDanger, "Spending topped your daily target three days in a row. Time for a reset day.")
	}
	if efficientStreak {
		push(model.ToneSuccess, "Three efficient days in a row! Keep this streak going and bank the savings for a big treat.")
	}

	if budget > 0 && hasExpenses {
		ratio := s.RawRemaining / budget
		switch {
		case ratio < -0.1:
			push(model.ToneDanger, "You're %s beyond the total trip budget. Consider rebalancing categories or extending the budget.", fm(math.Abs(s.RawRemaining)))
		case ratio < 0.15 && s.HasDuration && s.DaysLeft > 2:
			push(model.ToneWarning, "Only %s left for %s. Keep a closer eye on the next few spends.", fm(s.RawRemaining), plural(s.DaysLeft, "day"))
		case ratio > 0.5 && s.UniqueDaysSpent >= max(3, int(math.Ceil(float64(s.DurationDays)*0.3))):
			push(model.ToneSuccess, "Plenty of budget left: %s remains for future adventures.", fm(s.RawRemaining))
		}
	}

	if hasExpenses && target > 0 && len(totals) > 0 {
		last := totals[len(totals)-1]
		switch {
		case last <= target*0.6:
			push(model.ToneSuccess, "Your last spend day came in at %s, well under your daily target of %s.", fm(last), fm(target))
		case last > target*1.3:
			push(model.ToneWarning, "Your last spend day hit %s, about %s over target. Adjust today if you can.", fm(last), fm(last-target))
		}
	}

	if budget <= 0 {
		push(model.ToneInfo, "Set an overall budget to unlock tailored suggestions.")
	}
	if !hasExpenses {
		push(model.ToneInfo, "No spending logged yet. Add your first expense to see insights.")
	}

	if hasExpenses && target > 0 && s.UniqueDaysSpent > 0 {
		diff := s.AverageDaily - target
		switch {
		case diff < -2:
			push(model.ToneSuccess, "You're averaging %s per day, %s under your daily target of %s.", fm(s.AverageDaily), fm(math.Abs(diff)), fm(target))
		case diff > 2:
			push(model.ToneWarning, "Daily spend is %s above your target (%s). Keep an eye on discretionary costs.", fm(math.Abs(diff)), fm(target))
		default:
			push(model.ToneInfo, "Daily spend is tracking close to plan at %s per day.", fm(s.AverageDaily))
		}

		totalDiff := s.TotalSpent - target*float64(s.UniqueDaysSpent)
		if math.Abs(totalDiff) >= target {
			if totalDiff > 0 {
				push(model.ToneWarning, "You've spent %s more than the pace budget so far. Consider a lighter day soon.", fm(math.Abs(totalDiff)))
			} else {
				push(model.ToneSuccess, "Nice! You're %s under the pace budget so far.", fm(math.Abs(totalDiff)))
			}
		}
	}

	if hasExpenses && target > 0 {
		spent, elapsed := weekToDate(in.Expenses, in.Today)
		weeklyDiff := spent - target*float64(elapsed)
		switch {
		case weeklyDiff > target:
			push(model.ToneDanger, "This week you're %s over the weekly target so far. Try trimming the next few days.", fm(math.Abs(weeklyDiff)))
		case weeklyDiff < -target:
			push(model.ToneSuccess, "You're %s under the weekly target. Room for a treat!", fm(math.Abs(weeklyDiff)))
		}
	}

	if s.RawRemaining <= 0 && budget > 0 {
		if overspend := math.Abs(s.RawRemaining); overspend > 0 {
			push(model.ToneDanger, "Budget exhausted: you're %s over plan. Consider pausing spending or raising the budget.", fm(overspend))
		} else {
			push(model.ToneWarning, "Budget fully used. Any new spending will push you over plan.")
		}
	}

	if s.RawRemaining > 0 && hasExpenses && s.AverageDaily > 0 {
		daysAtPace := s.RawRemaining / s.AverageDaily
		remaining := float64(s.DaysLeft)
		switch {
		case !s.HasDuration || s.DaysLeft == 0:
			push(model.ToneInfo, "At this pace you'll use the remaining budget in about %s.", FormatDays(daysAtPace))
		case daysAtPace < remaining-1:
			push(model.ToneDanger, "At this pace you'll run out in about %s (plan needs %s). Time to rein it in.", FormatDays(daysAtPace), FormatDays(remaining))
		case daysAtPace > remaining+1:
			push(model.ToneSuccess, "Great job! You could finish the trip with around %s left if you keep this pace.", fm(s.RawRemaining-remaining*s.AverageDaily))
		default:
			push(model.ToneInfo, "You're on track to finish with the budget balanced in about %s.", FormatDays(remaining))
		}
	}

	return out
}

// weekToDate sums spend from Monday of today's week through today and returns the
// number of elapsed days in the week (1..7).
func weekToDate(expenses []model.Expense, today time.Time) (float64, int) {
	offset := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -offset).Format(model.DateLayout)
	end := today.Format(model.DateLayout)

	spent := 0.0
	for _, e := range expenses {
		if e.Date >= start && e.Date <= end {
			spent += e.Amount
		}
	}
	return spent, offset + 1
}

// FormatDays renders a fractional day count for messages.
func FormatDays(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0) || v <= 0:
		return "less than a day"
	case v < 1.5:
		return "about 1 day"
	case v < 5:
		return fmt.Sprintf("%.1f days", v)
	default:
		return fmt.Sprintf("%d days", int(math.Round(v)))
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
