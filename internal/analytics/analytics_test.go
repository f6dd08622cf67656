package analytics

import (
	"math"
	"testing"

	"github.com/theirongolddev/tripburn/internal/model"
)

func e(amount float64, date string, cat model.Category) model.Expense {
	return model.Expense{Amount: amount, Date: date, Category: cat, Description: "x"}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(model.DestinationState{DurationDays: 10})
	if s.TotalSpent != 0 || s.Remaining != 0 || s.DailyTarget != 0 {
		t.Errorf("empty summary = %+v", s)
	}
	if s.DaysLeft != 10 || s.BiggestDay != nil || s.Status.Pacing != PacingUnknown {
		t.Errorf("DaysLeft=%d Biggest=%v Pacing=%q", s.DaysLeft, s.BiggestDay, s.Status.Pacing)
	}
}

func TestComputeTotals(t *testing.T) {
	st := model.DestinationState{Budget: 500, DurationDays: 10, Expenses: []model.Expense{
		e(30, "2024-01-02", model.CategoryFood),
		e(20, "2024-01-01", model.CategoryTransport),
		e(50, "2024-01-02", model.CategoryAccommodation),
	}}
	s := Compute(st)

	if s.TotalSpent != 100 || s.RawRemaining != 400 || s.Remaining != 400 {
		t.Errorf("totals = %v/%v/%v", s.TotalSpent, s.RawRemaining, s.Remaining)
	}
	if s.DailyTarget != 50 {
		t.Errorf("DailyTarget = %v, want 50", s.DailyTarget)
	}
	if s.UniqueDaysSpent != 2 || s.DaysLeft != 8 {
		t.Errorf("UniqueDaysSpent=%d DaysLeft=%d, want 2, 8", s.UniqueDaysSpent, s.DaysLeft)
	}
	if s.Dates[0] != "2024-01-01" || s.TotalsByDate["2024-01-02"] != 80 {
		t.Errorf("Dates=%v TotalsByDate=%v", s.Dates, s.TotalsByDate)
	}
	if s.BiggestDay.Date != "2024-01-02" || s.SmallestDay.Date != "2024-01-01" {
		t.Errorf("Biggest=%+v Smallest=%+v", s.BiggestDay, s.SmallestDay)
	}
	if len(s.Categories) != 3 || s.Categories[0].Category != model.CategoryAccommodation {
		t.Fatalf("Categories = %+v", s.Categories)
	}
	if math.Abs(s.Categories[0].Share-0.5) > 1e-9 {
		t.Errorf("accommodation share = %v, want 0.5", s.Categories[0].Share)
	}
	if s.DaysUnderBudget != 1 || s.DaysOverBudget != 1 {
		t.Errorf("under/over = %d/%d, want 1/1", s.DaysUnderBudget, s.DaysOverBudget)
	}
	if s.NetSavings != 0 {
		t.Errorf("NetSavings = %v, want 0 (30 saved, 30 over)", s.NetSavings)
	}
}

func TestComputeOverspend(t *testing.T) {
	s := Compute(model.DestinationState{Budget: 500, DurationDays: 10, Expenses: []model.Expense{
		e(520, "2024-01-01", model.CategoryShopping),
	}})
	if s.Remaining != 0 || s.RawRemaining != -20 {
		t.Errorf("Remaining=%v RawRemaining=%v, want 0, -20", s.Remaining, s.RawRemaining)
	}
	if math.Abs(s.ProgressPct-104) > 1e-9 {
		t.Errorf("ProgressPct = %v, want 104", s.ProgressPct)
	}
}

func TestBiggestSmallestTies(t *testing.T) {
	s := Compute(model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{
		e(10, "2024-01-03", model.CategoryFood),
		e(10, "2024-01-01", model.CategoryFood),
		e(10, "2024-01-02", model.CategoryFood),
	}})
	if s.BiggestDay.Date != "2024-01-03" || s.SmallestDay.Date != "2024-01-02" {
		t.Errorf("ties: biggest=%s smallest=%s, want 2024-01-03 and 2024-01-02", s.BiggestDay.Date, s.SmallestDay.Date)
	}
}

func TestPacing(t *testing.T) {
	tests := []struct {
		name string
		st   model.DestinationState
		want Pacing
	}{
		{"no budget", model.DestinationState{DurationDays: 5}, PacingUnknown},
		{"no expenses", model.DestinationState{Budget: 100, DurationDays: 5}, PacingOnTrack},
		{"basic warning", model.DestinationState{Budget: 100, Expenses: []model.Expense{e(80, "2024-01-01", model.CategoryFood)}}, PacingWarning},
		{"basic over", model.DestinationState{Budget: 100, Expenses: []model.Expense{e(101, "2024-01-01", model.CategoryFood)}}, PacingOffTrack},
		// target 20/day, one day, tolerance 4
		{"paced under", model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{e(16, "2024-01-01", model.CategoryFood)}}, PacingOnTrack},
		{"paced band", model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{e(20, "2024-01-01", model.CategoryFood)}}, PacingWarning},
		{"paced over", model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{e(24.5, "2024-01-01", model.CategoryFood)}}, PacingOffTrack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.st).Status.Pacing; got != tt.want {
				t.Errorf("Pacing = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDays(t *testing.T) {
	days := Days(model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{
		e(5, "2024-01-01", model.CategoryFood),
		e(30, "2024-01-02", model.CategoryFood),
		e(2, "2024-01-01", model.CategoryTransport),
	}})
	if len(days) != 2 || days[0].Date != "2024-01-02" {
		t.Fatalf("Days = %+v", days)
	}
	if !days[0].Over || days[0].Variance != 10 || days[0].PercentUsed != 150 {
		t.Errorf("newest day = %+v", days[0])
	}
	if days[1].Total != 7 || len(days[1].Expenses) != 2 {
		t.Errorf("oldest day = %+v", days[1])
	}
}

func TestBudgetPosition(t *testing.T) {
	if p := BudgetPosition(Summary{}); p.Known {
		t.Error("position known without a daily target")
	}
	saved := Compute(model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{e(5, "2024-01-01", model.CategoryFood)}})
	if p := BudgetPosition(saved); p.Tone != model.ToneSuccess || p.Amount != 15 {
		t.Errorf("saved position = %+v", p)
	}
	over := Compute(model.DestinationState{Budget: 100, DurationDays: 5, Expenses: []model.Expense{e(30, "2024-01-01", model.CategoryFood)}})
	if p := BudgetPosition(over); p.Tone != model.ToneDanger || p.Amount != 10 {
		t.Errorf("over position = %+v", p)
	}
}
