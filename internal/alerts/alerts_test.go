package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/model"
)

// 2024-01-03 is a Wednesday.
var wednesday = time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)

func evaluate(st model.DestinationState, today time.Time) []model.Alert {
	return Evaluate(Input{Summary: analytics.Compute(st), Expenses: st.Expenses, Today: today})
}

func spend(amount float64, date string) model.Expense {
	return model.Expense{Amount: amount, Date: date, Category: model.CategoryFood, Description: "x"}
}

func find(alerts []model.Alert, tone model.Tone, substr string) bool {
	for _, a := range alerts {
		if a.Tone == tone && strings.Contains(a.Message, substr) {
			return true
		}
	}
	return false
}

func TestEvaluateBudgetExhausted(t *testing.T) {
	st := model.DestinationState{Budget: 500, DurationDays: 10, Expenses: []model.Expense{spend(520, "2024-01-01")}}
	got := evaluate(st, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	assert.True(t, find(got, model.ToneDanger, "£20.00 over plan"), "alerts: %+v", got)
	assert.True(t, find(got, model.ToneDanger, "over the weekly target"), "alerts: %+v", got)
	assert.False(t, find(got, model.ToneInfo, "Set an overall budget"))
}

func TestEvaluateBudgetFullyUsed(t *testing.T) {
	st := model.DestinationState{Budget: 100, DurationDays: 2, Expenses: []model.Expense{spend(100, "2024-01-01")}}
	got := evaluate(st, wednesday)
	assert.True(t, find(got, model.ToneWarning, "Budget fully used"), "alerts: %+v", got)
}

func TestEvaluateEmptyState(t *testing.T) {
	got := evaluate(model.DestinationState{DurationDays: 7}, wednesday)
	require.Len(t, got, 2)
	assert.Equal(t, model.ToneInfo, got[0].Tone)
	assert.Contains(t, got[0].Message, "Set an overall budget")
	assert.Contains(t, got[1].Message, "No spending logged yet")
}

func TestEvaluateStreaks(t *testing.T) {
	// target 10/day
	over := model.DestinationState{Budget: 100, DurationDays: 10, Expenses: []model.Expense{
		spend(11, "2023-12-20"), spend(12, "2023-12-21"), spend(13, "2023-12-22"),
	}}
	got := evaluate(over, wednesday)
	assert.True(t, find(got, model.ToneDanger, "three days in a row"), "alerts: %+v", got)
	assert.True(t, find(got, model.ToneWarning, "gone over budget on 3 days"))

	efficient := model.DestinationState{Budget: 100, DurationDays: 10, Expenses: []model.Expense{
		spend(5, "2023-12-20"), spend(7, "2023-12-21"), spend(2, "2023-12-22"),
	}}
	got = evaluate(efficient, wednesday)
	assert.True(t, find(got, model.ToneSuccess, "Three efficient days"), "alerts: %+v", got)
	assert.True(t, find(got, model.ToneSuccess, "under your daily target on 3 days"))
	assert.True(t, find(got, model.ToneSuccess, "well under your daily target of £10.00"))
}

func TestEvaluateWeeklyUnder(t *testing.T) {
	// Monday..Wednesday elapsed: weekly target 3 x 20 = 60, spent 10.
	st := model.DestinationState{Budget: 200, DurationDays: 10, Expenses: []model.Expense{spend(10, "2024-01-02")}}
	got := evaluate(st, wednesday)
	assert.True(t, find(got, model.ToneSuccess, "£50.00 under the weekly target"), "alerts: %+v", got)
}

func TestEvaluateProjection(t *testing.T) {
	// target 10/day over 10 days; one day at 30 leaves 70 at 30/day = 2.3 days vs 9 needed.
	st := model.DestinationState{Budget: 100, DurationDays: 10, Expenses: []model.Expense{spend(30, "2023-12-01")}}
	got := evaluate(st, wednesday)
	assert.True(t, find(got, model.ToneDanger, "run out in about 2.3 days (plan needs 9 days)"), "alerts: %+v", got)

	noPlan := model.DestinationState{Budget: 100, Expenses: []model.Expense{spend(30, "2023-12-01")}}
	got = evaluate(noPlan, wednesday)
	assert.True(t, find(got, model.ToneInfo, "use the remaining budget in about 2.3 days"), "alerts: %+v", got)
}

func TestFormatDays(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{-1, "less than a day"},
		{0, "less than a day"},
		{1.2, "about 1 day"},
		{2.34, "2.3 days"},
		{12.6, "13 days"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDays(tt.in), "FormatDays(%v)", tt.in)
	}
}

func TestGeneratorIdempotent(t *testing.T) {
	g := NewGenerator(0)
	defer g.Close()

	alerts := []model.Alert{{Tone: model.ToneInfo, Message: "a"}, {Tone: model.ToneWarning, Message: "b"}}
	require.True(t, g.Update(alerts))
	g.Advance()
	require.Equal(t, "b", g.Current().Message)

	assert.False(t, g.Update(alerts), "identical input re-rendered")
	assert.Equal(t, 1, g.Restarts())
	assert.Equal(t, "b", g.Current().Message, "rotation reset on identical input")

	changed := []model.Alert{{Tone: model.ToneDanger, Message: "a"}, {Tone: model.ToneWarning, Message: "b"}}
	assert.True(t, g.Update(changed))
	assert.Equal(t, 2, g.Restarts())
	assert.Equal(t, "a", g.Current().Message)
}

func TestGeneratorPlaceholder(t *testing.T) {
	g := NewGenerator(0)
	assert.Equal(t, Placeholder, g.Current())
	assert.False(t, g.Update(nil))

	g.Update([]model.Alert{{Tone: model.ToneInfo, Message: "x"}})
	assert.True(t, g.Update(nil))
	assert.Equal(t, []model.Alert{Placeholder}, g.All())
}

func TestGeneratorRotates(t *testing.T) {
	g := NewGenerator(10 * time.Millisecond)
	defer g.Close()

	rotated := make(chan model.Alert, 8)
	g.OnRotate(func(a model.Alert) {
		select {
		case rotated <- a:
		default:
		}
	})
	g.Update([]model.Alert{{Tone: model.ToneInfo, Message: "first"}, {Tone: model.ToneInfo, Message: "second"}})

	select {
	case a := <-rotated:
		assert.Equal(t, "second", a.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no rotation within 2s")
	}
}

func TestGeneratorSingleAlertDoesNotRotate(t *testing.T) {
	g := NewGenerator(5 * time.Millisecond)
	defer g.Close()
	var calls int
	g.OnRotate(func(model.Alert) { calls++ })
	g.Update([]model.Alert{{Tone: model.ToneInfo, Message: "only"}})
	time.Sleep(30 * time.Millisecond)
	g.Close()
	assert.Zero(t, calls)
}
