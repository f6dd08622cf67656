package tracker

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
)

// MaxRepeatDays caps how many extra consecutive days AddExpense repeats an entry for.
const MaxRepeatDays = 30

// ExpenseInput is a new expense in home currency. RepeatDays adds one copy on each
// of that many following days; it is clamped to 0..MaxRepeatDays.
type ExpenseInput struct {
	Amount      float64
	Description string
	Date        string
	Category    string
	RepeatDays  int
}

// ExpensePatch changes selected fields of an expense. Nil fields are left alone.
type ExpensePatch struct {
	Amount      *float64
	Description *string
	Date        *string
	Category    *string
}

func validAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid("amount", "must be greater than zero")
	}
	return nil
}

func validDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("date", "is required")
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, invalid("date", fmt.Sprintf("%q is not YYYY-MM-DD", s))
	}
	return d, nil
}

func validDescription(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("description", "is required")
	}
	return s, nil
}

func (t *Tracker) resolve(slug string) string {
	if slug == "" {
		return t.reg.Active()
	}
	return slug
}

// AddExpense records an expense, repeated over consecutive days when requested, and
// returns the stored entries.
func (t *Tracker) AddExpense(slug string, in ExpenseInput) ([]model.Expense, error) {
	slug = t.resolve(slug)
	if err := validAmount(in.Amount); err != nil {
		return nil, err
	}
	start, err := validDate(in.Date)
	if err != nil {
		return nil, err
	}
	desc, err := validDescription(in.Description)
	if err != nil {
		return nil, err
	}
	cat := model.ParseCategory(in.Category)
	repeat := min(max(in.RepeatDays, 0), MaxRepeatDays)

	added := make([]model.Expense, 0, repeat+1)
	for offset := 0; offset <= repeat; offset++ {
		added = append(added, model.Expense{
			ID:          t.states.NextExpenseID(),
			Amount:      money.Round2(in.Amount),
			Description: desc,
			Date:        start.AddDate(0, 0, offset).Format(model.DateLayout),
			Category:    cat,
		})
	}
	err = t.states.Mutate(slug, func(st *model.DestinationState) error {
		st.Expenses = append(st.Expenses, added...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// EditExpense applies patch to the expense with the given local id.
func (t *Tracker) EditExpense(slug string, id int64, patch ExpensePatch) (model.Expense, error) {
	slug = t.resolve(slug)
	if patch.Amount != nil {
		if err := validAmount(*patch.Amount); err != nil {
			return model.Expense{}, err
		}
	}
	if patch.Date != nil {
		if _, err := validDate(*patch.Date); err != nil {
			return model.Expense{}, err
		}
	}
	if patch.Description != nil {
		if _, err := validDescription(*patch.Description); err != nil {
			return model.Expense{}, err
		}
	}

	var out model.Expense
	err := t.states.Mutate(slug, func(st *model.DestinationState) error {
		i := st.ExpenseIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownExpense, id)
		}
		e := &st.Expenses[i]
		if patch.Amount != nil {
			e.Amount = money.Round2(*patch.Amount)
		}
		if patch.Description != nil {
			e.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Date != nil {
			e.Date = strings.TrimSpace(*patch.Date)
		}
		if patch.Category != nil {
			e.Category = model.ParseCategory(*patch.Category)
		}
		out = *e
		return nil
	})
	return out, err
}

// DeleteExpense removes the expense with the given local id.
func (t *Tracker) DeleteExpense(slug string, id int64) error {
	slug = t.resolve(slug)
	return t.states.Mutate(slug, func(st *model.DestinationState) error {
		i := st.ExpenseIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: %d", ErrUnknownExpense, id)
		}
		st.Expenses = slices.Delete(st.Expenses, i, i+1)
		return nil
	})
}

// SetBudget sets the destination's total budget in home currency.
func (t *Tracker) SetBudget(slug string, budget float64) error {
	if math.IsNaN(budget) || math.IsInf(budget, 0) || budget < 0 {
		return invalid("budget", "must be zero or more")
	}
	return t.states.Mutate(t.resolve(slug), func(st *model.DestinationState) error {
		st.Budget = money.Round2(budget)
		return nil
	})
}

// SetDuration sets the planned number of days.
func (t *Tracker) SetDuration(slug string, days int) error {
	if days < 1 {
		return invalid("duration", "must be at least one day")
	}
	return t.states.Mutate(t.resolve(slug), func(st *model.DestinationState) error {
		st.DurationDays = days
		return nil
	})
}

// State returns a copy of the destination's state.
func (t *Tracker) State(slug string) (model.DestinationState, error) {
	return t.states.Ensure(t.resolve(slug))
}

// Summary computes the analytics for a destination ("" for the active one).
func (t *Tracker) Summary(slug string) (analytics.Summary, error) {
	st, err := t.states.Ensure(t.resolve(slug))
	if err != nil {
		return analytics.Summary{}, err
	}
	return analytics.Compute(st), nil
}

// Days returns the per-day breakdown, newest first.
func (t *Tracker) Days(slug string) ([]analytics.Day, error) {
	st, err := t.states.Ensure(t.resolve(slug))
	if err != nil {
		return nil, err
	}
	return analytics.Days(st), nil
}

// Alerts returns the current alert set for the active destination.
func (t *Tracker) Alerts() []model.Alert {
	return t.gen.All()
}

// AlertsFor evaluates the alert battery for any destination without touching the
// rotating set.
func (t *Tracker) AlertsFor(slug string) ([]model.Alert, error) {
	st, err := t.states.Ensure(t.resolve(slug))
	if err != nil {
		return nil, err
	}
	return t.evaluate(analytics.Compute(st), st), nil
}
