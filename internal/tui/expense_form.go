package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

const (
	currencyHome  = "home"
	currencyLocal = "local"
)

// expenseValues backs the add-expense form fields.
type expenseValues struct {
	amount      string
	currency    string
	description string
	category    string
	date        string
	repeat      string
}

func defaultExpenseValues(now time.Time) *expenseValues {
	return &expenseValues{
		currency: currencyHome,
		category: string(model.CategoryFood),
		date:     now.Format(model.DateLayout),
		repeat:   "0",
	}
}

func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", "")), 64)
	if err != nil || v <= 0 {
		return 0, errors.New("enter an amount greater than zero")
	}
	return v, nil
}

func validateRepeat(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > tracker.MaxRepeatDays {
		return fmt.Errorf("enter 0 to %d", tracker.MaxRepeatDays)
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(model.DateLayout, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func newExpenseForm(cfg model.DestinationConfig, v *expenseValues) *huh.Form {
	categories := make([]huh.Option[string], len(model.Categories))
	for i, c := range model.Categories {
		categories[i] = huh.NewOption(c.Label(), string(c))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Amount").
			Placeholder("0.00").
			Validate(func(s string) error { _, err := parseAmount(s); return err }).
			Value(&v.amount),
	}
	if cfg.ExchangeRate > 0 && cfg.ExchangeRate != 1 && cfg.CurrencyCode != "" {
		fields = append(fields, huh.NewSelect[string]().
			Title("Currency").
			Options(
				huh.NewOption("Home currency", currencyHome),
				huh.NewOption(fmt.Sprintf("%s (%s)", cfg.CurrencyCode, cfg.CurrencySymbol), currencyLocal),
			).
			Value(&v.currency))
	}
	fields = append(fields,
		huh.NewInput().
			Title("Description").
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("description is required")
				}
				return nil
			}).
			Value(&v.description),
		huh.NewSelect[string]().
			Title("Category").
			Options(categories...).
			Value(&v.category),
		huh.NewInput().
			Title("Date").
			Validate(validateDate).
			Value(&v.date),
		huh.NewInput().
			Title("Repeat on following days").
			Description("Adds one copy per extra day, e.g. nightly accommodation").
			Validate(validateRepeat).
			Value(&v.repeat),
	)

	return huh.NewForm(huh.NewGroup(fields...)).
		WithTheme(huh.ThemeCharm()).
		WithShowHelp(true)
}

// input converts the form values to a tracker input in home currency.
func (v *expenseValues) input(cfg model.DestinationConfig) (tracker.ExpenseInput, error) {
	amount, err := parseAmount(v.amount)
	if err != nil {
		return tracker.ExpenseInput{}, err
	}
	if v.currency == currencyLocal {
		amount = tracker.ToHome(amount, cfg)
	}
	repeat, _ := strconv.Atoi(strings.TrimSpace(v.repeat))
	return tracker.ExpenseInput{
		Amount:      amount,
		Description: v.description,
		Date:        strings.TrimSpace(v.date),
		Category:    v.category,
		RepeatDays:  repeat,
	}, nil
}

func (a App) updateExpenseForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		a.form, a.formVals = nil, nil
		return a, nil
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}

	switch a.form.State {
	case huh.StateCompleted:
		a.saveExpense()
		a.form, a.formVals = nil, nil
		return a, nil
	case huh.StateAborted:
		a.form, a.formVals = nil, nil
		return a, nil
	}
	return a, cmd
}

func (a *App) saveExpense() {
	cfg, ok := a.activeConfig()
	if !ok || a.formVals == nil {
		return
	}
	in, err := a.formVals.input(cfg)
	if err != nil {
		a.setFlash(err.Error(), true)
		return
	}
	added, err := a.tr.AddExpense(cfg.Slug, in)
	if err != nil {
		a.setFlash("not saved: "+err.Error(), true)
		return
	}
	msg := fmt.Sprintf("Added %s · %s", a.tr.Money(added[0].Amount), added[0].Description)
	if len(added) > 1 {
		msg = fmt.Sprintf("Added %s × %d days · %s", a.tr.Money(added[0].Amount), len(added), added[0].Description)
	}
	a.setFlash(msg, false)
	a.refresh()
}
