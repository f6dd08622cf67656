package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/tripburn/internal/config"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/tracker"
	"github.com/theirongolddev/tripburn/internal/tui/theme"
)

type startSetupMsg struct{}

// setupValues backs the first-run form.
type setupValues struct {
	homeCurrency string
	homeSymbol   string
	theme        string
	remoteURL    string
	remoteKey    string
	destination  string
	nights       string
}

func defaultSetupValues() *setupValues {
	return setupValuesFrom(config.DefaultConfig())
}

func setupValuesFrom(cfg config.Config) *setupValues {
	return &setupValues{
		homeCurrency: cfg.General.HomeCurrency,
		homeSymbol:   cfg.General.HomeSymbol,
		theme:        cfg.Appearance.Theme,
		remoteURL:    cfg.Remote.URL,
		remoteKey:    cfg.Remote.APIKey,
	}
}

func newSetupForm(v *setupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themes = append(themes, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Home currency").
				Description("Budgets and expenses are kept in this currency").
				Value(&v.homeCurrency),
			huh.NewInput().
				Title("Home currency symbol").
				Value(&v.homeSymbol),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Sync backend URL").
				Description("Leave blank to keep everything on this machine").
				Value(&v.remoteURL),
			huh.NewInput().
				Title("Sync API key").
				EchoMode(huh.EchoModePassword).
				Value(&v.remoteKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("First destination").
				Description("Optional, e.g. Vietnam").
				Value(&v.destination),
			huh.NewInput().
				Title("Nights planned").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					var n int
					if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &n); err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of nights")
					}
					return nil
				}).
				Value(&v.nights),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}

// apply copies the form values onto cfg.
func (v *setupValues) apply(cfg *config.Config) {
	if c := strings.ToUpper(strings.TrimSpace(v.homeCurrency)); c != "" {
		cfg.General.HomeCurrency = c
	}
	if s := strings.TrimSpace(v.homeSymbol); s != "" {
		cfg.General.HomeSymbol = s
	}
	if v.theme != "" {
		cfg.Appearance.Theme = v.theme
	}
	cfg.Remote.URL = strings.TrimSpace(v.remoteURL)
	cfg.Remote.APIKey = strings.TrimSpace(v.remoteKey)
}

// destinationParams returns the first destination to create, if one was named.
func (v *setupValues) destinationParams() (registry.AddParams, bool) {
	name := strings.TrimSpace(v.destination)
	if name == "" {
		return registry.AddParams{}, false
	}
	p := registry.AddParams{Name: name}
	_, _ = fmt.Sscanf(strings.TrimSpace(v.nights), "%d", &p.PlannedDurationDays)
	return p, true
}

// RunSetup runs the first-run form on its own, saves the config to path and creates
// the first destination when one was named. tr may be nil.
func RunSetup(path string, tr *tracker.Tracker) (config.Config, error) {
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return cfg, err
	}
	v := setupValuesFrom(cfg)
	if err := newSetupForm(v).Run(); err != nil {
		return cfg, err
	}
	v.apply(&cfg)
	if err := config.SaveTo(path, cfg); err != nil {
		return cfg, fmt.Errorf("saving config: %w", err)
	}
	theme.SetActive(cfg.Appearance.Theme)
	if p, ok := v.destinationParams(); ok && tr != nil {
		if _, err := tr.AddDestination(p); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.saveSetup()
		a.setupForm, a.needSetup = nil, false
		a.refresh()
		return a, nil
	case huh.StateAborted:
		a.setupForm, a.needSetup = nil, false
		return a, nil
	}
	return a, cmd
}

func (a *App) saveSetup() {
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	a.setupVals.apply(&cfg)
	theme.SetActive(cfg.Appearance.Theme)
	if err := config.SaveTo(a.configPath, cfg); err != nil {
		a.setFlash("could not save config: "+err.Error(), true)
		return
	}
	if p, ok := a.setupVals.destinationParams(); ok {
		if _, err := a.tr.AddDestination(p); err != nil {
			a.setFlash(err.Error(), true)
			return
		}
	}
	a.setFlash("Saved to "+a.configPath, false)
}
