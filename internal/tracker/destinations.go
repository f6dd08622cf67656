package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/state"
)

var (
	// ErrUnknownExpense is returned when no expense has the given local id.
	ErrUnknownExpense = errors.New("tracker: unknown expense")
	// ErrNoDestination is returned when an operation needs a destination and none exists.
	ErrNoDestination = errors.New("tracker: no destination selected")
)

// Destinations returns every destination config in display order.
func (t *Tracker) Destinations() []model.DestinationConfig {
	return t.reg.All()
}

// Destination returns the config for slug ("" for the active one).
func (t *Tracker) Destination(slug string) (model.DestinationConfig, error) {
	slug = t.resolve(slug)
	if slug == "" {
		return model.DestinationConfig{}, ErrNoDestination
	}
	cfg, ok := t.reg.Get(slug)
	if !ok {
		return model.DestinationConfig{}, fmt.Errorf("%w: %s", registry.ErrUnknownDestination, slug)
	}
	return cfg, nil
}

// Active returns the selected destination slug.
func (t *Tracker) Active() string {
	return t.reg.Active()
}

// AddDestination registers a destination and creates its empty state.
func (t *Tracker) AddDestination(p registry.AddParams) (model.DestinationConfig, error) {
	cfg, err := t.reg.Add(p)
	if err != nil {
		return model.DestinationConfig{}, err
	}
	if err := t.reg.Save(t.db); err != nil {
		_ = t.reg.Remove(cfg.Slug)
		return model.DestinationConfig{}, err
	}
	if err := t.states.Mutate(cfg.Slug, func(*model.DestinationState) error { return nil }); err != nil {
		return cfg, err
	}
	t.log.WithField("slug", cfg.Slug).Info("destination added")
	return cfg, nil
}

// RemoveDestination deletes a destination and its state. When the destination was
// synced its remote records are deleted too; a remote failure is logged and does not
// undo the local removal.
func (t *Tracker) RemoveDestination(ctx context.Context, slug string) error {
	cfg, err := t.Destination(slug)
	if err != nil {
		return err
	}
	wasActive := cfg.Slug == t.reg.Active()
	if err := t.reg.Remove(cfg.Slug); err != nil {
		return err
	}
	if err := t.reg.Save(t.db); err != nil {
		return err
	}
	if err := t.states.Remove(cfg.Slug); err != nil {
		return fmt.Errorf("removing state: %w", err)
	}
	t.log.WithField("slug", cfg.Slug).Info("destination removed")

	if cfg.RemoteID != "" && t.sync.Connected() {
		if err := t.sync.Forget(ctx, cfg); err != nil {
			t.log.WithError(err).WithField("slug", cfg.Slug).Warn("remote delete failed")
		}
	}
	if wasActive {
		t.refreshAlerts()
	}
	return nil
}

// Select makes slug the active destination and rebuilds the alert set for it.
func (t *Tracker) Select(slug string) error {
	if err := t.reg.Select(slug); err != nil {
		return err
	}
	if err := t.reg.Save(t.db); err != nil {
		return err
	}
	t.refreshAlerts()
	return nil
}

// ToHome converts a local-currency amount for cfg into home currency.
func ToHome(amount float64, cfg model.DestinationConfig) float64 {
	return money.ConvertBack(amount, cfg.ExchangeRate)
}

// ToLocal converts a home-currency amount into cfg's local currency.
func ToLocal(amount float64, cfg model.DestinationConfig) float64 {
	return money.Convert(amount, cfg.ExchangeRate)
}

// Export serializes the full state map.
func (t *Tracker) Export(format state.Format) ([]byte, error) {
	return t.states.Export(format)
}

// Import replaces all state with the document in data. A malformed document returns
// a *state.ImportParseError and changes nothing. Every destination is pushed after.
func (t *Tracker) Import(data []byte, format state.Format) error {
	parsed, err := t.states.ParseImport(data, format)
	if err != nil {
		return err
	}
	if err := t.states.ReplaceAll(state.Local, parsed); err != nil {
		return err
	}
	t.log.WithField("destinations", len(parsed)).Info("state imported")
	return nil
}
