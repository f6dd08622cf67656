package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/state"
)

// Push replaces the remote copy of slug with its current local state. The remote
// record is created when the slug is unbound or its bound record has gone away.
// Secondary records collapsed into slug by an earlier pull are deleted.
func (c *Client) Push(ctx context.Context, slug string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.push(ctx, slug)
}

// PushAll pushes every registered destination. It keeps going after a failure and
// returns the first error.
func (c *Client) PushAll(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var first error
	for _, slug := range c.reg.Slugs() {
		if err := c.push(ctx, slug); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Client) push(ctx context.Context, slug string) error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	cfg, ok := c.reg.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %s", state.ErrUnknownDestination, slug)
	}
	st, err := c.states.Ensure(slug)
	if err != nil {
		return err
	}

	start := time.Now()
	id, err := c.upsertDestination(ctx, cfg, st)
	if err != nil {
		return c.failed("push", slug, err)
	}
	for _, linked := range cfg.LinkedRemoteIDs {
		if err := c.backend.DeleteDestination(ctx, linked); err != nil && !errors.Is(err, remote.ErrNotFound) {
			return c.failed("push", slug, err)
		}
	}
	if err := c.backend.DeleteExpenses(ctx, id); err != nil {
		return c.failed("push", slug, err)
	}

	var inserted []model.RemoteExpense
	if len(st.Expenses) > 0 {
		inserted, err = c.backend.InsertExpenses(ctx, expenseRows(id, st.Expenses))
		if err != nil {
			return c.failed("push", slug, err)
		}
	}

	if cfg.RemoteID != id || len(cfg.LinkedRemoteIDs) > 0 {
		if err := c.reg.SetRemoteID(slug, id); err != nil {
			return err
		}
		if err := c.saveRegistry(); err != nil {
			return fmt.Errorf("saving registry: %w", err)
		}
	}
	if err := c.writeBackRemoteIDs(slug, st.Expenses, inserted); err != nil {
		return fmt.Errorf("recording remote expense ids: %w", err)
	}

	c.log.WithField("slug", slug).
		WithField("remote_id", id).
		WithField("expenses", len(st.Expenses)).
		WithField("took", time.Since(start).Round(time.Millisecond)).
		Debug("pushed destination")
	c.succeeded("push", slug, fmt.Sprintf("Saved %s", cfg.Name))
	return nil
}

func (c *Client) upsertDestination(ctx context.Context, cfg model.DestinationConfig, st model.DestinationState) (string, error) {
	coords := coordinates(cfg)
	if cfg.RemoteID != "" {
		err := c.backend.UpdateDestination(ctx, cfg.RemoteID, remote.DestinationPatch{
			Budget:      money.Round2(st.Budget),
			Nights:      st.DurationDays,
			Coordinates: coords,
		})
		if err == nil {
			return cfg.RemoteID, nil
		}
		if !errors.Is(err, remote.ErrNotFound) {
			return "", err
		}
		c.log.WithField("slug", cfg.Slug).WithField("remote_id", cfg.RemoteID).
			Info("remote destination missing, recreating")
	}

	today := c.now()
	created, err := c.backend.InsertDestination(ctx, model.RemoteDestination{
		OwnerID:     c.owner,
		Location:    cfg.Name,
		StartDate:   today.Format(model.DateLayout),
		EndDate:     today.AddDate(0, 0, st.DurationDays).Format(model.DateLayout),
		Nights:      st.DurationDays,
		Budget:      money.Round2(st.Budget),
		Coordinates: coords,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func coordinates(cfg model.DestinationConfig) *model.RemoteCoordinates {
	return &model.RemoteCoordinates{
		Country: model.RemoteCountry(cfg.Name),
		Currency: &model.RemoteCurrency{
			Code:   cfg.CurrencyCode,
			Symbol: cfg.CurrencySymbol,
			Rate:   cfg.ExchangeRate,
		},
	}
}

func expenseRows(destinationID string, expenses []model.Expense) []model.RemoteExpense {
	rows := make([]model.RemoteExpense, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, model.RemoteExpense{
			DestinationID: destinationID,
			Category:      string(e.Category),
			Amount:        money.Round2(e.Amount),
			Date:          e.Date,
			Notes:         e.Description,
		})
	}
	return rows
}

// writeBackRemoteIDs stamps the ids the backend assigned onto the local expenses that
// were pushed, matched by local id. Expenses added since the push snapshot keep theirs.
func (c *Client) writeBackRemoteIDs(slug string, pushed []model.Expense, inserted []model.RemoteExpense) error {
	ids := make(map[int64]string, len(pushed))
	for i, e := range pushed {
		if i < len(inserted) && inserted[i].ID != "" {
			ids[e.ID] = inserted[i].ID
		}
	}
	changed := false
	for _, e := range pushed {
		if rid, ok := ids[e.ID]; ok && rid != e.RemoteID {
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}

	release := c.Suppress()
	defer release()
	return c.states.MutateFrom(state.Remote, slug, func(st *model.DestinationState) error {
		for i := range st.Expenses {
			if rid, ok := ids[st.Expenses[i].ID]; ok {
				st.Expenses[i].RemoteID = rid
			}
		}
		return nil
	})
}

// Forget deletes every remote record bound to cfg. Local state is not touched.
func (c *Client) Forget(ctx context.Context, cfg model.DestinationConfig) error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()

	ids := append([]string{cfg.RemoteID}, cfg.LinkedRemoteIDs...)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := c.backend.DeleteDestination(ctx, id); err != nil && !errors.Is(err, remote.ErrNotFound) {
			return c.failed("delete", cfg.Slug, err)
		}
	}
	c.succeeded("delete", cfg.Slug, "Removed "+cfg.Name+" from the cloud")
	return nil
}
