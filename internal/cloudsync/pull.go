package cloudsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/state"
)

// PullResult summarizes a pull.
type PullResult struct {
	Records int      // remote records fetched
	Touched []string // slugs that received remote data
	Skipped []string // malformed records
}

// Pull fetches remote destinations and folds them into local state. With a slug
// bound to remote records only those records are fetched; otherwise every record
// owned by this client is. Slugs without remote records keep their local state.
func (c *Client) Pull(ctx context.Context, slug string) (PullResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.pull(ctx, slug)
}

// Bootstrap runs the startup sync: pull, and when the backend holds nothing for
// this owner seed it from local state and pull the assigned ids back.
func (c *Client) Bootstrap(ctx context.Context) (PullResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	res, err := c.pull(ctx, "")
	if err != nil || res.Records > 0 {
		return res, err
	}
	c.log.Info("remote is empty, seeding from local state")
	for _, slug := range c.reg.Slugs() {
		if err := c.push(ctx, slug); err != nil {
			return res, err
		}
	}
	return c.pull(ctx, "")
}

func (c *Client) pull(ctx context.Context, slug string) (PullResult, error) {
	if err := c.requireConnected(); err != nil {
		return PullResult{}, err
	}

	records, err := c.fetch(ctx, slug)
	if err != nil {
		return PullResult{}, c.failed("pull", slug, err)
	}

	release := c.Suppress()
	defer release()
	var rec registry.ReconcileResult
	err = c.states.ReplaceWith(state.Remote, func(current map[string]model.DestinationState) map[string]model.DestinationState {
		rec = c.reg.Reconcile(current, records)
		if len(rec.Touched) == 0 {
			return nil
		}
		return rec.States
	})
	res := PullResult{Records: len(records), Touched: rec.Touched, Skipped: rec.Skipped}
	for _, s := range rec.Skipped {
		c.log.WithField("record", s).Warn("skipping malformed remote destination")
	}
	if err != nil {
		return res, fmt.Errorf("applying pulled state: %w", err)
	}
	if len(rec.Touched) > 0 {
		if err := c.saveRegistry(); err != nil {
			return res, fmt.Errorf("saving registry: %w", err)
		}
	}

	c.log.WithField("records", len(records)).
		WithField("touched", len(rec.Touched)).
		Debug("pulled destinations")
	c.succeeded("pull", slug, pullMessage(res))
	return res, nil
}

func (c *Client) fetch(ctx context.Context, slug string) ([]model.RemoteDestination, error) {
	cfg, ok := c.reg.Get(slug)
	if slug == "" || !ok || cfg.RemoteID == "" {
		return c.backend.ListDestinations(ctx, c.owner)
	}

	ids := append([]string{cfg.RemoteID}, cfg.LinkedRemoteIDs...)
	var out []model.RemoteDestination
	for _, id := range ids {
		d, err := c.backend.GetDestination(ctx, id)
		if errors.Is(err, remote.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func pullMessage(res PullResult) string {
	switch len(res.Touched) {
	case 0:
		return "Nothing new from the cloud"
	case 1:
		return "Loaded 1 destination from the cloud"
	default:
		return fmt.Sprintf("Loaded %d destinations from the cloud", len(res.Touched))
	}
}
