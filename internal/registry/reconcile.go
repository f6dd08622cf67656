package registry

import (
	"slices"
	"strings"

	"github.com/theirongolddev/tripburn/internal/merge"
	"github.com/theirongolddev/tripburn/internal/model"
)

// ReconcileResult is the outcome of folding remote records into local state.
type ReconcileResult struct {
	States  map[string]model.DestinationState
	Touched []string // slugs that received at least one remote record, in first-touch order
	Skipped []string // ids (or locations) of malformed records
}

type pending struct {
	cfg      model.DestinationConfig
	ids      []string
	nights   int
	budget   float64
	expenses []model.Expense
}

// Reconcile folds remote destination records into the registry and returns the new
// state map. Records that share a slug are collapsed additively; slugs without a remote
// record are returned unchanged. states is not modified.
func (r *Registry) Reconcile(states map[string]model.DestinationState, records []model.RemoteDestination) ReconcileResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := ReconcileResult{States: make(map[string]model.DestinationState, len(states))}
	for s, st := range states {
		res.States[s] = st.Clone()
	}

	groups := make(map[string]*pending)
	for _, rec := range records {
		if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.Location) == "" {
			skipped := rec.ID
			if skipped == "" {
				skipped = rec.Location
			}
			res.Skipped = append(res.Skipped, skipped)
			continue
		}

		slug := r.slugForRecordLocked(rec, groups)
		g, ok := groups[slug]
		if !ok {
			prev, exists := r.configs[slug]
			if !exists {
				prev = model.DestinationConfig{Slug: slug}
			}
			g = &pending{cfg: prev}
			groups[slug] = g
			res.Touched = append(res.Touched, slug)
		}
		g.ids = append(g.ids, rec.ID)
		g.nights += max(rec.Nights, 0)
		if rec.Budget > 0 {
			g.budget += rec.Budget
		}
		g.cfg = configFromRecord(g.cfg, rec)
		for _, re := range rec.Expenses {
			g.expenses = append(g.expenses, ExpenseFromRemote(re))
		}
	}

	for _, slug := range res.Touched {
		g := groups[slug]
		cfg := g.cfg
		cfg.RemoteID, cfg.LinkedRemoteIDs = primaryAndLinked(cfg.RemoteID, g.ids)
		if g.nights > 0 {
			cfg.PlannedDurationDays = g.nights
		}
		cfg = normalize(cfg)
		if _, ok := r.configs[slug]; !ok {
			r.order = append(r.order, slug)
			delete(r.removed, slug)
		}
		r.configs[slug] = cfg
		if r.active == "" {
			r.active = slug
		}

		local := res.States[slug].Expenses
		fresh := make(map[string]bool, len(g.expenses))
		for _, e := range g.expenses {
			fresh[e.RemoteID] = true
		}
		realigned := make([]model.Expense, len(local))
		for i, e := range local {
			if e.RemoteID != "" && !fresh[e.RemoteID] {
				e.RemoteID = ""
			}
			realigned[i] = e
		}

		duration := g.nights
		if duration <= 0 {
			duration = cfg.PlannedDurationDays
			if p, ok := Preset(slug); ok {
				duration = p.PlannedDurationDays
			}
		}
		res.States[slug] = model.DestinationState{
			Budget:       g.budget,
			DurationDays: duration,
			Expenses:     merge.Merge(slug, realigned, g.expenses),
		}
	}
	return res
}

func (r *Registry) slugForRecordLocked(rec model.RemoteDestination, groups map[string]*pending) string {
	if s := r.slugForRemoteIDLocked(rec.ID); s != "" {
		return s
	}
	for s, g := range groups {
		if slices.Contains(g.ids, rec.ID) {
			return s
		}
	}
	base := Slugify(rec.Location)
	cfg, ok := r.configs[base]
	if g, inPass := groups[base]; inPass {
		cfg, ok = g.cfg, true
	}
	if !ok || cfg.RemoteID == "" {
		return base
	}
	if sameName(cfg.Name, rec.Location) || (rec.Coordinates != nil && sameName(cfg.Name, string(rec.Coordinates.Country))) {
		return base
	}
	id := rec.ID
	if len(id) > 6 {
		id = id[:6]
	}
	return base + "-" + strings.ToLower(id)
}

func sameName(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// primaryAndLinked keeps the current primary when it is still present remotely;
// otherwise the first record becomes primary.
func primaryAndLinked(current string, ids []string) (string, []string) {
	primary := ids[0]
	if slices.Contains(ids, current) {
		primary = current
	}
	var linked []string
	for _, id := range ids {
		if id != primary {
			linked = append(linked, id)
		}
	}
	return primary, linked
}

func configFromRecord(prev model.DestinationConfig, rec model.RemoteDestination) model.DestinationConfig {
	cfg := prev
	preset, _ := Preset(prev.Slug)

	switch {
	case rec.Coordinates != nil && strings.TrimSpace(string(rec.Coordinates.Country)) != "":
		cfg.Name = strings.TrimSpace(string(rec.Coordinates.Country))
	case cfg.Name == "":
		cfg.Name = strings.TrimSpace(rec.Location)
	}

	var cur model.RemoteCurrency
	if rec.Coordinates != nil && rec.Coordinates.Currency != nil {
		cur = *rec.Coordinates.Currency
	}
	cfg.CurrencyCode = firstNonEmpty(cur.Code, prev.CurrencyCode, preset.CurrencyCode, "GBP")
	cfg.CurrencySymbol = firstNonEmpty(cur.Symbol, prev.CurrencySymbol, preset.CurrencySymbol, "£")
	switch {
	case cur.Rate > 0:
		cfg.ExchangeRate = cur.Rate
	case prev.ExchangeRate > 0:
	case preset.ExchangeRate > 0:
		cfg.ExchangeRate = preset.ExchangeRate
	default:
		cfg.ExchangeRate = 1
	}
	if cfg.Flag == "" {
		cfg.Flag = firstNonEmpty(preset.Flag, DefaultFlag)
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ExpenseFromRemote converts a remote expense row to a local expense without a local id.
func ExpenseFromRemote(re model.RemoteExpense) model.Expense {
	date := strings.TrimSpace(re.Date)
	if len(date) > len(model.DateLayout) {
		date = date[:len(model.DateLayout)]
	}
	return model.Expense{
		Amount:      re.Amount,
		Description: strings.TrimSpace(re.Notes),
		Date:        date,
		Category:    model.ParseCategory(re.Category),
		RemoteID:    re.ID,
	}
}
