// Package tracker is the single entry point for changing budget state. Every mutation
// goes through the state store, which persists and then fires the change hook; the
// hook recomputes analytics, refreshes the alert set and schedules a remote push.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/tripburn/internal/alerts"
	"github.com/theirongolddev/tripburn/internal/analytics"
	"github.com/theirongolddev/tripburn/internal/cloudsync"
	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/money"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/state"
	"github.com/theirongolddev/tripburn/internal/store"
)

// Options configures Open.
type Options struct {
	DB             *store.DB
	Backend        remote.Backend // nil keeps the tracker local-only
	OwnerID        string
	Debounce       time.Duration
	RotateInterval time.Duration // 0 disables timed alert rotation
	HomeSymbol     string
	Logger         logrus.FieldLogger
	Observer       cloudsync.Observer
}

// Change describes one pass of the pipeline for a destination.
type Change struct {
	Slug          string
	Summary       analytics.Summary
	AlertsChanged bool
}

// Tracker is safe for concurrent use.
type Tracker struct {
	db     *store.DB
	reg    *registry.Registry
	states *state.Store
	sync   *cloudsync.Client
	gen    *alerts.Generator
	money  money.Formatter
	log    *logrus.Entry
	now    func() time.Time

	subMu     sync.RWMutex
	nextSubID int
	subs      map[int]func(Change)
}

// Open loads the registry and state from opts.DB and wires the pipeline.
func Open(opts Options) (*Tracker, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("tracker: no database")
	}
	reg := registry.New()
	if err := reg.Load(opts.DB); err != nil {
		return nil, fmt.Errorf("loading destinations: %w", err)
	}
	states := state.New(opts.DB, reg)
	states.SetLogger(logging.Component(opts.Logger, "state"))
	if err := states.Load(); err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}

	t := &Tracker{
		db:     opts.DB,
		reg:    reg,
		states: states,
		gen:    alerts.NewGenerator(opts.RotateInterval),
		money:  money.Formatter{Symbol: opts.HomeSymbol},
		log:    logging.Component(opts.Logger, "tracker"),
		now:    time.Now,
		subs:   make(map[int]func(Change)),
	}
	t.sync = cloudsync.New(cloudsync.Options{
		Backend:  opts.Backend,
		OwnerID:  opts.OwnerID,
		Registry: reg,
		State:    states,
		Blobs:    opts.DB,
		Journal:  opts.DB,
		Debounce: opts.Debounce,
		Logger:   opts.Logger,
		Observer: opts.Observer,
	})
	states.OnChange(t.onChange)
	t.refreshAlerts()
	return t, nil
}

func (t *Tracker) onChange(slugs []string, origin state.Origin) {
	for _, slug := range slugs {
		if !t.reg.Has(slug) {
			continue
		}
		t.recompute(slug)
		if origin == state.Local {
			t.sync.SchedulePush(slug)
		}
	}
}

// recompute derives the summary for slug, refreshes alerts when it is the active
// destination and notifies subscribers.
func (t *Tracker) recompute(slug string) {
	st, err := t.states.Ensure(slug)
	if err != nil {
		t.log.WithError(err).WithField("slug", slug).Warn("recompute skipped")
		return
	}
	sum := analytics.Compute(st)
	changed := false
	if slug == t.reg.Active() {
		changed = t.gen.Update(t.evaluate(sum, st))
	}
	t.emit(Change{Slug: slug, Summary: sum, AlertsChanged: changed})
}

func (t *Tracker) evaluate(sum analytics.Summary, st model.DestinationState) []model.Alert {
	return alerts.Evaluate(alerts.Input{
		Summary:  sum,
		Expenses: st.Expenses,
		Today:    t.now(),
		Money:    t.money.Format,
	})
}

// refreshAlerts rebuilds the alert set for the active destination.
func (t *Tracker) refreshAlerts() {
	slug := t.reg.Active()
	if slug == "" {
		t.gen.Update(nil)
		return
	}
	t.recompute(slug)
}

// Subscribe registers fn to run after every pipeline pass. fn runs on the mutating
// goroutine and must not block. The returned func unsubscribes.
func (t *Tracker) Subscribe(fn func(Change)) (unsubscribe func()) {
	t.subMu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subs[id] = fn
	t.subMu.Unlock()
	return func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

func (t *Tracker) emit(c Change) {
	t.subMu.RLock()
	fns := make([]func(Change), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.subMu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Sync returns the remote sync client.
func (t *Tracker) Sync() *cloudsync.Client { return t.sync }

// Generator returns the alert generator for the active destination.
func (t *Tracker) Generator() *alerts.Generator { return t.gen }

// Money formats home-currency amounts.
func (t *Tracker) Money(v float64) string { return t.money.Format(v) }

// Reload re-reads destinations and state written by another process. It does not
// schedule a push.
func (t *Tracker) Reload() error {
	if err := t.reg.Load(t.db); err != nil {
		return fmt.Errorf("reloading destinations: %w", err)
	}
	if err := t.states.Load(); err != nil {
		return fmt.Errorf("reloading state: %w", err)
	}
	for _, slug := range t.reg.Slugs() {
		t.recompute(slug)
	}
	if t.reg.Active() == "" {
		t.gen.Update(nil)
	}
	return nil
}

// Close pushes anything still pending and stops alert rotation. A remote failure is
// returned but local state is already durable.
func (t *Tracker) Close(ctx context.Context) error {
	err := t.sync.Flush(ctx)
	t.gen.Close()
	return err
}
