// Package registry keeps the ordered set of destination configurations.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/tripburn/internal/model"
)

// BlobKey is the storage key for destination overrides.
const BlobKey = "destinations.v1"

var (
	ErrDuplicateDestination = errors.New("registry: destination already exists")
	ErrUnknownDestination   = errors.New("registry: unknown destination")
)

// BlobStore persists opaque documents by key. GetBlob returns nil, nil for a missing key.
type BlobStore interface {
	GetBlob(key string) ([]byte, error)
	PutBlob(key string, data []byte) error
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	configs map[string]model.DestinationConfig
	removed map[string]bool
	active  string
}

// New returns a registry seeded with the built-in presets.
func New() *Registry {
	r := &Registry{
		configs: make(map[string]model.DestinationConfig),
		removed: make(map[string]bool),
	}
	for _, p := range presets {
		r.order = append(r.order, p.Slug)
		r.configs[p.Slug] = p
	}
	r.active = r.order[0]
	return r
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a destination slug from a display name.
func Slugify(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return fmt.Sprintf("destination-%d", time.Now().UnixMilli())
	}
	return s
}

// AddParams describes a new destination. Zero values take defaults.
type AddParams struct {
	Name                string
	CurrencyCode        string
	CurrencySymbol      string
	ExchangeRate        float64
	PlannedDurationDays int
	Flag                string
}

// Add registers a destination and returns its normalized config.
func (r *Registry) Add(p AddParams) (model.DestinationConfig, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return model.DestinationConfig{}, errors.New("registry: destination name is required")
	}
	cfg := normalize(model.DestinationConfig{
		Slug:                Slugify(name),
		Name:                name,
		CurrencyCode:        p.CurrencyCode,
		CurrencySymbol:      p.CurrencySymbol,
		ExchangeRate:        p.ExchangeRate,
		PlannedDurationDays: p.PlannedDurationDays,
		Flag:                p.Flag,
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.Slug]; ok {
		return model.DestinationConfig{}, fmt.Errorf("%w: %s", ErrDuplicateDestination, cfg.Slug)
	}
	delete(r.removed, cfg.Slug)
	r.order = append(r.order, cfg.Slug)
	r.configs[cfg.Slug] = cfg
	if r.active == "" {
		r.active = cfg.Slug
	}
	return cfg, nil
}

func normalize(cfg model.DestinationConfig) model.DestinationConfig {
	cfg.CurrencyCode = strings.ToUpper(strings.TrimSpace(cfg.CurrencyCode))
	if cfg.CurrencyCode == "" {
		cfg.CurrencyCode = "GBP"
	}
	cfg.CurrencySymbol = strings.TrimSpace(cfg.CurrencySymbol)
	if cfg.CurrencySymbol == "" {
		if cfg.CurrencyCode == "GBP" {
			cfg.CurrencySymbol = "£"
		} else {
			cfg.CurrencySymbol = cfg.CurrencyCode
		}
	}
	switch {
	case cfg.ExchangeRate == 0 || math.IsNaN(cfg.ExchangeRate) || math.IsInf(cfg.ExchangeRate, 0):
		cfg.ExchangeRate = 1
	case cfg.ExchangeRate < 0.0001:
		cfg.ExchangeRate = 0.0001
	}
	if cfg.PlannedDurationDays < 1 {
		cfg.PlannedDurationDays = 7
	}
	if strings.TrimSpace(cfg.Flag) == "" {
		cfg.Flag = DefaultFlag
	}
	return cfg
}

// Remove deletes a destination. If it was active, the first remaining slug becomes active.
func (r *Registry) Remove(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[slug]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, slug)
	}
	delete(r.configs, slug)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == slug })
	if _, ok := Preset(slug); ok {
		r.removed[slug] = true
	}
	if r.active == slug {
		r.active = ""
		if len(r.order) > 0 {
			r.active = r.order[0]
		}
	}
	return nil
}

// Get returns the config for slug.
func (r *Registry) Get(slug string) (model.DestinationConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[slug]
	if ok {
		cfg.LinkedRemoteIDs = slices.Clone(cfg.LinkedRemoteIDs)
	}
	return cfg, ok
}

// Has reports whether slug is registered.
func (r *Registry) Has(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.configs[slug]
	return ok
}

// Slugs returns registered slugs in insertion order.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// All returns every config in insertion order.
func (r *Registry) All() []model.DestinationConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.DestinationConfig, 0, len(r.order))
	for _, s := range r.order {
		cfg := r.configs[s]
		cfg.LinkedRemoteIDs = slices.Clone(cfg.LinkedRemoteIDs)
		out = append(out, cfg)
	}
	return out
}

// Active returns the selected slug, or "" when no destinations exist.
func (r *Registry) Active() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Select makes slug the active destination.
func (r *Registry) Select(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[slug]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, slug)
	}
	r.active = slug
	return nil
}

// SetRemoteID binds slug to its primary remote record and drops any linked records.
func (r *Registry) SetRemoteID(slug, remoteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[slug]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, slug)
	}
	cfg.RemoteID = remoteID
	cfg.LinkedRemoteIDs = nil
	r.configs[slug] = cfg
	return nil
}

// ClearRemoteIDs unbinds every destination from the remote backend.
func (r *Registry) ClearRemoteIDs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s, cfg := range r.configs {
		cfg.RemoteID = ""
		cfg.LinkedRemoteIDs = nil
		r.configs[s] = cfg
	}
}

// SlugForRemoteID returns the slug bound to a remote record id, primary or linked.
func (r *Registry) SlugForRemoteID(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slugForRemoteIDLocked(id)
}

func (r *Registry) slugForRemoteIDLocked(id string) string {
	if id == "" {
		return ""
	}
	for _, s := range r.order {
		cfg := r.configs[s]
		if cfg.RemoteID == id || slices.Contains(cfg.LinkedRemoteIDs, id) {
			return s
		}
	}
	return ""
}

type override struct {
	Name     string   `json:"name,omitempty"`
	Duration int      `json:"duration,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Symbol   string   `json:"symbol,omitempty"`
	Rate     float64  `json:"rate,omitempty"`
	Flag     string   `json:"flag,omitempty"`
	RemoteID string   `json:"remote_id,omitempty"`
	Linked   []string `json:"linked_remote_ids,omitempty"`
	Removed  bool     `json:"removed,omitempty"`
}

type document struct {
	Active       string              `json:"active,omitempty"`
	Order        []string            `json:"order,omitempty"`
	Destinations map[string]override `json:"destinations"`
}

// Load replaces the registry contents with presets plus stored overrides.
// A missing or unreadable document leaves the presets in place.
func (r *Registry) Load(blobs BlobStore) error {
	data, err := blobs.GetBlob(BlobKey)
	if err != nil {
		return fmt.Errorf("reading destinations: %w", err)
	}
	fresh := New()
	if len(data) > 0 {
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decoding destinations: %w", err)
		}
		fresh.apply(doc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.order, r.configs, r.removed, r.active = fresh.order, fresh.configs, fresh.removed, fresh.active
	return nil
}

func (r *Registry) apply(doc document) {
	for slug, o := range doc.Destinations {
		if o.Removed {
			delete(r.configs, slug)
			r.removed[slug] = true
			continue
		}
		base, ok := r.configs[slug]
		if !ok {
			base = model.DestinationConfig{Slug: slug, Name: slug}
		}
		if o.Name != "" {
			base.Name = o.Name
		}
		if o.Duration > 0 {
			base.PlannedDurationDays = o.Duration
		}
		if o.Currency != "" {
			base.CurrencyCode = o.Currency
		}
		if o.Symbol != "" {
			base.CurrencySymbol = o.Symbol
		}
		if o.Rate > 0 {
			base.ExchangeRate = o.Rate
		}
		if o.Flag != "" {
			base.Flag = o.Flag
		}
		base.RemoteID = o.RemoteID
		base.LinkedRemoteIDs = slices.Clone(o.Linked)
		r.configs[slug] = normalize(base)
	}

	// Stored order first, then anything not mentioned (new presets) in preset order.
	var order []string
	seen := make(map[string]bool)
	for _, s := range doc.Order {
		if _, ok := r.configs[s]; ok && !seen[s] {
			order = append(order, s)
			seen[s] = true
		}
	}
	for _, s := range r.order {
		if _, ok := r.configs[s]; ok && !seen[s] {
			order = append(order, s)
			seen[s] = true
		}
	}
	var extra []string
	for s := range r.configs {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	slices.Sort(extra)
	r.order = append(order, extra...)

	r.active = ""
	if _, ok := r.configs[doc.Active]; ok {
		r.active = doc.Active
	} else if len(r.order) > 0 {
		r.active = r.order[0]
	}
}

// Save writes overrides for every destination that differs from its preset.
func (r *Registry) Save(blobs BlobStore) error {
	r.mu.RLock()
	doc := document{
		Active:       r.active,
		Order:        slices.Clone(r.order),
		Destinations: make(map[string]override),
	}
	for s := range r.removed {
		doc.Destinations[s] = override{Removed: true}
	}
	for _, s := range r.order {
		cfg := r.configs[s]
		if p, ok := Preset(s); ok && sameConfig(p, cfg) {
			continue
		}
		doc.Destinations[s] = override{
			Name:     cfg.Name,
			Duration: cfg.PlannedDurationDays,
			Currency: cfg.CurrencyCode,
			Symbol:   cfg.CurrencySymbol,
			Rate:     cfg.ExchangeRate,
			Flag:     cfg.Flag,
			RemoteID: cfg.RemoteID,
			Linked:   slices.Clone(cfg.LinkedRemoteIDs),
		}
	}
	r.mu.RUnlock()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding destinations: %w", err)
	}
	if err := blobs.PutBlob(BlobKey, data); err != nil {
		return fmt.Errorf("writing destinations: %w", err)
	}
	return nil
}

func sameConfig(a, b model.DestinationConfig) bool {
	return a.Name == b.Name &&
		a.CurrencyCode == b.CurrencyCode &&
		a.CurrencySymbol == b.CurrencySymbol &&
		a.ExchangeRate == b.ExchangeRate &&
		a.PlannedDurationDays == b.PlannedDurationDays &&
		a.Flag == b.Flag &&
		a.RemoteID == b.RemoteID &&
		len(a.LinkedRemoteIDs) == 0 && len(b.LinkedRemoteIDs) == 0
}
