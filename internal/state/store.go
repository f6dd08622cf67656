// Package state owns the per-destination budget and expense state and its persistence.
package state

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/registry"
)

// BlobKey is the storage key of the versioned state document.
const BlobKey = "state.v2"

// CorruptKey holds the last state document that could not be decoded.
const CorruptKey = BlobKey + ".corrupt"

// ErrUnknownDestination is returned for slugs the registry does not know.
var ErrUnknownDestination = registry.ErrUnknownDestination

// BlobStore persists opaque documents by key. GetBlob returns nil, nil for a missing key.
type BlobStore interface {
	GetBlob(key string) ([]byte, error)
	PutBlob(key string, data []byte) error
}

// Store holds every destination's state. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	blobs  BlobStore
	reg    *registry.Registry
	states map[string]model.DestinationState
	lastID int64

	hookMu   sync.RWMutex
	onChange func(slugs []string, origin Origin)

	log logrus.FieldLogger
	now func() time.Time
}

// New returns an empty store. Call Load to read persisted state.
func New(blobs BlobStore, reg *registry.Registry) *Store {
	return &Store{
		blobs:  blobs,
		reg:    reg,
		states: make(map[string]model.DestinationState),
		log:    logging.Discard(),
		now:    time.Now,
	}
}

// SetLogger sets the logger used for recoverable load problems.
func (s *Store) SetLogger(l logrus.FieldLogger) {
	if l != nil {
		s.log = l
	}
}

// Origin tells the change hook who made a mutation.
type Origin int

const (
	// Local changes come from the user and need pushing.
	Local Origin = iota
	// Remote changes were written by the sync client from backend data.
	Remote
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "local"
}

// OnChange registers the hook run after every successful mutation, outside the store lock.
func (s *Store) OnChange(fn func(slugs []string, origin Origin)) {
	s.hookMu.Lock()
	s.onChange = fn
	s.hookMu.Unlock()
}

func (s *Store) notify(slugs []string, origin Origin) {
	s.hookMu.RLock()
	fn := s.onChange
	s.hookMu.RUnlock()
	if fn != nil && len(slugs) > 0 {
		fn(slugs, origin)
	}
}

// Ensure returns a normalized copy of the state for slug.
func (s *Store) Ensure(slug string) (model.DestinationState, error) {
	cfg, ok := s.reg.Get(slug)
	if !ok {
		return model.DestinationState{}, fmt.Errorf("%w: %s", ErrUnknownDestination, slug)
	}
	s.mu.RLock()
	st, ok := s.states[slug]
	s.mu.RUnlock()
	if !ok {
		return emptyState(cfg), nil
	}
	return normalize(st.Clone(), cfg), nil
}

func emptyState(cfg model.DestinationConfig) model.DestinationState {
	return model.DestinationState{DurationDays: max(cfg.PlannedDurationDays, 0), Expenses: []model.Expense{}}
}

func normalize(st model.DestinationState, cfg model.DestinationConfig) model.DestinationState {
	if math.IsNaN(st.Budget) || math.IsInf(st.Budget, 0) || st.Budget < 0 {
		st.Budget = 0
	}
	if st.DurationDays <= 0 {
		st.DurationDays = max(cfg.PlannedDurationDays, 0)
	}
	if st.Expenses == nil {
		st.Expenses = []model.Expense{}
	}
	return st
}

// Mutate applies fn to a working copy of slug's state, persists the full map and then
// runs the change hook. If fn or persistence fails nothing changes.
func (s *Store) Mutate(slug string, fn func(*model.DestinationState) error) error {
	return s.MutateFrom(Local, slug, fn)
}

// MutateFrom is Mutate with the origin reported to the change hook.
func (s *Store) MutateFrom(origin Origin, slug string, fn func(*model.DestinationState) error) error {
	cfg, ok := s.reg.Get(slug)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDestination, slug)
	}

	s.mu.Lock()
	prev, existed := s.states[slug]
	work := emptyState(cfg)
	if existed {
		work = normalize(prev.Clone(), cfg)
	}
	if err := fn(&work); err != nil {
		s.mu.Unlock()
		return err
	}
	work = normalize(work, cfg)
	s.assignIDsLocked(work.Expenses)
	s.states[slug] = work
	if err := s.persistLocked(); err != nil {
		if existed {
			s.states[slug] = prev
		} else {
			delete(s.states, slug)
		}
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify([]string{slug}, origin)
	return nil
}

// ReplaceAll swaps in a complete state map, persists it and runs the change hook for
// every registered slug. Slugs the registry does not know are dropped and registered
// slugs missing from states start from defaults.
func (s *Store) ReplaceAll(origin Origin, states map[string]model.DestinationState) error {
	return s.ReplaceWith(origin, func(map[string]model.DestinationState) map[string]model.DestinationState {
		return states
	})
}

// ReplaceWith is ReplaceAll with the new map computed from the current one while the
// store lock is held, so no other mutation lands between the read and the write. fn
// receives normalized copies and may change the registry. A nil result leaves
// everything unchanged.
func (s *Store) ReplaceWith(origin Origin, fn func(current map[string]model.DestinationState) map[string]model.DestinationState) error {
	s.mu.Lock()
	current := make(map[string]model.DestinationState, len(s.states))
	for _, slug := range s.reg.Slugs() {
		cfg, _ := s.reg.Get(slug)
		st, ok := s.states[slug]
		if !ok {
			current[slug] = emptyState(cfg)
			continue
		}
		current[slug] = normalize(st.Clone(), cfg)
	}

	states := fn(current)
	if states == nil {
		s.mu.Unlock()
		return nil
	}

	slugs := s.reg.Slugs()
	next := make(map[string]model.DestinationState, len(slugs))
	for _, slug := range slugs {
		cfg, _ := s.reg.Get(slug)
		st, ok := states[slug]
		if !ok {
			st = emptyState(cfg)
		}
		st = normalize(st.Clone(), cfg)
		s.assignIDsLocked(st.Expenses)
		next[slug] = st
	}

	prev := s.states
	s.states = next
	if err := s.persistLocked(); err != nil {
		s.states = prev
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(slugs, origin)
	return nil
}

// Remove drops slug's state and persists.
func (s *Store) Remove(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, slug)
	return s.persistLocked()
}

// Snapshot returns normalized copies of every registered destination's state.
func (s *Store) Snapshot() map[string]model.DestinationState {
	out := make(map[string]model.DestinationState)
	for _, slug := range s.reg.Slugs() {
		if st, err := s.Ensure(slug); err == nil {
			out[slug] = st
		}
	}
	return out
}

// Load reads the persisted document. Unknown slugs are dropped and malformed fields
// fall back to defaults. A document that is not an object at all is copied to
// CorruptKey and every destination starts from its defaults. Only a storage read
// failure is an error.
func (s *Store) Load() error {
	data, err := s.blobs.GetBlob(BlobKey)
	if err != nil {
		return fmt.Errorf("reading state: %w", err)
	}
	loaded := make(map[string]model.DestinationState)
	if len(data) > 0 {
		decoded, derr := s.decode(data)
		if derr == nil {
			loaded = decoded
		} else {
			s.log.WithError(derr).WithField("backup", CorruptKey).
				Warn("state document unreadable, starting from defaults")
			if err := s.blobs.PutBlob(CorruptKey, data); err != nil {
				s.log.WithError(err).Warn("saving unreadable state document")
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[string]model.DestinationState)
	for _, slug := range s.reg.Slugs() {
		cfg, _ := s.reg.Get(slug)
		st, ok := loaded[slug]
		if !ok {
			st = emptyState(cfg)
		}
		st = normalize(st, cfg)
		for _, e := range st.Expenses {
			s.lastID = max(s.lastID, e.ID)
		}
		s.states[slug] = st
	}
	for _, st := range s.states {
		s.assignIDsLocked(st.Expenses)
	}
	return nil
}

// Persist writes the full state map.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.states)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := s.blobs.PutBlob(BlobKey, data); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// NextExpenseID returns a fresh local expense id. Ids increase within a process and
// are seeded from wall-clock microseconds so separate processes rarely collide.
func (s *Store) NextExpenseID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *Store) nextIDLocked() int64 {
	id := max(s.lastID+1, s.now().UnixMicro())
	s.lastID = id
	return id
}

func (s *Store) assignIDsLocked(expenses []model.Expense) {
	for i := range expenses {
		if expenses[i].ID == 0 {
			expenses[i].ID = s.nextIDLocked()
		} else {
			s.lastID = max(s.lastID, expenses[i].ID)
		}
	}
}
