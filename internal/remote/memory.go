package remote

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/theirongolddev/tripburn/internal/model"
)

// Memory is an in-process Backend. Records are ordered by creation.
type Memory struct {
	mu           sync.Mutex
	destinations []model.RemoteDestination
	expenses     []model.RemoteExpense
	shares       map[string]model.Share
	calls        map[string]int
	clock        time.Time

	// Fail, when set, is returned (wrapped as unavailable) by every call.
	Fail error
}

// NewMemory returns an empty backend.
func NewMemory() *Memory {
	return &Memory{
		shares: make(map[string]model.Share),
		calls:  make(map[string]int),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Calls returns how many times op was invoked, e.g. "InsertExpenses".
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	if m.Fail != nil {
		return Unavailable(op, m.Fail)
	}
	return nil
}

func (m *Memory) withExpenses(d model.RemoteDestination) model.RemoteDestination {
	d.Expenses = nil
	for _, e := range m.expenses {
		if e.DestinationID == d.ID {
			d.Expenses = append(d.Expenses, e)
		}
	}
	return d
}

func (m *Memory) ListDestinations(_ context.Context, ownerID string) ([]model.RemoteDestination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListDestinations"); err != nil {
		return nil, err
	}
	var out []model.RemoteDestination
	for _, d := range m.destinations {
		if d.OwnerID == ownerID {
			out = append(out, m.withExpenses(d))
		}
	}
	return out, nil
}

func (m *Memory) GetDestination(_ context.Context, id string) (model.RemoteDestination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetDestination"); err != nil {
		return model.RemoteDestination{}, err
	}
	for _, d := range m.destinations {
		if d.ID == id {
			return m.withExpenses(d), nil
		}
	}
	return model.RemoteDestination{}, ErrNotFound
}

func (m *Memory) InsertDestination(_ context.Context, d model.RemoteDestination) (model.RemoteDestination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertDestination"); err != nil {
		return model.RemoteDestination{}, err
	}
	m.clock = m.clock.Add(time.Second)
	d.ID = uuid.NewString()
	d.CreatedAt = m.clock
	d.Expenses = nil
	m.destinations = append(m.destinations, d)
	return d, nil
}

func (m *Memory) UpdateDestination(_ context.Context, id string, patch DestinationPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateDestination"); err != nil {
		return err
	}
	for i, d := range m.destinations {
		if d.ID != id {
			continue
		}
		d.Budget = patch.Budget
		d.Nights = patch.Nights
		if patch.EndDate != "" {
			d.EndDate = patch.EndDate
		}
		if patch.Coordinates != nil {
			d.Coordinates = patch.Coordinates
		}
		m.destinations[i] = d
		return nil
	}
	return ErrNotFound
}

func (m *Memory) DeleteDestination(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteDestination"); err != nil {
		return err
	}
	m.destinations = slices.DeleteFunc(m.destinations, func(d model.RemoteDestination) bool { return d.ID == id })
	m.expenses = slices.DeleteFunc(m.expenses, func(e model.RemoteExpense) bool { return e.DestinationID == id })
	return nil
}

func (m *Memory) DeleteExpenses(_ context.Context, destinationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteExpenses"); err != nil {
		return err
	}
	m.expenses = slices.DeleteFunc(m.expenses, func(e model.RemoteExpense) bool { return e.DestinationID == destinationID })
	return nil
}

func (m *Memory) InsertExpenses(_ context.Context, rows []model.RemoteExpense) ([]model.RemoteExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertExpenses"); err != nil {
		return nil, err
	}
	out := make([]model.RemoteExpense, len(rows))
	for i, r := range rows {
		r.ID = uuid.NewString()
		out[i] = r
	}
	m.expenses = append(m.expenses, out...)
	return out, nil
}

func (m *Memory) UpsertShare(_ context.Context, share model.Share) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpsertShare"); err != nil {
		return err
	}
	if share.UpdatedAt.IsZero() {
		m.clock = m.clock.Add(time.Second)
		share.UpdatedAt = m.clock
	}
	share.Payload = append([]byte(nil), share.Payload...)
	m.shares[share.Code] = share
	return nil
}

func (m *Memory) FetchShare(_ context.Context, code string) (model.Share, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FetchShare"); err != nil {
		return model.Share{}, err
	}
	s, ok := m.shares[code]
	if !ok {
		return model.Share{}, ErrNotFound
	}
	return s, nil
}
