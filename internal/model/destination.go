// Package model defines domain types for tripburn destinations, expenses and alerts.
package model

// DestinationConfig is the static description of a destination. Slug is its identity.
type DestinationConfig struct {
	Slug                string
	Name                string
	CurrencyCode        string
	CurrencySymbol      string
	ExchangeRate        float64 // local units per one home unit
	PlannedDurationDays int
	Flag                string

	// RemoteID is the primary remote destination record this slug syncs to.
	RemoteID string
	// LinkedRemoteIDs are secondary remote records that were collapsed into this slug by a pull.
	LinkedRemoteIDs []string
}

// DestinationState is the mutable budget and spend for one destination.
type DestinationState struct {
	Budget       float64   `json:"budget" yaml:"budget"`
	DurationDays int       `json:"durationDays" yaml:"durationDays"`
	Expenses     []Expense `json:"expenses" yaml:"expenses"`
}

// Clone returns a deep copy of the state.
func (s DestinationState) Clone() DestinationState {
	out := s
	out.Expenses = make([]Expense, len(s.Expenses))
	copy(out.Expenses, s.Expenses)
	return out
}

// ExpenseIndex returns the position of the expense with the given local id, or -1.
func (s DestinationState) ExpenseIndex(id int64) int {
	for i, e := range s.Expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}
