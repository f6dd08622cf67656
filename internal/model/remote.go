package model

import (
	"encoding/json"
	"time"
)

// RemoteCurrency is the currency block stored inside a remote destination's coordinates.
type RemoteCurrency struct {
	Code   string  `json:"code,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
}

// RemoteCoordinates is the free-form coordinates column of a remote destination.
type RemoteCoordinates struct {
	Currency *RemoteCurrency `json:"currency,omitempty"`
	Country  RemoteCountry   `json:"country,omitempty"`
}

// RemoteCountry is a country name. Records written by the web app store an object
// with a name field; anything else that is not a string decodes as empty.
type RemoteCountry string

// UnmarshalJSON accepts "Name", {"name":"Name"}, null or any other value.
func (c *RemoteCountry) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = RemoteCountry(name)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*c = RemoteCountry(obj.Name)
		return nil
	}
	*c = ""
	return nil
}

// RemoteDestination mirrors a row of the remote destinations table, with its expenses embedded.
type RemoteDestination struct {
	ID          string             `json:"id,omitempty"`
	OwnerID     string             `json:"owner_id,omitempty"`
	Location    string             `json:"location"`
	StartDate   string             `json:"start_date,omitempty"`
	EndDate     string             `json:"end_date,omitempty"`
	Nights      int                `json:"nights"`
	Budget      float64            `json:"budget"`
	Coordinates *RemoteCoordinates `json:"coordinates,omitempty"`
	CreatedAt   time.Time          `json:"created_at,omitzero"`
	Expenses    []RemoteExpense    `json:"destination_expenses,omitempty"`
}

// RemoteExpense mirrors a row of the remote destination_expenses table.
// Notes carries the expense description.
type RemoteExpense struct {
	ID            string  `json:"id,omitempty"`
	DestinationID string  `json:"destination_id"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Notes         string  `json:"notes"`
}

// Share is a full-state snapshot stored remotely under a share code.
type Share struct {
	Code      string          `json:"share_code"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at,omitzero"`
}
