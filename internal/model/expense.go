package model

import "strings"

// Category is the fixed set of spend categories.
type Category string

const (
	CategoryAccommodation Category = "accommodation"
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryActivities    Category = "activities"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAccommodation,
	CategoryFood,
	CategoryTransport,
	CategoryActivities,
	CategoryShopping,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryAccommodation: "Accommodation",
	CategoryFood:          "Food & Drinks",
	CategoryTransport:     "Transport",
	CategoryActivities:    "Activities",
	CategoryShopping:      "Shopping",
	CategoryOther:         "Other",
}

// Label returns the human-readable category name.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return categoryLabels[CategoryOther]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// ParseCategory maps free-form input to a category, defaulting to other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// Expense is a single recorded spend. Amount is in the home currency.
type Expense struct {
	ID          int64    `json:"id" yaml:"id"`
	Amount      float64  `json:"amount" yaml:"amount"`
	Description string   `json:"description" yaml:"description"`
	Date        string   `json:"date" yaml:"date"` // YYYY-MM-DD
	Category    Category `json:"category" yaml:"category"`
	RemoteID    string   `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// DateLayout is the calendar date format used for expense dates.
const DateLayout = "2006-01-02"
