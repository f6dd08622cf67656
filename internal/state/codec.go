package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/tripburn/internal/model"
)

// Format is an export/import document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a flag value or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json or yaml)", s)
}

// ImportParseError reports a document that could not be read as a state map.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string { return "import: malformed document: " + e.Err.Error() }
func (e *ImportParseError) Unwrap() error { return e.Err }

// IsImportParse reports whether err is an *ImportParseError.
func IsImportParse(err error) bool {
	var pe *ImportParseError
	return errors.As(err, &pe)
}

// Export renders every destination's state as an indented JSON object keyed by slug.
func (s *Store) Export(format Format) ([]byte, error) {
	snap := s.Snapshot()
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

// ParseImport decodes an exported document into normalized states for registered
// slugs. It does not modify the store.
func (s *Store) ParseImport(data []byte, format Format) (map[string]model.DestinationState, error) {
	if format == FormatYAML {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &ImportParseError{Err: err}
		}
		if doc == nil {
			return nil, &ImportParseError{Err: errors.New("document is empty")}
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, &ImportParseError{Err: err}
		}
	}
	states, err := s.decode(data)
	if err != nil {
		return nil, &ImportParseError{Err: err}
	}

	out := make(map[string]model.DestinationState)
	for _, slug := range s.reg.Slugs() {
		st, ok := states[slug]
		if !ok {
			continue
		}
		cfg, _ := s.reg.Get(slug)
		out[slug] = normalize(st, cfg)
	}
	return out, nil
}

type rawState struct {
	Budget       json.RawMessage `json:"budget"`
	DurationDays json.RawMessage `json:"durationDays"`
	Expenses     json.RawMessage `json:"expenses"`
}

type rawExpense struct {
	ID          json.RawMessage `json:"id"`
	Amount      json.RawMessage `json:"amount"`
	Description json.RawMessage `json:"description"`
	Date        json.RawMessage `json:"date"`
	Category    json.RawMessage `json:"category"`
	RemoteID    json.RawMessage `json:"remote_id"`
}

// decode reads a slug-keyed state document leniently: wrong field types fall back to
// defaults instead of failing. Expenses without an id get id 0.
func (s *Store) decode(data []byte) (map[string]model.DestinationState, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("document is not an object")
	}

	today := s.now().Format(model.DateLayout)
	out := make(map[string]model.DestinationState, len(doc))
	for slug, raw := range doc {
		var rs rawState
		if err := json.Unmarshal(raw, &rs); err != nil {
			out[slug] = model.DestinationState{}
			continue
		}
		st := model.DestinationState{Expenses: []model.Expense{}}
		st.Budget, _ = number(rs.Budget)
		if d, ok := number(rs.DurationDays); ok && d >= 1 {
			st.DurationDays = int(math.Round(d))
		}

		var items []json.RawMessage
		if err := json.Unmarshal(rs.Expenses, &items); err == nil {
			for _, item := range items {
				var re rawExpense
				if err := json.Unmarshal(item, &re); err != nil {
					continue
				}
				st.Expenses = append(st.Expenses, expenseFromRaw(re, today))
			}
		}
		out[slug] = st
	}
	return out, nil
}

func expenseFromRaw(re rawExpense, today string) model.Expense {
	e := model.Expense{Category: model.CategoryOther, Date: today}
	if id, ok := number(re.ID); ok && id > 0 {
		e.ID = int64(id)
	}
	if amt, ok := number(re.Amount); ok {
		e.Amount = amt
	}
	e.Description = text(re.Description)
	if d := text(re.Date); d != "" {
		e.Date = d
	}
	if c := text(re.Category); c != "" {
		e.Category = model.ParseCategory(c)
	}
	e.RemoteID = text(re.RemoteID)
	return e
}

// number accepts a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

func text(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return ""
}
