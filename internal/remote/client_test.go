package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/theirongolddev/tripburn/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{URL: srv.URL, APIKey: "anon", RequestsPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := NewClient(Options{URL: "not a url"}); err == nil {
		t.Error("expected error for url without scheme")
	}
}

func TestListDestinations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/destinations" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("owner_id"); got != "eq.owner-1" {
			t.Errorf("owner_id = %q", got)
		}
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer anon" {
			t.Errorf("auth headers = %v", r.Header)
		}
		_, _ = io.WriteString(w, `[{"id":"d1","location":"Laos","nights":14,"budget":300,
			"coordinates":{"currency":{"code":"LAK","symbol":"₭","rate":25000}},
			"destination_expenses":[{"id":"e1","destination_id":"d1","category":"food","amount":4.5,"date":"2024-01-01","notes":"Noodles"}]}]`)
	})

	got, err := c.ListDestinations(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListDestinations: %v", err)
	}
	if len(got) != 1 || got[0].Coordinates.Currency.Code != "LAK" || len(got[0].Expenses) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Expenses[0].Notes != "Noodles" {
		t.Errorf("notes = %q", got[0].Expenses[0].Notes)
	}
}

func TestInsertExpensesSendsArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Prefer") != "return=representation" {
			t.Errorf("method=%s prefer=%q", r.Method, r.Header.Get("Prefer"))
		}
		var rows []model.RemoteExpense
		if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		for i := range rows {
			if rows[i].ID != "" {
				t.Errorf("row %d sent with id %q", i, rows[i].ID)
			}
			rows[i].ID = "new-" + rows[i].Notes
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	out, err := c.InsertExpenses(context.Background(), []model.RemoteExpense{
		{ID: "stale", DestinationID: "d1", Amount: 1, Notes: "a"},
		{DestinationID: "d1", Amount: 2, Notes: "b"},
	})
	if err != nil {
		t.Fatalf("InsertExpenses: %v", err)
	}
	if len(out) != 2 || out[0].ID != "new-a" || out[1].ID != "new-b" {
		t.Errorf("out = %+v", out)
	}
}

func TestUpdateDestinationNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	err := c.UpdateDestination(context.Background(), "gone", DestinationPatch{Budget: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{http.StatusForbidden, func(err error) bool { return errors.Is(err, ErrUnauthorized) }},
		{http.StatusTooManyRequests, func(err error) bool { return errors.Is(err, ErrRateLimited) }},
		{http.StatusBadGateway, IsUnavailable},
		{http.StatusBadRequest, func(err error) bool { return err != nil && strings.Contains(err.Error(), "400") }},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = io.WriteString(w, `{"message":"nope"}`)
		})
		_, err := c.FetchShare(context.Background(), "ABC")
		if !tt.check(err) {
			t.Errorf("status %d: err = %v", tt.status, err)
		}
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Options{URL: url})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ListDestinations(context.Background(), "x")
	if !IsUnavailable(err) {
		t.Errorf("err = %v, want unavailable", err)
	}
}

func TestFetchShareEmptyIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("share_code"); got != "eq.TRIP-1" {
			t.Errorf("share_code = %q", got)
		}
		_, _ = io.WriteString(w, `[]`)
	})
	if _, err := c.FetchShare(context.Background(), "TRIP-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListDestinationsAcceptsCountryObjectAndSkipsBadRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id":"a1","location":"Bangkok","nights":7,"budget":250,
			 "coordinates":{"country":{"name":"Thailand","code":"TH"},"currency":{"code":"THB","symbol":"฿","rate":44}}},
			{"id":"b2","location":"Hanoi","nights":5,"budget":150,"coordinates":{"country":"Vietnam"}},
			{"id":"c3","location":"Vientiane","nights":"three"},
			{"id":"d4","location":"Phnom Penh","coordinates":{"country":null}}
		]`)
	})

	got, err := c.ListDestinations(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListDestinations: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d records, want 4", len(got))
	}
	if got[0].Coordinates.Country != "Thailand" || got[0].Coordinates.Currency.Code != "THB" {
		t.Errorf("record a1 = %+v", got[0].Coordinates)
	}
	if got[1].Coordinates.Country != "Vietnam" {
		t.Errorf("record b2 country = %q", got[1].Coordinates.Country)
	}
	if got[2].ID != "c3" || got[2].Location != "" {
		t.Errorf("malformed record = %+v, want id only", got[2])
	}
	if got[3].Location != "Phnom Penh" || got[3].Coordinates.Country != "" {
		t.Errorf("record d4 = %+v", got[3])
	}
}

func TestGetDestinationCountryObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"id":"a1","location":"Chiang Mai","coordinates":{"country":{"name":"Thailand"}}}]`)
	})
	got, err := c.GetDestination(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetDestination: %v", err)
	}
	if got.Coordinates == nil || got.Coordinates.Country != "Thailand" {
		t.Errorf("coordinates = %+v", got.Coordinates)
	}
}
