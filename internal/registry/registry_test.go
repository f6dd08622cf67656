package registry

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/theirongolddev/tripburn/internal/model"
)

type memBlobs map[string][]byte

func (m memBlobs) GetBlob(key string) ([]byte, error) { return m[key], nil }
func (m memBlobs) PutBlob(key string, data []byte) error {
	m[key] = append([]byte(nil), data...)
	return nil
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Thailand", "thailand"},
		{"  New Zealand ", "new-zealand"},
		{"São Paulo!!", "s-o-paulo"},
		{"--Bali--", "bali"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := Slugify("!!!"); !strings.HasPrefix(got, "destination-") {
		t.Errorf("Slugify(%q) = %q, want destination- prefix", "!!!", got)
	}
}

func TestNewHasPresetsInOrder(t *testing.T) {
	r := New()
	slugs := r.Slugs()
	if len(slugs) != 7 {
		t.Fatalf("len(Slugs) = %d, want 7", len(slugs))
	}
	if slugs[0] != "thailand" || slugs[6] != "indonesia" {
		t.Errorf("Slugs = %v, want thailand first and indonesia last", slugs)
	}
	if r.Active() != "thailand" {
		t.Errorf("Active = %q, want thailand", r.Active())
	}
	cfg, _ := r.Get("laos")
	if cfg.CurrencyCode != "LAK" || cfg.ExchangeRate != 25000 || cfg.PlannedDurationDays != 14 {
		t.Errorf("laos preset = %+v", cfg)
	}
}

func TestAddDefaultsAndDuplicate(t *testing.T) {
	r := New()
	cfg, err := r.Add(AddParams{Name: "Japan", CurrencyCode: "jpy", ExchangeRate: 190})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cfg.Slug != "japan" || cfg.CurrencyCode != "JPY" || cfg.CurrencySymbol != "JPY" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PlannedDurationDays != 7 || cfg.Flag != DefaultFlag {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	_, err = r.Add(AddParams{Name: "japan"})
	if !errors.Is(err, ErrDuplicateDestination) {
		t.Fatalf("second Add err = %v, want ErrDuplicateDestination", err)
	}

	gbp, _ := r.Add(AddParams{Name: "Home", ExchangeRate: 0.00000001})
	if gbp.CurrencySymbol != "£" || gbp.ExchangeRate != 0.0001 {
		t.Errorf("GBP defaults = %+v", gbp)
	}
}

func TestRemoveActiveFallsBack(t *testing.T) {
	r := New()
	if err := r.Remove("thailand"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if r.Active() != "laos" {
		t.Errorf("Active = %q, want laos", r.Active())
	}
	if err := r.Remove("thailand"); !errors.Is(err, ErrUnknownDestination) {
		t.Errorf("Remove twice err = %v, want ErrUnknownDestination", err)
	}
	for _, s := range r.Slugs() {
		_ = r.Remove(s)
	}
	if r.Active() != "" {
		t.Errorf("Active after removing all = %q, want empty", r.Active())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	blobs := memBlobs{}
	r := New()
	if _, err := r.Add(AddParams{Name: "Japan", CurrencyCode: "JPY", CurrencySymbol: "¥", ExchangeRate: 190, PlannedDurationDays: 10}); err != nil {
		t.Fatal(err)
	}
	_ = r.Remove("laos")
	_ = r.Select("japan")
	_ = r.SetRemoteID("vietnam", "rv")
	if err := r.Save(blobs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := New()
	if err := loaded.Load(blobs); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Has("laos") {
		t.Error("removed preset came back after Load")
	}
	if loaded.Active() != "japan" {
		t.Errorf("Active = %q, want japan", loaded.Active())
	}
	jp, ok := loaded.Get("japan")
	if !ok || jp.CurrencySymbol != "¥" || jp.PlannedDurationDays != 10 {
		t.Errorf("japan = %+v, ok=%v", jp, ok)
	}
	vn, _ := loaded.Get("vietnam")
	if vn.RemoteID != "rv" {
		t.Errorf("vietnam.RemoteID = %q, want rv", vn.RemoteID)
	}
	if got := loaded.Slugs(); got[len(got)-1] != "japan" {
		t.Errorf("Slugs = %v, want japan last", got)
	}
}

func TestLoadMissingKeepsPresets(t *testing.T) {
	r := New()
	if err := r.Load(memBlobs{}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(r.Slugs()) != 7 {
		t.Errorf("len(Slugs) = %d, want 7", len(r.Slugs()))
	}
}

func TestReconcileAdoptsPresetAndMerges(t *testing.T) {
	r := New()
	states := map[string]model.DestinationState{
		"thailand": {Budget: 100, DurationDays: 60, Expenses: []model.Expense{
			{ID: 1, Amount: 12, Description: "Taxi", Date: "2024-01-01", Category: model.CategoryTransport},
		}},
		"laos": {Budget: 50, DurationDays: 14},
	}
	records := []model.RemoteDestination{{
		ID: "r-thai", Location: "Thailand", Nights: 30, Budget: 900,
		Expenses: []model.RemoteExpense{{ID: "e1", Amount: 12, Notes: "Taxi", Date: "2024-01-01", Category: "transport"}},
	}}

	res := r.Reconcile(states, records)
	th := res.States["thailand"]
	if th.Budget != 900 || th.DurationDays != 30 {
		t.Errorf("thailand budget/duration = %v/%d, want 900/30", th.Budget, th.DurationDays)
	}
	if len(th.Expenses) != 1 || th.Expenses[0].RemoteID != "e1" || th.Expenses[0].ID != 1 {
		t.Errorf("thailand expenses = %+v", th.Expenses)
	}
	if res.States["laos"].Budget != 50 {
		t.Error("local-only destination changed")
	}
	cfg, _ := r.Get("thailand")
	if cfg.RemoteID != "r-thai" || cfg.CurrencyCode != "THB" {
		t.Errorf("thailand cfg = %+v", cfg)
	}
	if states["thailand"].Expenses[0].RemoteID != "" {
		t.Error("input states modified")
	}
}

func TestReconcileCollapsesAdditively(t *testing.T) {
	r := New()
	records := []model.RemoteDestination{
		{ID: "a", Location: "Japan", Nights: 5, Budget: 300,
			Coordinates: &model.RemoteCoordinates{Currency: &model.RemoteCurrency{Code: "JPY", Symbol: "¥", Rate: 190}}},
		{ID: "b", Location: "japan", Nights: 3, Budget: 200},
	}
	res := r.Reconcile(map[string]model.DestinationState{}, records)
	if len(res.Touched) != 1 || res.Touched[0] != "japan" {
		t.Fatalf("Touched = %v, want [japan]", res.Touched)
	}
	st := res.States["japan"]
	if st.Budget != 500 || st.DurationDays != 8 {
		t.Errorf("japan = %v/%d, want 500/8", st.Budget, st.DurationDays)
	}
	cfg, _ := r.Get("japan")
	if cfg.RemoteID != "a" || len(cfg.LinkedRemoteIDs) != 1 || cfg.LinkedRemoteIDs[0] != "b" {
		t.Errorf("remote ids = %q %v", cfg.RemoteID, cfg.LinkedRemoteIDs)
	}
	if cfg.CurrencySymbol != "¥" || cfg.PlannedDurationDays != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestReconcileSuffixesCollidingNames(t *testing.T) {
	r := New()
	if _, err := r.Add(AddParams{Name: "New York"}); err != nil {
		t.Fatal(err)
	}
	_ = r.SetRemoteID("new-york", "other")
	res := r.Reconcile(nil, []model.RemoteDestination{{ID: "abcdef123", Location: "New-York!", Nights: 2, Budget: 10}})
	if len(res.Touched) != 1 || res.Touched[0] != "new-york-abcdef" {
		t.Errorf("Touched = %v, want [new-york-abcdef]", res.Touched)
	}
}

func TestReconcileClearsStaleRemoteIDs(t *testing.T) {
	r := New()
	_ = r.SetRemoteID("vietnam", "rv")
	states := map[string]model.DestinationState{
		"vietnam": {Budget: 10, DurationDays: 30, Expenses: []model.Expense{
			{ID: 4, Amount: 3, Description: "Pho", Date: "2024-02-01", Category: model.CategoryFood, RemoteID: "old"},
		}},
	}
	records := []model.RemoteDestination{{ID: "rv", Location: "Vietnam", Nights: 30, Budget: 10,
		Expenses: []model.RemoteExpense{{ID: "new", Amount: 3, Notes: "Pho", Date: "2024-02-01", Category: "food"}}}}

	res := r.Reconcile(states, records)
	got := res.States["vietnam"].Expenses
	if len(got) != 1 || got[0].RemoteID != "new" || got[0].ID != 4 {
		t.Errorf("expenses = %+v, want one expense id 4 remote new", got)
	}
}

func TestReconcileSkipsMalformedAndEmpty(t *testing.T) {
	r := New()
	states := map[string]model.DestinationState{"laos": {Budget: 5, DurationDays: 14}}
	res := r.Reconcile(states, []model.RemoteDestination{{ID: "", Location: "Nowhere"}, {ID: "x", Location: " "}})
	if len(res.Skipped) != 2 || len(res.Touched) != 0 {
		t.Errorf("Skipped=%v Touched=%v", res.Skipped, res.Touched)
	}
	if res.States["laos"].Budget != 5 {
		t.Error("states changed by malformed records")
	}
}

func TestReconcileNamesFromCountryObject(t *testing.T) {
	var records []model.RemoteDestination
	body := `[{"id":"r1","location":"Bangkok","nights":4,"budget":120,"coordinates":{"country":{"name":"Thailand"}}},
		{"id":"r2","location":"Bangkok","nights":2,"budget":60,"coordinates":{"country":{"name":"thailand "}}}]`
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("decoding records: %v", err)
	}

	r := New()
	res := r.Reconcile(nil, records)
	if len(res.Touched) != 1 || res.Touched[0] != "bangkok" {
		t.Fatalf("Touched = %v, want [bangkok]", res.Touched)
	}
	cfg, _ := r.Get("bangkok")
	if !strings.EqualFold(cfg.Name, "Thailand") {
		t.Errorf("name = %q, want the country name", cfg.Name)
	}
	if res.States["bangkok"].Budget != 180 {
		t.Errorf("budget = %v, want 180", res.States["bangkok"].Budget)
	}
}
