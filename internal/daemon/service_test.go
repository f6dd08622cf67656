package daemon

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/store"
	"github.com/theirongolddev/tripburn/internal/tracker"
)

func newTestService(t *testing.T, buffer int) (*Service, *tracker.Tracker, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tripburn.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	metrics := NewMetrics()
	tr, err := tracker.Open(tracker.Options{DB: db, Observer: metrics, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("tracker.Open: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close(context.Background()) })

	s := New(Config{DBPath: dbPath, EventsBuffer: buffer}, tr, metrics, logging.Discard())
	return s, tr, dbPath
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Budget: 500, Spent: 120.4, ExpenseCount: 3}
	curr := Snapshot{Budget: 650, Spent: 133.1, ExpenseCount: 5}

	delta := diffSnapshots(prev, curr)
	if delta.Budget != 150 {
		t.Fatalf("Budget delta = %.2f, want 150", delta.Budget)
	}
	if math.Abs(delta.Spent-12.7) > 1e-9 {
		t.Fatalf("Spent delta = %.2f, want 12.70", delta.Spent)
	}
	if delta.ExpenseCount != 2 {
		t.Fatalf("ExpenseCount delta = %d, want 2", delta.ExpenseCount)
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffSnapshots(curr, curr).isZero() {
		t.Fatal("identical snapshots produced a delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _, _ := newTestService(t, 2)

	s.publishEvent(Event{ID: 101})
	s.publishEvent(Event{ID: 102})
	s.publishEvent(Event{ID: 103})

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) != 2 {
		t.Fatalf("events len = %d, want 2", len(s.events))
	}
	if s.events[0].ID != 102 || s.events[1].ID != 103 {
		t.Fatalf("events ring contains IDs [%d, %d], want [102, 103]", s.events[0].ID, s.events[1].ID)
	}
}

func TestChangesPublishBudgetDeltas(t *testing.T) {
	s, tr, _ := newTestService(t, 50)

	if err := tr.SetBudget("thailand", 800); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if _, err := tr.AddExpense("thailand", tracker.ExpenseInput{Amount: 25, Description: "ferry", Date: "2024-05-10"}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	s.mu.RLock()
	events := append([]Event(nil), s.events...)
	s.mu.RUnlock()

	var deltas []Delta
	for _, ev := range events {
		if ev.Type == "budget_delta" && ev.Snapshot != nil && ev.Snapshot.Destination == "thailand" {
			deltas = append(deltas, *ev.Delta)
		}
	}
	if len(deltas) != 2 {
		t.Fatalf("got %d budget deltas, want 2: %+v", len(deltas), events)
	}
	if deltas[0].Budget != 800 || deltas[1].Spent != 25 || deltas[1].ExpenseCount != 1 {
		t.Errorf("deltas = %+v", deltas)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	s, tr, _ := newTestService(t, 50)
	if err := tr.SetBudget("", 300); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	get := func(path string) []byte {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("reading %s: %v", path, err)
		}
		return body
	}

	if got := string(get("/healthz")); got != "ok\n" {
		t.Errorf("/healthz = %q", got)
	}

	var st Status
	if err := json.Unmarshal(get("/v1/status"), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Active != "thailand" || st.Summary.Budget != 300 || st.Summary.Name != "Thailand" {
		t.Errorf("status = %+v", st)
	}
	if st.Sync.Connected {
		t.Error("sync reported connected without a backend")
	}

	var alerts struct {
		Destination string      `json:"destination"`
		Current     AlertView   `json:"current"`
		Alerts      []AlertView `json:"alerts"`
	}
	if err := json.Unmarshal(get("/v1/alerts"), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if alerts.Destination != "thailand" || len(alerts.Alerts) == 0 || alerts.Current.Message == "" {
		t.Errorf("alerts = %+v", alerts)
	}

	var events []Event
	if err := json.Unmarshal(get("/v1/events"), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) == 0 {
		t.Error("no events recorded")
	}

	s.metrics.PushDone("thailand", nil)
	metrics := string(get("/metrics"))
	for _, want := range []string{
		`tripburn_sync_operations_total{op="push",result="ok"} 1`,
		`tripburn_budget{destination="thailand"} 300`,
	} {
		if !strings.Contains(metrics, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestStreamSendsSnapshotFirst(t *testing.T) {
	s, _, _ := newTestService(t, 50)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /v1/stream: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("reading stream: %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "event: snapshot\n") {
		t.Errorf("stream started with %q", buf[:n])
	}
}

func TestReloadSeesOtherWriter(t *testing.T) {
	s, _, dbPath := newTestService(t, 50)

	other, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer func() { _ = other.Close() }()
	writer, err := tracker.Open(tracker.Options{DB: other, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("tracker.Open: %v", err)
	}
	if err := writer.SetBudget("thailand", 1234); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	s.reload()
	st := s.snapshotStatus()
	if st.ReloadCount != 1 {
		t.Errorf("ReloadCount = %d, want 1", st.ReloadCount)
	}
	if st.Summary.Budget != 1234 {
		t.Errorf("Summary.Budget = %.2f, want 1234", st.Summary.Budget)
	}
}

func TestRelevantEvents(t *testing.T) {
	s, _, dbPath := newTestService(t, 50)
	dir := filepath.Dir(dbPath)
	tests := []struct {
		ev   fsnotify.Event
		want bool
	}{
		{fsnotify.Event{Name: dbPath, Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: dbPath + "-wal", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: dbPath + "-shm", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: dbPath, Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tests {
		if got := s.relevant(tt.ev); got != tt.want {
			t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
